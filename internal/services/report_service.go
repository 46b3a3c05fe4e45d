package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/schoolfees-api/internal/feeplan"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
	"github.com/xuri/excelize/v2"
)

// CollectionRow is one student's standing on a fee
type CollectionRow struct {
	StudentID   uint
	StudentName string
	ClassName   string
	ClassTotal  float64
	Paid        float64
	Outstanding float64
	Installment int
	Standing    string
}

// Student standing on a fee
const (
	StandingSettled    = "Settled"
	StandingInProgress = "In progress"
	StandingNotStarted = "Not started"
)

type ReportService struct {
	studentRepo    repository.StudentRepository
	feeRepo        repository.FeeRepository
	paymentRepo    repository.FeePaymentRepository
	collectionRepo repository.CollectionRepository
	schoolRepo     repository.SchoolRepository
	access         access
}

func NewReportService(
	studentRepo repository.StudentRepository,
	feeRepo repository.FeeRepository,
	paymentRepo repository.FeePaymentRepository,
	collectionRepo repository.CollectionRepository,
	schoolRepo repository.SchoolRepository,
) *ReportService {
	return &ReportService{
		studentRepo:    studentRepo,
		feeRepo:        feeRepo,
		paymentRepo:    paymentRepo,
		collectionRepo: collectionRepo,
		schoolRepo:     schoolRepo,
		access:         access{schoolRepo: schoolRepo},
	}
}

// CollectionSummary aggregates the payments of a fee
func (s *ReportService) CollectionSummary(ctx context.Context, actor Actor, feeID uint) (*models.CollectionSummary, error) {
	fee, err := s.feeRepo.FindByID(ctx, feeID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.access.manageSchool(ctx, actor, fee.SchoolID); err != nil {
		return nil, err
	}
	return s.collectionRepo.SummaryByFee(ctx, feeID)
}

// CollectionTrend returns monthly paid totals for a school
func (s *ReportService) CollectionTrend(ctx context.Context, actor Actor, schoolID uint, year int) ([]models.CollectionTrendPoint, error) {
	if err := s.access.manageSchool(ctx, actor, schoolID); err != nil {
		return nil, err
	}
	if year == 0 {
		year = time.Now().Year()
	}
	return s.collectionRepo.MonthlyTrend(ctx, schoolID, year)
}

// StudentStatementPDF renders every fee payment of a student
func (s *ReportService) StudentStatementPDF(ctx context.Context, actor Actor, studentID uint) ([]byte, string, error) {
	student, err := s.studentRepo.FindByID(ctx, studentID)
	if err != nil {
		return nil, "", mapRepoError(err)
	}
	if err := s.access.actForStudent(ctx, actor, student); err != nil {
		return nil, "", err
	}

	payments, err := s.paymentRepo.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, "", err
	}

	data, err := renderStatement(student, payments, time.Now())
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("statement_student_%d_%s.pdf", student.ID, time.Now().Format("2006-01-02"))
	return data, filename, nil
}

// FeeCollectionXLSX renders the standing of every student the fee applies to
func (s *ReportService) FeeCollectionXLSX(ctx context.Context, actor Actor, feeID uint) ([]byte, string, error) {
	fee, rows, payments, err := s.collection(ctx, actor, feeID)
	if err != nil {
		return nil, "", err
	}

	summary, err := s.collectionRepo.SummaryByFee(ctx, feeID)
	if err != nil {
		return nil, "", err
	}

	data, err := renderCollectionXLSX(fee, rows, payments, summary)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("collection_fee_%d_%s.xlsx", fee.ID, time.Now().Format("2006-01-02"))
	return data, filename, nil
}

// FeeCollectionCSV is the plain-text variant of FeeCollectionXLSX
func (s *ReportService) FeeCollectionCSV(ctx context.Context, actor Actor, feeID uint) ([]byte, string, error) {
	fee, rows, _, err := s.collection(ctx, actor, feeID)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)
	_ = writer.Write([]string{"Student ID", "Student", "Class", "Class Total", "Paid", "Outstanding", "Last Installment", "Standing"})
	for _, r := range rows {
		_ = writer.Write([]string{
			fmt.Sprintf("%d", r.StudentID),
			r.StudentName,
			r.ClassName,
			fmt.Sprintf("%.2f", r.ClassTotal),
			fmt.Sprintf("%.2f", r.Paid),
			fmt.Sprintf("%.2f", r.Outstanding),
			fmt.Sprintf("%d", r.Installment),
			r.Standing,
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("collection_fee_%d_%s.csv", fee.ID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func (s *ReportService) collection(ctx context.Context, actor Actor, feeID uint) (*models.Fee, []CollectionRow, []models.FeePayment, error) {
	fee, err := s.feeRepo.FindByIDWithDetails(ctx, feeID)
	if err != nil {
		return nil, nil, nil, mapRepoError(err)
	}
	if err := s.access.manageSchool(ctx, actor, fee.SchoolID); err != nil {
		return nil, nil, nil, err
	}

	var students []models.Student
	for _, total := range fee.ClassTotals {
		classStudents, err := s.studentRepo.FindByClass(ctx, total.ClassID)
		if err != nil {
			return nil, nil, nil, err
		}
		students = append(students, classStudents...)
	}

	payments, err := s.paymentRepo.FindByFee(ctx, feeID)
	if err != nil {
		return nil, nil, nil, err
	}

	return fee, BuildCollectionRows(fee, students, payments), payments, nil
}

// BuildCollectionRows summarises each student's completed payments against the class total
func BuildCollectionRows(fee *models.Fee, students []models.Student, payments []models.FeePayment) []CollectionRow {
	byStudent := make(map[uint][]models.FeePayment)
	classNames := make(map[uint]string)
	for _, p := range payments {
		byStudent[p.StudentID] = append(byStudent[p.StudentID], p)
		if p.Student.Class.Name != "" {
			classNames[p.Student.ClassID] = p.Student.Class.Name
		}
	}

	rows := make([]CollectionRow, 0, len(students))
	for _, st := range students {
		paid := decimal.Zero
		for _, p := range byStudent[st.ID] {
			if p.IsCountedAsCompleted() {
				paid = paid.Add(decimal.NewFromFloat(p.AmountPaid))
			}
		}

		state := feeplan.AnalyzePaymentState(byStudent[st.ID])
		classTotal := feeplan.ClassTotalFor(fee.ClassTotals, fee.ID, st.ClassID)
		paidAmount := paid.Round(2).InexactFloat64()

		row := CollectionRow{
			StudentID:   st.ID,
			StudentName: st.StudentName,
			ClassName:   st.Class.Name,
			ClassTotal:  classTotal,
			Paid:        paidAmount,
			Outstanding: feeplan.ComputeBalance(classTotal, paidAmount),
			Installment: state.HighestCompletedInstallment,
			Standing:    StandingNotStarted,
		}
		if row.ClassName == "" {
			row.ClassName = classNames[st.ClassID]
		}
		if row.ClassName == "" {
			row.ClassName = fmt.Sprintf("Class %d", st.ClassID)
		}
		switch {
		case state.FullyPaid:
			row.Standing = StandingSettled
			row.Outstanding = 0
		case paidAmount > 0:
			row.Standing = StandingInProgress
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ClassName != rows[j].ClassName {
			return rows[i].ClassName < rows[j].ClassName
		}
		return rows[i].StudentName < rows[j].StudentName
	})
	return rows
}

func renderCollectionXLSX(fee *models.Fee, rows []CollectionRow, payments []models.FeePayment, summary *models.CollectionSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Collection"
	_ = f.SetSheetName("Sheet1", sheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("%s - %s %s", fee.Name, fee.Session, fee.Term))
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	_ = f.SetCellValue(sheet, "A2", "Generated")
	_ = f.SetCellValue(sheet, "B2", time.Now().Format("2006-01-02 15:04"))

	if summary != nil {
		_ = f.SetCellValue(sheet, "D2", "Collected")
		_ = f.SetCellValue(sheet, "E2", summary.TotalCollected)
		_ = f.SetCellValue(sheet, "F2", "Settled students")
		_ = f.SetCellValue(sheet, "G2", summary.SettledStudents)
	}

	headers := []string{"Student ID", "Student", "Class", "Class Total", "Paid", "Outstanding", "Last Installment", "Standing"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetCellStyle(sheet, "A4", "H4", headerStyle)

	for i, r := range rows {
		row := i + 5
		values := []interface{}{r.StudentID, r.StudentName, r.ClassName, r.ClassTotal, r.Paid, r.Outstanding, r.Installment, r.Standing}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	if len(rows) > 0 {
		last := len(rows) + 4
		_ = f.SetCellStyle(sheet, "D5", fmt.Sprintf("F%d", last), moneyStyle)
	}
	_ = f.SetColWidth(sheet, "B", "C", 24)

	paymentsSheet := "Payments"
	if _, err := f.NewSheet(paymentsSheet); err != nil {
		return nil, err
	}
	paymentHeaders := []string{"Reference", "Student", "Plan", "Amount", "Status", "Completed", "Paid At", "Created At"}
	for i, h := range paymentHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(paymentsSheet, cell, h)
	}
	_ = f.SetCellStyle(paymentsSheet, "A1", "H1", headerStyle)

	for i := range payments {
		p := &payments[i]
		paidAt := ""
		if p.PaidAt != nil {
			paidAt = p.PaidAt.Format("2006-01-02 15:04")
		}
		values := []interface{}{p.Reference, p.Student.StudentName, planLabel(p), p.AmountPaid, p.Status, p.IsCompleted, paidAt, p.CreatedAt.Format("2006-01-02 15:04")}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(paymentsSheet, cell, v)
		}
	}
	_ = f.SetColWidth(paymentsSheet, "A", "B", 32)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderStatement(student *models.Student, payments []models.FeePayment, generatedAt time.Time) ([]byte, error) {
	currency := student.School.Currency
	if currency == "" {
		currency = "NGN"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, student.School.Name)
	pdf.Ln(10)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Fee Statement")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 6, "Student:")
	pdf.Cell(0, 6, student.StudentName)
	pdf.Ln(6)
	pdf.Cell(40, 6, "Class:")
	pdf.Cell(0, 6, student.Class.Name)
	pdf.Ln(6)
	pdf.Cell(40, 6, "Generated:")
	pdf.Cell(0, 6, generatedAt.Format("2006-01-02 15:04"))
	pdf.Ln(10)

	widths := []float64{45, 45, 30, 30, 20, 20}
	headers := []string{"Date", "Fee", "Plan", "Amount", "Status", "Settled"}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(224, 224, 224)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	paid := decimal.Zero
	for i := range payments {
		p := &payments[i]
		settled := ""
		if p.IsCompleted {
			settled = "Yes"
		}
		if p.Status == models.FeePaymentStatusPaid {
			paid = paid.Add(decimal.NewFromFloat(p.AmountPaid))
		}
		date := p.CreatedAt
		if p.PaidAt != nil {
			date = *p.PaidAt
		}
		cells := []string{
			date.Format("2006-01-02"),
			p.Fee.Name,
			planLabel(p),
			fmt.Sprintf("%.2f", p.AmountPaid),
			p.Status,
			settled,
		}
		for j, c := range cells {
			align := "L"
			if j == 3 {
				align = "R"
			}
			pdf.CellFormat(widths[j], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(payments) == 0 {
		pdf.CellFormat(190, 6, "No payments recorded", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(120, 6, "Total paid:")
	pdf.Cell(0, 6, fmt.Sprintf("%s %s", paid.StringFixed(2), currency))
	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 9)
	pdf.MultiCell(0, 5, AmountInWords(paid.InexactFloat64(), currency), "", "L", false)

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
