package repository

import (
	"context"
	"time"

	"github.com/sjperalta/schoolfees-api/internal/models"
	"gorm.io/gorm"
)

// CollectionRepository aggregates fee payments for reporting
type CollectionRepository interface {
	SummaryByFee(ctx context.Context, feeID uint) (*models.CollectionSummary, error)
	MonthlyTrend(ctx context.Context, schoolID uint, year int) ([]models.CollectionTrendPoint, error)
}

type collectionRepository struct {
	db *gorm.DB
}

func NewCollectionRepository(db *gorm.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

func (r *collectionRepository) SummaryByFee(ctx context.Context, feeID uint) (*models.CollectionSummary, error) {
	var byStatus []struct {
		Status string
		Count  int64
		Total  float64
	}

	err := r.db.WithContext(ctx).Table("fee_payments").
		Select("status, COUNT(*) as count, COALESCE(SUM(amount_paid), 0) as total").
		Where("fee_id = ?", feeID).
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, err
	}

	summary := &models.CollectionSummary{FeeID: feeID}
	for _, row := range byStatus {
		switch row.Status {
		case models.FeePaymentStatusPaid:
			summary.PaidCount = row.Count
			summary.TotalCollected = row.Total
		case models.FeePaymentStatusPending:
			summary.PendingCount = row.Count
			summary.TotalPending = row.Total
		case models.FeePaymentStatusFailed:
			summary.FailedCount = row.Count
		}
	}

	err = r.db.WithContext(ctx).Table("fee_payments").
		Select("COUNT(DISTINCT student_id)").
		Where("fee_id = ? AND status = ?", feeID, models.FeePaymentStatusPaid).
		Scan(&summary.PayingStudents).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Table("fee_payments").
		Select("COUNT(DISTINCT student_id)").
		Where("fee_id = ? AND is_completed = ?", feeID, true).
		Scan(&summary.SettledStudents).Error
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// MonthlyTrend returns paid totals per month of the given year, zero-filled
func (r *collectionRepository) MonthlyTrend(ctx context.Context, schoolID uint, year int) ([]models.CollectionTrendPoint, error) {
	startDate := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(1, 0, 0)

	var results []struct {
		Month int
		Total float64
	}

	query := r.db.WithContext(ctx).Table("fee_payments").
		Select("CAST(EXTRACT(MONTH FROM fee_payments.paid_at) AS INTEGER) as month, SUM(fee_payments.amount_paid) as total").
		Where("fee_payments.status = ?", models.FeePaymentStatusPaid).
		Where("fee_payments.paid_at >= ? AND fee_payments.paid_at < ?", startDate, endDate).
		Group("month").
		Order("month ASC")

	if schoolID > 0 {
		query = query.Joins("JOIN fees ON fees.id = fee_payments.fee_id").
			Where("fees.school_id = ?", schoolID)
	}

	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}

	totals := make(map[int]float64, len(results))
	for _, row := range results {
		totals[row.Month] = row.Total
	}

	points := make([]models.CollectionTrendPoint, 0, 12)
	for m := 1; m <= 12; m++ {
		points = append(points, models.CollectionTrendPoint{
			Label: time.Month(m).String()[:3],
			Total: totals[m],
		})
	}
	return points, nil
}
