package models

import (
	"time"
)

// Fee represents a billable charge template for a school term
type Fee struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SchoolID  uint      `gorm:"not null;uniqueIndex:idx_fees_school_name_term" json:"school_id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_fees_school_name_term" json:"name"`
	Session   string    `gorm:"not null;uniqueIndex:idx_fees_school_name_term" json:"session"`
	Term      string    `gorm:"not null;uniqueIndex:idx_fees_school_name_term" json:"term"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	School      School           `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
	Plans       []FeePaymentPlan `gorm:"foreignKey:FeeID;constraint:OnDelete:CASCADE" json:"plans,omitempty"`
	Services    []FeeService     `gorm:"foreignKey:FeeID;constraint:OnDelete:CASCADE" json:"services,omitempty"`
	ClassTotals []FeeClassTotal  `gorm:"foreignKey:FeeID;constraint:OnDelete:CASCADE" json:"class_totals,omitempty"`
}

// TableName specifies the table name for Fee
func (Fee) TableName() string {
	return "fees"
}

// FeeService is one priced line item of a fee for a class (tuition, uniform, bus...)
type FeeService struct {
	ID      uint    `gorm:"primaryKey" json:"id"`
	FeeID   uint    `gorm:"not null;index" json:"fee_id"`
	ClassID uint    `gorm:"not null;index" json:"class_id"`
	Name    string  `gorm:"not null" json:"name"`
	Amount  float64 `gorm:"type:decimal(15,2);not null" json:"amount"`
}

// TableName specifies the table name for FeeService
func (FeeService) TableName() string {
	return "fee_services"
}

// FeePaymentPlan is one installment option of a fee
type FeePaymentPlan struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	FeeID         uint       `gorm:"not null;index" json:"fee_id"`
	PlanType      string     `gorm:"not null;default:installment" json:"plan_type"`
	InstallmentNo int        `gorm:"not null" json:"installment_no"`
	Percentage    float64    `gorm:"type:decimal(5,2);not null" json:"percentage"`
	DueDate       *time.Time `gorm:"type:date" json:"due_date"`
}

// TableName specifies the table name for FeePaymentPlan
func (FeePaymentPlan) TableName() string {
	return "fee_payment_plans"
}

// Plan type constants
const (
	PlanTypeInstallment   = "installment"
	PlanTypeMicroPayments = "micro-payments"
)

// FeeClassTotal is the full amount owed by students of a class for a fee
type FeeClassTotal struct {
	FeeID       uint    `gorm:"primaryKey" json:"fee_id"`
	ClassID     uint    `gorm:"primaryKey" json:"class_id"`
	TotalAmount float64 `gorm:"type:decimal(15,2);not null;default:0" json:"total_amount"`
}

// TableName specifies the table name for FeeClassTotal
func (FeeClassTotal) TableName() string {
	return "fee_class_totals"
}

// FeeResponse is the JSON response format for fees
type FeeResponse struct {
	ID          uint             `json:"id"`
	SchoolID    uint             `json:"school_id"`
	SchoolName  string           `json:"school_name,omitempty"`
	Name        string           `json:"name"`
	Session     string           `json:"session"`
	Term        string           `json:"term"`
	Plans       []FeePaymentPlan `json:"plans"`
	Services    []FeeService     `json:"services"`
	ClassTotals []FeeClassTotal  `json:"class_totals"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ToResponse converts Fee to FeeResponse
func (f *Fee) ToResponse() FeeResponse {
	resp := FeeResponse{
		ID:          f.ID,
		SchoolID:    f.SchoolID,
		SchoolName:  f.School.Name,
		Name:        f.Name,
		Session:     f.Session,
		Term:        f.Term,
		Plans:       f.Plans,
		Services:    f.Services,
		ClassTotals: f.ClassTotals,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	if resp.Plans == nil {
		resp.Plans = []FeePaymentPlan{}
	}
	if resp.Services == nil {
		resp.Services = []FeeService{}
	}
	if resp.ClassTotals == nil {
		resp.ClassTotals = []FeeClassTotal{}
	}
	return resp
}
