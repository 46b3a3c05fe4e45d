package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// FeePayment records one payment attempt of a student against a fee
type FeePayment struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	FeeID          uint           `gorm:"not null;index:idx_fee_payments_student_fee" json:"fee_id"`
	StudentID      uint           `gorm:"not null;index:idx_fee_payments_student_fee" json:"student_id"`
	PlanID         *uint          `gorm:"index" json:"plan_id"` // nil for a full payment
	InstallmentNo  *int           `json:"installment_no"`
	AmountPaid     float64        `gorm:"type:decimal(15,2);not null" json:"amount_paid"`
	Status         string         `gorm:"default:pending;not null;index" json:"status"`
	IsCompleted    bool           `gorm:"default:false;not null" json:"is_completed"`
	Reference      string         `gorm:"not null;uniqueIndex" json:"reference"`
	PayerEmail     string         `json:"payer_email"`
	CheckoutURL    *string        `json:"checkout_url,omitempty"`
	GatewayPayload datatypes.JSON `gorm:"type:jsonb" json:"-"`
	PaidAt         *time.Time     `gorm:"index" json:"paid_at"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Associations
	// No association to FeePaymentPlan: plans are deleted and reinserted when a fee is
	// edited, so progress is tracked through InstallmentNo rather than PlanID.
	Fee     Fee     `gorm:"foreignKey:FeeID" json:"fee,omitempty"`
	Student Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// TableName specifies the table name for FeePayment
func (FeePayment) TableName() string {
	return "fee_payments"
}

// Fee payment status constants
const (
	FeePaymentStatusPending = "pending"
	FeePaymentStatusPaid    = "paid"
	FeePaymentStatusFailed  = "failed"
)

// IsCountedAsCompleted returns true if the payment counts towards installment progress
func (p *FeePayment) IsCountedAsCompleted() bool {
	return p.Status == FeePaymentStatusPaid || p.IsCompleted
}

// IsFullPayment returns true if the payment was made against the whole fee
func (p *FeePayment) IsFullPayment() bool {
	return p.PlanID == nil
}

// MayComplete returns true if the payment can be confirmed by the gateway.
// A failed payment may still be confirmed when the gateway settles it after expiry.
func (p *FeePayment) MayComplete() bool {
	return p.Status == FeePaymentStatusPending || p.Status == FeePaymentStatusFailed
}

// MayFail returns true if the payment can be marked as failed
func (p *FeePayment) MayFail() bool {
	return p.Status == FeePaymentStatusPending
}

// FeePaymentResponse is the JSON response format for fee payments
type FeePaymentResponse struct {
	ID            uint       `json:"id"`
	FeeID         uint       `json:"fee_id"`
	FeeName       string     `json:"fee_name,omitempty"`
	StudentID     uint       `json:"student_id"`
	StudentName   string     `json:"student_name,omitempty"`
	PlanID        *uint      `json:"plan_id"`
	InstallmentNo *int       `json:"installment_no"`
	PlanLabel     string     `json:"plan_label"`
	AmountPaid    float64    `json:"amount_paid"`
	Status        string     `json:"status"`
	IsCompleted   bool       `json:"is_completed"`
	Reference     string     `json:"reference"`
	CheckoutURL   *string    `json:"checkout_url,omitempty"`
	PaidAt        *time.Time `json:"paid_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ToResponse converts FeePayment to FeePaymentResponse
func (p *FeePayment) ToResponse() FeePaymentResponse {
	resp := FeePaymentResponse{
		ID:            p.ID,
		FeeID:         p.FeeID,
		FeeName:       p.Fee.Name,
		StudentID:     p.StudentID,
		StudentName:   p.Student.StudentName,
		PlanID:        p.PlanID,
		InstallmentNo: p.InstallmentNo,
		PlanLabel:     "Full payment",
		AmountPaid:    p.AmountPaid,
		Status:        p.Status,
		IsCompleted:   p.IsCompleted,
		Reference:     p.Reference,
		CheckoutURL:   p.CheckoutURL,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
	if p.InstallmentNo != nil {
		resp.PlanLabel = installmentLabel(*p.InstallmentNo)
	}
	return resp
}

func installmentLabel(n int) string {
	return fmt.Sprintf("Installment %d", n)
}
