package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/sjperalta/schoolfees-api/internal/models"
)

// Fee payment events
const (
	EventComplete = "complete"
	EventFail     = "fail"
)

// FeePaymentFSM wraps a fee payment with its state machine
type FeePaymentFSM struct {
	payment *models.FeePayment
	fsm     *fsm.FSM
}

// NewFeePaymentFSM creates a new fee payment state machine
func NewFeePaymentFSM(payment *models.FeePayment) *FeePaymentFSM {
	pfsm := &FeePaymentFSM{
		payment: payment,
	}

	pfsm.fsm = fsm.NewFSM(
		payment.Status,
		fsm.Events{
			// pending → paid (gateway confirmed), failed → paid (gateway confirmed after expiry)
			{Name: EventComplete, Src: []string{models.FeePaymentStatusPending, models.FeePaymentStatusFailed}, Dst: models.FeePaymentStatusPaid},

			// pending → failed (gateway declined, init error or expiry)
			{Name: EventFail, Src: []string{models.FeePaymentStatusPending}, Dst: models.FeePaymentStatusFailed},
		},
		fsm.Callbacks{
			"enter_" + models.FeePaymentStatusPaid: func(_ context.Context, _ *fsm.Event) {
				now := time.Now()
				pfsm.payment.PaidAt = &now
			},
		},
	)

	return pfsm
}

// Complete transitions the payment to paid
func (p *FeePaymentFSM) Complete(ctx context.Context) error {
	if !p.payment.MayComplete() {
		return fmt.Errorf("payment cannot be completed in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, EventComplete); err != nil {
		return fmt.Errorf("failed to complete payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Fail transitions the payment to failed
func (p *FeePaymentFSM) Fail(ctx context.Context) error {
	if !p.payment.MayFail() {
		return fmt.Errorf("payment cannot be failed in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, EventFail); err != nil {
		return fmt.Errorf("failed to fail payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *FeePaymentFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if a transition is possible
func (p *FeePaymentFSM) Can(event string) bool {
	return p.fsm.Can(event)
}
