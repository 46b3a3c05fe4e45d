package feeplan

import (
	"fmt"
	"strconv"
	"strings"
)

// SelectionFullKey is the key used for the full-payment option
const SelectionFullKey = "full"

// Selection is the payment option picked by a guardian: the whole fee, or one installment plan
type Selection struct {
	planID uint
}

// FullSelection selects payment of the whole fee
func FullSelection() Selection {
	return Selection{}
}

// InstallmentSelection selects the installment plan with the given id
func InstallmentSelection(planID uint) Selection {
	return Selection{planID: planID}
}

// ParseSelection reads "full", "" or a numeric plan id
func ParseSelection(raw string) (Selection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, SelectionFullKey) {
		return FullSelection(), nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return Selection{}, fmt.Errorf("invalid plan selection %q", raw)
	}
	return InstallmentSelection(uint(id)), nil
}

// IsFull returns true if the whole fee was selected
func (s Selection) IsFull() bool {
	return s.planID == 0
}

// PlanID returns the selected plan id; ok is false for a full selection
func (s Selection) PlanID() (id uint, ok bool) {
	return s.planID, s.planID != 0
}

// Key returns the wire form of the selection ("full" or the plan id)
func (s Selection) Key() string {
	if s.IsFull() {
		return SelectionFullKey
	}
	return strconv.FormatUint(uint64(s.planID), 10)
}

func (s Selection) String() string {
	return s.Key()
}
