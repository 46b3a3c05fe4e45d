package services

import (
	"fmt"
	"math"
	"strings"
)

var (
	smallNumbers = []string{
		"ZERO", "ONE", "TWO", "THREE", "FOUR", "FIVE", "SIX", "SEVEN", "EIGHT", "NINE",
		"TEN", "ELEVEN", "TWELVE", "THIRTEEN", "FOURTEEN", "FIFTEEN", "SIXTEEN",
		"SEVENTEEN", "EIGHTEEN", "NINETEEN",
	}
	tensNames = []string{"", "", "TWENTY", "THIRTY", "FORTY", "FIFTY", "SIXTY", "SEVENTY", "EIGHTY", "NINETY"}
	scales    = []struct {
		value int64
		name  string
	}{
		{1_000_000_000, "BILLION"},
		{1_000_000, "MILLION"},
		{1_000, "THOUSAND"},
	}
)

// AmountInWords spells an amount for receipts and statements.
// Example: 1500.50, "NGN" -> "ONE THOUSAND FIVE HUNDRED NGN AND 50/100"
func AmountInWords(amount float64, currency string) string {
	cents := int64(math.Round(math.Abs(amount) * 100))
	words := numberToWords(cents / 100)
	if amount < 0 && cents > 0 {
		words = "MINUS " + words
	}
	return fmt.Sprintf("%s %s AND %02d/100", words, strings.ToUpper(currency), cents%100)
}

func numberToWords(n int64) string {
	if n < 20 {
		return smallNumbers[n]
	}

	var parts []string
	for _, scale := range scales {
		if n >= scale.value {
			parts = append(parts, belowThousand(n/scale.value), scale.name)
			n %= scale.value
		}
	}
	if n > 0 {
		parts = append(parts, belowThousand(n))
	}
	return strings.Join(parts, " ")
}

// belowThousand spells 1..999
func belowThousand(n int64) string {
	var parts []string
	if n >= 100 {
		parts = append(parts, smallNumbers[n/100], "HUNDRED")
		n %= 100
	}
	switch {
	case n == 0:
	case n < 20:
		parts = append(parts, smallNumbers[n])
	case n%10 == 0:
		parts = append(parts, tensNames[n/10])
	default:
		parts = append(parts, tensNames[n/10]+"-"+smallNumbers[n%10])
	}
	return strings.Join(parts, " ")
}
