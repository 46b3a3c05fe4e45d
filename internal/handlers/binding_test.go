package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/schoolfees-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feeContext(body io.Reader) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/fees", body)
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func TestBindNestedOrFlat(t *testing.T) {
	tuition := services.FeeInput{
		SchoolID: 1,
		Name:     "Tuition",
		Session:  "2025/2026",
		Term:     "First",
		Services: []services.FeeServiceInput{{ClassID: 7, Name: "Tuition", Amount: 8000}},
		Plans: []services.FeePlanInput{
			{InstallmentNo: 1, Percentage: 60},
			{PlanType: "installment", InstallmentNo: 2, Percentage: 40},
		},
	}
	const feeJSON = `{"school_id": 1, "name": "Tuition", "session": "2025/2026", "term": "First",
		"services": [{"class_id": 7, "name": "Tuition", "amount": 8000}],
		"plans": [{"installment_no": 1, "percentage": 60}, {"plan_type": "installment", "installment_no": 2, "percentage": 40}]}`

	tests := []struct {
		name        string
		body        string
		expected    services.FeeInput
		expectError bool
	}{
		{name: "Nested under fee", body: `{"fee": ` + feeJSON + `}`, expected: tuition},
		{name: "Flat", body: feeJSON, expected: tuition},
		{
			name:     "Other wrapper keys are read flat",
			body:     `{"data": {"name": "ignored"}, "school_id": 2, "name": "Books", "session": "2025/2026", "term": "Second"}`,
			expected: services.FeeInput{SchoolID: 2, Name: "Books", Session: "2025/2026", Term: "Second"},
		},
		{name: "Wrong type for amount", body: `{"fee": {"services": [{"class_id": 7, "amount": "lots"}]}}`, expectError: true},
		{name: "Fee is not an object", body: `{"fee": "tuition"}`, expectError: true},
		{name: "Plans is not a list", body: `{"plans": {"installment_no": 1}}`, expectError: true},
		{name: "Not JSON", body: `school_id=1`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := feeContext(bytes.NewBufferString(tt.body))

			var input services.FeeInput
			err := BindNestedOrFlat(c, "fee", &input)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, input)
		})
	}
}

func TestBindNestedOrFlatRestoresBody(t *testing.T) {
	c := feeContext(bytes.NewBufferString(`{"fee": {"name": "Tuition"}}`))

	var input services.FeeInput
	require.NoError(t, BindNestedOrFlat(c, "fee", &input))

	rest, err := io.ReadAll(c.Request.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fee": {"name": "Tuition"}}`, string(rest))
}

type brokenBody struct{}

func (brokenBody) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestBindNestedOrFlatReadError(t *testing.T) {
	c := feeContext(brokenBody{})

	var input services.FeeInput
	err := BindNestedOrFlat(c, "fee", &input)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
