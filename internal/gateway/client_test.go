package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientInitiate_Success(t *testing.T) {
	var received InitiateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"redirect_url":"https://pay.example.com/checkout/abc"}`))
	}))
	defer server.Close()

	planID := uint(12)
	installment := 2
	client := NewClient(server.URL, "secret-key", 0)
	resp, err := client.Initiate(context.Background(), InitiateRequest{
		StudentID:     3,
		FeeID:         1,
		PlanID:        &planID,
		InstallmentNo: &installment,
		SchoolID:      5,
		AmountPaid:    2700,
		Email:         "parent@example.com",
		Reference:     "FEE-1-3-abc",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/checkout/abc", resp.RedirectURL)
	assert.NotEmpty(t, resp.Raw)
	assert.Equal(t, uint(3), received.StudentID)
	assert.Equal(t, 2700.0, received.AmountPaid)
	require.NotNil(t, received.InstallmentNo)
	assert.Equal(t, 2, *received.InstallmentNo)
}

func TestClientInitiate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "Server error", status: http.StatusBadGateway, payload: `{"error":"down"}`},
		{name: "Missing redirect", status: http.StatusOK, payload: `{"ok":true}`},
		{name: "Invalid JSON", status: http.StatusOK, payload: `not-json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, "", 0).Initiate(context.Background(), InitiateRequest{FeeID: 1})
			assert.Error(t, err)
		})
	}
}

func TestClientInitiate_NotConfigured(t *testing.T) {
	_, err := NewClient("", "", 0).Initiate(context.Background(), InitiateRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"reference":"FEE-1-3-abc","status":"paid"}`)
	sig := Sign("shh", body)

	assert.True(t, VerifySignature("shh", body, sig))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("shh", []byte(`{}`), sig))
	assert.False(t, VerifySignature("shh", body, "zz"))
	assert.False(t, VerifySignature("", body, sig))
}
