package models

// CollectionSummary aggregates fee payments for one fee
type CollectionSummary struct {
	FeeID           uint    `json:"fee_id"`
	TotalCollected  float64 `json:"total_collected"`
	TotalPending    float64 `json:"total_pending"`
	PaidCount       int64   `json:"paid_count"`
	PendingCount    int64   `json:"pending_count"`
	FailedCount     int64   `json:"failed_count"`
	PayingStudents  int64   `json:"paying_students"`
	SettledStudents int64   `json:"settled_students"`
}

// CollectionTrendPoint is the amount collected in one month
type CollectionTrendPoint struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
}
