package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when a unique constraint is violated
var ErrDuplicateKey = errors.New("duplicate key")

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// Normalize clamps page and page size to sane values
func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage <= 0 || q.PerPage > 100 {
		q.PerPage = 20
	}
	if q.Filters == nil {
		q.Filters = make(map[string]string)
	}
}

// TotalPages returns the number of pages for the given total
func (q *ListQuery) TotalPages(total int64) int64 {
	if q.PerPage <= 0 {
		return 1
	}
	return (total + int64(q.PerPage) - 1) / int64(q.PerPage)
}

// paginate applies sorting (restricted to allowed columns) and offset/limit
func paginate(db *gorm.DB, query *ListQuery, allowedSort map[string]string, defaultOrder string) *gorm.DB {
	order := defaultOrder
	if column, ok := allowedSort[query.SortBy]; ok {
		order = column
		if query.SortDir == "desc" {
			order += " DESC"
		}
	}
	db = db.Order(order)

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}
	return db
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
