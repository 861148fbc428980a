package storage

import (
	"github.com/mmynk/splitledger/internal/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page selects a window of a listing. Page is 1-based.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageInfo describes the page returned to the client.
type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
	TotalItems int `json:"totalItems"`
}

// NewPageInfo computes page metadata for total matching items.
func NewPageInfo(p Page, total int) PageInfo {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return PageInfo{Page: p.Page, Limit: p.Limit, TotalPages: pages, TotalItems: total}
}

// BillFilter narrows a bill listing. Empty fields match everything.
type BillFilter struct {
	GroupID string
	Status  models.BillStatus
}

// DebtFilter narrows a debt listing. Empty fields match everything.
// UserID matches debts where the user is either party.
type DebtFilter struct {
	GroupID    string
	UserID     string
	FromUserID string
	ToUserID   string
	Status     models.DebtStatus
}

// AnalyticsQuery selects rollup rows. Zero values match everything.
type AnalyticsQuery struct {
	UserID  string
	GroupID string
	Year    int
	Month   int
}
