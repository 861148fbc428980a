package ledger

import (
	"github.com/mmynk/splitledger/internal/apperr"
	"github.com/mmynk/splitledger/internal/storage"
)

// NewPage validates pagination input. Zero values select the defaults.
func NewPage(page, limit int) (storage.Page, error) {
	if page == 0 {
		page = storage.DefaultPage
	}
	if limit == 0 {
		limit = storage.DefaultLimit
	}
	if page < 1 {
		return storage.Page{}, apperr.NewValidationError("page", "must be at least 1")
	}
	if limit < 1 || limit > storage.MaxLimit {
		return storage.Page{}, apperr.Validationf("limit", "must be between 1 and %d", storage.MaxLimit)
	}
	return storage.Page{Page: page, Limit: limit}, nil
}
