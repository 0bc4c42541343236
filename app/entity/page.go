package entity

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is an offset/limit window over a listing.
type Page struct {
	Offset int64
	Limit  int64
}

// NewPage converts a 1-based page number and page size into an offset window.
// Out of range values are clamped to the defaults.
func NewPage(page int, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{
		Offset: int64(page-1) * int64(limit),
		Limit:  int64(limit),
	}
}
