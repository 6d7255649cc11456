package models

// Roles recognized by the auth middleware.
const (
	RoleTourist = "tourist"
	RoleGuide   = "guide"
	RoleAdmin   = "admin"
)

// Caller is the authenticated subject performing an operation, extracted
// from the access token by the auth middleware.
type Caller struct {
	ID   string
	Role string
}

// IsAdmin reports whether the caller may override ownership checks.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// PageOptions carries standard pagination and sorting parameters.
type PageOptions struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"` // "asc" or "desc"
}

// Normalize applies the pagination defaults.
func (o PageOptions) Normalize() PageOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 || o.Limit > 100 {
		o.Limit = 10
	}
	if o.SortBy == "" {
		o.SortBy = "created_at"
	}
	if o.SortOrder != "asc" {
		o.SortOrder = "desc"
	}
	return o
}

// PageMeta describes one page of a paginated response.
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}
