package domain

// Page is one page of a paginated listing.
type Page[T any] struct {
	Docs       []T   `json:"docs"`
	TotalDocs  int32 `json:"totalDocs"`
	TotalPages int32 `json:"totalPages"`
	Page       int32 `json:"page"`
	Limit      int32 `json:"limit"`
}

func NewPage[T any](docs []T, total, page, limit int32) Page[T] {
	if docs == nil {
		docs = []T{}
	}
	var pages int32
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page[T]{Docs: docs, TotalDocs: total, TotalPages: pages, Page: page, Limit: limit}
}
