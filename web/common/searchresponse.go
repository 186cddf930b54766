package common

type Pagination struct {
	Total int64 `json:"total"`
}

// SearchResponse always renders data as a list, never null.
type SearchResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func NewSearchResponse[T any](data []T, total int64) *SearchResponse[T] {
	if data == nil {
		data = []T{}
	}
	return &SearchResponse[T]{
		Data:       data,
		Pagination: Pagination{Total: total},
	}
}
