package recommend

import "errors"

var (
	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrEmptyQuery is returned when the query is blank.
	ErrEmptyQuery = errors.New("query is empty")
)
