package filter

import "errors"

var (
	// ErrInvalidPattern is returned when a path expression does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrEmptyDefinition is returned when the filter document has no content.
	ErrEmptyDefinition = errors.New("filter definition is empty")

	// ErrNotAList is returned when the filter document is not a list of filters.
	ErrNotAList = errors.New("filter definition is not a list")

	// ErrMissingName is returned when a filter has no name.
	ErrMissingName = errors.New("filter does not contain a name")

	// ErrMissingFiles is returned when a filter has no include patterns.
	ErrMissingFiles = errors.New("filter files list is empty")

	// ErrDuplicateName is returned when two filters share a case-normalized name.
	ErrDuplicateName = errors.New("duplicate filter name")
)
