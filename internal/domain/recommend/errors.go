package recommend

import "errors"

// Sentinel kinds for recommendation errors. These allow errors.Is from callers.
var (
	// ErrNotFound reports that the target evaluation does not exist for the
	// given subject and scale, or is missing from the comparison pool.
	ErrNotFound = errors.New("evaluation not found")

	// ErrEmptyInput reports an empty record stream. The pipeline turns it into
	// a NoData recommendation; it never reaches callers of Recommend.
	ErrEmptyInput = errors.New("empty input")

	// ErrInconsistent reports a ranked question with no metadata in its scale.
	ErrInconsistent = errors.New("inconsistent question metadata")
)
