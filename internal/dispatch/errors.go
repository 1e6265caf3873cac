package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedSite = errors.New("site not supported")
	ErrQueryRequired   = errors.New("query is required")
	ErrUnknownCategory = errors.New("category not available")
)

// InternalError reports a scraper failure that is neither an availability
// problem nor a missing capability: a panic or an unexpected error.
type InternalError struct {
	Op      string
	Site    string
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Site, e.Op, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
