package hull

import (
	"github.com/pkg/errors"
)

// Status is the outcome of a hull computation.
type Status int

const (
	StatusOK Status = iota
	// StatusFail reports points that cannot be hulled.
	StatusFail
	// StatusVertexLimitReached is informational: the builder ran out of
	// vertices and the hull went through the expansion path. The output is
	// valid.
	StatusVertexLimitReached
	// StatusAreaTestFail reports a seed tetrahedron with a face under the
	// area test epsilon. Retrying with a smaller epsilon may succeed.
	StatusAreaTestFail
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFail:
		return "FAIL"
	case StatusVertexLimitReached:
		return "VERTEX_LIMIT_REACHED"
	case StatusAreaTestFail:
		return "AREA_TEST_FAIL"
	}
	return "UNKNOWN"
}

var (
	ErrFail         = errors.New("hull: points cannot be hulled")
	ErrAreaTestFail = errors.New("hull: seed face under the area test epsilon")
	ErrInvalidDesc  = errors.New("hull: invalid hull description")
)

// statusError marks the error of a building block with the sentinel of its
// status. errors.Is matches both.
type statusError struct {
	sentinel error
	cause    error
}

func withStatus(sentinel, cause error) error {
	return &statusError{sentinel: sentinel, cause: cause}
}

func (e *statusError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *statusError) Unwrap() []error {
	return []error{e.sentinel, e.cause}
}

// StatusOf returns the status carried by an error of this package.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrAreaTestFail):
		return StatusAreaTestFail
	default:
		return StatusFail
	}
}
