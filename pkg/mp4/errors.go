package mp4

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel category errors. Use errors.Is against these; the concrete
// error returned is usually one of the typed structs below, which wrap
// one of these via Unwrap.
var (
	// ErrTruncated is returned when a declared atom size extends past the
	// enclosing bound.
	ErrTruncated = errors.New("mp4: truncated atom")

	// ErrInvalidSize is returned when a size field is less than 8 and is
	// not one of the sentinel values 0 or 1.
	ErrInvalidSize = errors.New("mp4: invalid atom size")

	// ErrMissingBox is returned when a required descendant is absent
	// during a specific operation.
	ErrMissingBox = errors.New("mp4: missing box")

	// ErrTrackNotFound is returned when a requested track index exceeds
	// the number of trak atoms present.
	ErrTrackNotFound = errors.New("mp4: track not found")

	// ErrInvalidContainer is returned when a parsed structure violates
	// ISO-BMFF invariants (e.g. stsc first_chunk not strictly increasing).
	ErrInvalidContainer = errors.New("mp4: invalid container")

	// ErrOffsetOverflow is returned when a 32-bit stco entry would
	// overflow uint32 after a delta is applied.
	ErrOffsetOverflow = errors.New("mp4: chunk offset overflow")

	// ErrMalformedPayload is returned when a specific typed payload (vpch,
	// kons, ...) cannot be interpreted.
	ErrMalformedPayload = errors.New("mp4: malformed payload")
)

// MissingBoxError names the box type and path that was expected but not
// found.
type MissingBoxError struct {
	Box  string
	Path string
}

func (e *MissingBoxError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("mp4: missing %q box under %s", e.Box, e.Path)
	}
	return fmt.Sprintf("mp4: missing %q box", e.Box)
}

func (e *MissingBoxError) Unwrap() error { return ErrMissingBox }

// TrackNotFoundError reports the requested index against the number of
// tracks actually present.
type TrackNotFoundError struct {
	Index     int
	Available int
}

func (e *TrackNotFoundError) Error() string {
	return fmt.Sprintf("mp4: track index %d out of range (have %d tracks)", e.Index, e.Available)
}

func (e *TrackNotFoundError) Unwrap() error { return ErrTrackNotFound }

// OffsetOverflowError reports the chunk-offset entry whose value would no
// longer fit a 32-bit stco after applying delta.
type OffsetOverflowError struct {
	Entry uint64
	Delta int64
}

func (e *OffsetOverflowError) Error() string {
	return fmt.Sprintf("mp4: stco entry %d + delta %d overflows uint32", e.Entry, e.Delta)
}

func (e *OffsetOverflowError) Unwrap() error { return ErrOffsetOverflow }

// MalformedPayloadError names the free-form atom key and the reason its
// payload could not be interpreted.
type MalformedPayloadError struct {
	Atom   string
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("mp4: malformed %s payload: %s", e.Atom, e.Reason)
}

func (e *MalformedPayloadError) Unwrap() error { return ErrMalformedPayload }

// InvalidContainerError names the box and reason an ISO-BMFF invariant was
// violated.
type InvalidContainerError struct {
	Box    string
	Reason string
}

func (e *InvalidContainerError) Error() string {
	return fmt.Sprintf("mp4: invalid %q box: %s", e.Box, e.Reason)
}

func (e *InvalidContainerError) Unwrap() error { return ErrInvalidContainer }
