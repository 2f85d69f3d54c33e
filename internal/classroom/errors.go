package classroom

import "errors"

var (
	// ErrAlreadyOpen is returned by Open when a record already exists for the lesson.
	ErrAlreadyOpen = errors.New("classroom already open")
	// ErrNotOpen is returned when an operation requires a live record and none exists.
	ErrNotOpen = errors.New("classroom not open")
	// ErrRecordCorrupt is returned when stored bytes fail to decode. The record
	// group is deleted before the error is surfaced, so a retry observes ErrNotOpen.
	ErrRecordCorrupt = errors.New("classroom record corrupt")
	// ErrInvalidToken is returned when an attendance token fails signature or
	// expiration verification.
	ErrInvalidToken = errors.New("invalid attendance token")
)
