package grit

import "errors"

// Sentinel errors for the object model. Higher-level packages (gritstore,
// executor, query) define their own sentinels for their own concerns;
// these cover only encoding/decoding and id validity.
var (
	// ErrInvalidObjectId is returned when a hex string does not decode to
	// a 32-byte id.
	ErrInvalidObjectId = errors.New("grit: invalid object id")

	// ErrTruncated is returned when a canonical encoding ends before the
	// declared body length or a fixed-width field is read.
	ErrTruncated = errors.New("grit: truncated object encoding")

	// ErrUnknownKind is returned when an object header names a kind other
	// than blob/tree/message/mailbox/step.
	ErrUnknownKind = errors.New("grit: unknown object kind")

	// ErrLengthMismatch is returned when the header's declared body
	// length does not match the number of bytes actually present.
	ErrLengthMismatch = errors.New("grit: body length mismatch")

	// ErrDuplicateTreeKey is returned when a tree encoding repeats a name.
	ErrDuplicateTreeKey = errors.New("grit: duplicate key in tree")
)
