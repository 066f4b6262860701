// Package gritstore defines the object-store and reference-namespace
// contract (spec.md §4.1) and provides two interchangeable backends: an
// in-memory store used by tests, and a sqlite
// store built on internal/db.
package gritstore

import (
	"context"
	"errors"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
)

// Store is the object-store and reference-namespace contract every backend
// implements. Puts are idempotent: storing an id that is already present is
// a no-op. References are the only mutable state (spec.md §3).
type Store interface {
	// Put serializes, hashes, and persists o, returning its content id.
	// Calling Put twice with equal content returns the same id and
	// leaves a single stored copy.
	Put(ctx context.Context, o grit.Object) (grit.ObjectId, error)

	// Get deserializes and returns the object stored under id, or
	// ErrNotFound if absent.
	Get(ctx context.Context, id grit.ObjectId) (grit.Object, error)

	// SetRef creates or overwrites a named reference.
	SetRef(ctx context.Context, name string, id grit.ObjectId) error

	// GetRef returns the id a reference points to, or ErrNotFound.
	GetRef(ctx context.Context, name string) (grit.ObjectId, error)

	// GetRefs returns every reference whose name starts with prefix (an
	// empty prefix returns every reference).
	GetRefs(ctx context.Context, prefix string) (map[string]grit.ObjectId, error)

	// DeleteRef removes a named reference. Absence is not an error.
	DeleteRef(ctx context.Context, name string) error

	// Close releases any resources held by the store.
	Close() error
}

// Sentinel errors for the object-store and reference-namespace contract.
var (
	// ErrNotFound is returned by Get/GetRef when the requested id/name
	// does not exist.
	ErrNotFound = errors.New("gritstore: not found")

	// ErrStorageFull is returned when the backend has exhausted its
	// capacity; recoverable by resizing the backend and retrying.
	ErrStorageFull = errors.New("gritstore: storage full")

	// ErrStorageError is returned for unrecoverable backend failures.
	ErrStorageError = errors.New("gritstore: storage error")
)
