package codeloader

import "errors"

// ErrImport is returned when a module path cannot be resolved, or resolves
// to content that is not usable as a module (spec.md §4.5).
var ErrImport = errors.New("codeloader: import error")
