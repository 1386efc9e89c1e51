package mem

import "errors"

// ErrAllocationFailed is returned when the operating system declines to
// grant an RW+X mapping of the requested size.
var ErrAllocationFailed = errors.New("mem: allocation failed")

// ErrAlreadyClosed is returned by a second Close call on the same Page.
var ErrAlreadyClosed = errors.New("mem: page already closed")
