package snapshot

import (
	"fmt"
)

// Code classifies the terminal status of a save operation
type Code int

const (
	// CodeOK signals a fully completed save
	CodeOK Code = iota
	// CodeIOError signals a failed save
	CodeIOError
)

// Status is the terminal result handed to a save completion callback.
type Status struct {
	Code    Code
	Message string
}

// Done receives the terminal status of a save operation. The coordinator
// invokes it exactly once per Save call.
type Done func(status Status)

// OK returns a success status
func OK() Status {
	return Status{Code: CodeOK}
}

// IOErrorf returns a failure status with a formatted message
func IOErrorf(format string, args ...interface{}) Status {
	return Status{
		Code:    CodeIOError,
		Message: fmt.Sprintf(format, args...),
	}
}

// OK reports whether the status is a success
func (s Status) OK() bool {
	return s.Code == CodeOK
}

func (s Status) String() string {
	if s.OK() {
		return "OK"
	}
	return s.Message
}
