package areabook

import (
	"fmt"
	"time"
)

// recoverFromPanic converts a panic inside a step or pipeline into an
// *Error so a misbehaving stage cannot take down the caller. The result
// is reset to the zero value since a partially-built value is not safe
// to return.
func recoverFromPanic[Out any](result *Out, err *error, name Name, start time.Time) {
	if r := recover(); r != nil {
		var zero Out
		*result = zero
		*err = &Error{
			Timestamp: time.Now(),
			Duration:  time.Since(start),
			Err:       fmt.Errorf("panic: %v", r),
			Path:      []Name{name},
		}
	}
}
