package sync

import (
	"context"
	"fmt"
	"runtime/debug"
)

// UserReport is the outcome of one user's pass within a bulk run. Report
// is nil when Err is set, except for a pass whose batch was interrupted
// after the cache was persisted.
type UserReport struct {
	UserID string
	Report *PassReport
	Err    error
}

// userRunner executes one user's pass with panic recovery, so a failure
// in one user never reaches its siblings.
type userRunner struct {
	userID string
}

// run executes fn with panic recovery. fn is a closure over Runner.Run,
// injected so panic recovery can be tested without a real Runner.
func (ur *userRunner) run(ctx context.Context, fn func(context.Context) (*PassReport, error)) (result *UserReport) {
	result = &UserReport{UserID: ur.userID}

	defer func() {
		if r := recover(); r != nil {
			result.Report = nil
			result.Err = fmt.Errorf("panic in pass for user %s: %v\n%s", ur.userID, r, debug.Stack())
		}
	}()

	report, err := fn(ctx)
	result.Report = report
	result.Err = err

	return result
}
