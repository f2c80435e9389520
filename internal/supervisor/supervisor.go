// Package supervisor wraps the process's main task in a restart-on-crash
// loop (spec.md §4.7, §9 "Recursive restart loop"). The source language
// used unbounded tail recursion to retry main; a bounded for-loop with a
// fixed sleep captures the same "crash -> wait 15s -> rebuild everything"
// semantics without growing the stack.
package supervisor

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RestartBackoff is the fixed delay between a crash and the next
// restart attempt. Deliberately not exponential and uncounted — the
// source makes no attempt to back off harder after repeated failures
// (spec.md §4.7 "No exponential backoff, no crash counter").
const RestartBackoff = 15 * time.Second

// Task is the supervised unit of work. It returns only when ctx is
// cancelled (clean shutdown) or when it encounters an unrecoverable
// failure (return a non-nil error to trigger a restart).
type Task func(ctx context.Context) error

// Run invokes task repeatedly until ctx is cancelled. Each non-nil
// return from task is logged and followed by RestartBackoff before
// task runs again from scratch — every subscription, index and
// snapshot it owns is rebuilt cold (spec.md §7 "Recovery").
func Run(ctx context.Context, task Task, logger *zap.SugaredLogger) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := runOnce(ctx, task, logger)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// task returned cleanly without ctx being cancelled; still
			// treat this as a crash worth restarting from, since a
			// read-only daemon is never "done" (spec.md §6 "Exit codes:
			// 0 never").
			if logger != nil {
				logger.Warnw("supervised_task_exited_cleanly_restarting")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(RestartBackoff):
		}
	}
}

// runOnce isolates task's panics so one crashed run doesn't take the
// supervisor goroutine down with it.
func runOnce(ctx context.Context, task Task, logger *zap.SugaredLogger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Errorw("supervised_task_panicked", "recover", r)
			}
			err = errPanic
		}
	}()

	runErr := task(ctx)
	if runErr != nil && logger != nil {
		logger.Errorw("supervised_task_failed", "err", runErr)
	}
	return runErr
}

var errPanic = taskPanicError{}

type taskPanicError struct{}

func (taskPanicError) Error() string { return "supervised task panicked" }
