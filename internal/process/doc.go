// Package process runs one-shot subprocesses with a deadline.
//
// Each command runs in its own process group so a timeout terminates the
// whole tree, not just the shell. Stdout and stderr are captured together
// up to a size limit.
//
// Example usage:
//
//	res, err := process.Run(ctx, process.ShellCommand("uptime", 2*time.Minute))
//	if errors.Is(err, process.ErrTimeout) {
//	    // res.Output holds whatever was printed before the deadline
//	}
package process
