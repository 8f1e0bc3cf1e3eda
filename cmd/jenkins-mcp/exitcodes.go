package main

// Exit codes for jenkins-mcp.
const (
	ExitOK            = 0 // Server stopped cleanly.
	ExitServeFailure  = 1 // Transport failed while serving.
	ExitInvalidConfig = 2 // Startup configuration is invalid.
)

// exitCodeError carries a specific process exit code up to main.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }

func (e *exitCodeError) Unwrap() error { return e.err }
