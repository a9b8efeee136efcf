package cli

// Exit codes returned through ExitError.
const (
	ExitStartup = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

func startupError(err error) error {
	return &ExitError{Code: ExitStartup, Message: err.Error()}
}
