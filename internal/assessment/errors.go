package assessment

// ConfigurationError reports missing or blank deployment configuration,
// such as an absent shuffle secret. It is fatal and not retryable: the
// process cannot serve the affected requests until an operator fixes the
// environment.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// ValidationError reports a malformed or incomplete response submission.
// The same input will always fail; the caller must correct it.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
