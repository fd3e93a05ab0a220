package generation

import "errors"

// Generator failures. Provider adapters wrap one of these so callers can
// decide whether another attempt is worthwhile without knowing the provider.
var (
	// ErrGenerationFailed covers provider errors that fit no narrower kind.
	ErrGenerationFailed = errors.New("failed to generate course content")

	// ErrInvalidResponse means the model answered but the course could not be
	// parsed or breaks the module and section bounds.
	ErrInvalidResponse = errors.New("invalid response from language model")

	ErrContentBlocked   = errors.New("content blocked by language model safety filters")
	ErrTransientFailure = errors.New("transient error during course generation")
	ErrInvalidConfig    = errors.New("invalid generator configuration")
)

// IsRetryable reports whether repeating the same prompt may succeed. Blocked
// content and configuration errors fail the same way every time.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrContentBlocked) && !errors.Is(err, ErrInvalidConfig)
}
