package generation

import "errors"

// Generation errors distinguish transient provider failures, which callers
// may retry, from structural ones, which they must not.
var (
	// ErrInvalidConfig indicates the generator was constructed with invalid
	// configuration (missing API key, empty model name).
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrTransientFailure indicates a provider-side failure (network error,
	// rate limit, server error) that may succeed on retry.
	ErrTransientFailure = errors.New("transient generation failure")

	// ErrInvalidResponse indicates the model responded but its output could
	// not be parsed into the expected structure.
	ErrInvalidResponse = errors.New("invalid model response")

	// ErrContentBlocked indicates the provider refused the request on
	// safety grounds.
	ErrContentBlocked = errors.New("content blocked by provider")

	// ErrEmptyInput indicates the request carried no usable input text.
	ErrEmptyInput = errors.New("empty generation input")
)
