package llm

import "errors"

// Failure taxonomy for external LLM calls. The enrichment queue keys its
// batch behavior off these: quota pauses the run, a missing credential
// aborts it, anything else is a per-item failure.
var (
	ErrQuotaExceeded     = errors.New("llm: requests-per-minute quota exceeded")
	ErrMissingCredential = errors.New("llm: missing API credential")
	ErrMalformedResponse = errors.New("llm: malformed response")
)
