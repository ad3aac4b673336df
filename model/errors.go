package model

import (
	"errors"
	"fmt"
)

// Error kinds for pipeline failures. Storage, submission, polling and
// result-fetch errors abort the run; NER errors never surface here
// because entity extraction is best-effort.
var (
	ErrStorage           = errors.New("storage failure")
	ErrJobSubmission     = errors.New("job submission failure")
	ErrJobFailed         = errors.New("job failed")
	ErrResultFetch       = errors.New("result fetch failure")
	ErrMalformedResponse = errors.New("malformed collaborator response")
	ErrInternal          = errors.New("internal processing error")
)

// WrapError preserves the typed error kind with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", operation, kind)
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
