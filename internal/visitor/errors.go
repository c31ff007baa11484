package visitor

import "errors"

// Failure taxonomy surfaced to the HTTP layer. Handlers map these with
// errors.Is: validation to 400, not found to 404, the rest to 500. No failure
// here is fatal to the process, and the service never retries internally —
// failed registrations leave no partial proof/token state, so the whole
// request is safe to retry from the caller.
var (
	ErrValidation           = errors.New("missing required fields")
	ErrNotFound             = errors.New("not found")
	ErrStorageUnavailable   = errors.New("object storage unavailable")
	ErrRetrievalUnavailable = errors.New("identity proof retrieval unavailable")
	ErrTokenRender          = errors.New("check-in token could not be produced")
)
