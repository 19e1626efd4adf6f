package v1

var (
	// common errors
	ErrSuccess             = newError(0, "ok")
	ErrBadRequest          = newError(400, "bad request")
	ErrNotFound            = newError(404, "not found")
	ErrInternalServerError = newError(500, "internal server error")

	// tenant / partition errors
	ErrTenantNotFound    = newError(3001, "tenant not found")
	ErrInvalidIdentifier = newError(3002, "invalid schema or table identifier")
	ErrMissingOffering   = newError(3003, "tenant course offering not found")
	ErrRecordNotFound    = newError(3004, "source record not found")

	// orchestration errors
	ErrUnsupportedSyncType = newError(3101, "unsupported sync type")
	ErrUnknownStrategy     = newError(3102, "unknown conflict resolution strategy")
	ErrMergePolicyRequired = newError(3103, "merge strategy requires a merge policy")
	ErrSyncInProgress      = newError(3104, "sync already in progress for tenant")
	ErrUnknownCheck        = newError(3105, "unknown integrity check")

	// ledger errors
	ErrInvalidState      = newError(3201, "invalid sync log state transition")
	ErrRetryExhausted    = newError(3202, "sync retry attempts exhausted")
	ErrRetryNotSupported = newError(3203, "retry is not supported for this sync type")
)
