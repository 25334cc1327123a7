package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidation indicates a caller-supplied value failed format validation
	ErrValidation = errors.New("validation failed")

	// ErrSourceUnavailable indicates the ticket source could not be queried
	// (transport failure or non-2xx response)
	ErrSourceUnavailable = errors.New("ticket source unavailable")

	// ErrDocumentParse indicates the uploaded bytes are not a readable document
	ErrDocumentParse = errors.New("document parse failed")

	// ErrMetadataWrite indicates the store rejected a collection metadata update
	ErrMetadataWrite = errors.New("collection metadata write failed")

	// ErrStoreWrite indicates the store rejected a bulk unit write
	ErrStoreWrite = errors.New("collection store write failed")

	// ErrSyncInProgress indicates a sync is already running
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)
