package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidHorizon       ErrorCode = 102
	ErrCodeInvalidCadence       ErrorCode = 103
	ErrCodeMalformedIdentifier  ErrorCode = 104
	ErrCodeInvalidPeriod        ErrorCode = 105

	// Store errors (200-299)
	ErrCodeArtifactNotFound ErrorCode = 200
	ErrCodeArtifactExists   ErrorCode = 201
	ErrCodeStoreReadFailed  ErrorCode = 202
	ErrCodeStoreWriteFailed ErrorCode = 203
	ErrCodeStoreUnavailable ErrorCode = 204

	// Artifact content errors (300-399)
	ErrCodeMalformedArtifact ErrorCode = 300
	ErrCodeColumnNotFound    ErrorCode = 301
	ErrCodeLengthMismatch    ErrorCode = 302
	ErrCodeEmptyArtifact     ErrorCode = 303

	// Forecast errors (400-499)
	ErrCodeNoNewData        ErrorCode = 400
	ErrCodeModelFitFailed   ErrorCode = 401
	ErrCodePredictionFailed ErrorCode = 402
	ErrCodeProjectionFailed ErrorCode = 403

	// Fetch errors (500-599)
	ErrCodeFetchFailed  ErrorCode = 500
	ErrCodeDecodeFailed ErrorCode = 501
)
