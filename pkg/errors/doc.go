// Package errors provides structured error handling with error codes for simple-auth.
//
// Every failure the identity engine reports to a caller is an *Error carrying a
// stable ErrorCode. Transports map the code to a status with HTTPStatusCode and
// show only the Message; the wrapped Err is for logs.
//
// # Basic Usage
//
//	import "github.com/tendant/simple-auth/pkg/errors"
//
//	// Create a simple error
//	err := errors.New(errors.ErrCodeAlreadyVerified, "email already verified")
//
//	// Wrap a storage failure
//	err := errors.StoreUnavailable(dbErr)
//
//	// Validation
//	err := errors.InvalidInput("email", "invalid format")
//
// # Error Inspection
//
//	if errors.IsCode(err, errors.ErrCodeTokenExpired) {
//		// ask the client to refresh
//	}
//
// # HTTP Status Code Mapping
//
//   - ErrCodeInvalidInput, ErrCodeInvalidVerificationCode → 400 Bad Request
//   - ErrCodeInvalidCredentials, ErrCodeUnauthenticated, ErrCodeTokenExpired, ErrCodeTokenMalformed → 401 Unauthorized
//   - ErrCodeIdentityNotFound → 404 Not Found
//   - ErrCodeDuplicateIdentity, ErrCodeAlreadyVerified → 409 Conflict
//   - ErrCodeVerificationCodeExpired → 410 Gone
//   - ErrCodeEmailDeliveryFailed → 502 Bad Gateway
//   - ErrCodeStoreUnavailable → 503 Service Unavailable
//   - ErrCodeInternal → 500 Internal Server Error
package errors
