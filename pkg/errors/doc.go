// Package errors provides structured error handling with error codes for legendboard.
//
// Every failure surfaced by the auth core belongs to one of six classes:
//
//   - Validation (400): missing or malformed input, reported field by field
//   - Credential (401): unauthenticated, bad password, bad or missing session
//   - Conflict (409): duplicate email or federated identity
//   - NotFound (404): used sparingly, most lookups collapse into Credential
//   - RateLimited (429): carries a retry hint
//   - Dependency (500): store, mail or provider failure, shown generically
//
// # Basic Usage
//
//	err := errors.New(errors.ErrCodeInvalidCredentials, "Email or password is incorrect")
//
//	if errors.IsCredential(err) {
//	    // 401
//	}
//
//	status := errors.From(err).HTTPStatusCode()
//
// Dependency and internal errors keep their cause for logging but
// PublicMessage hides it from callers.
package errors
