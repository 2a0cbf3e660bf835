// Package utils provides small stateless helpers shared by the HTTP handles:
// client address extraction, email masking for logs and secure random tokens.
package utils
