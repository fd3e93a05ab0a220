package auth

import "errors"

// Token validation failures. The API maps all of them to 401; only
// ErrExpiredToken gets its own message so clients know to fetch a new token.
var (
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
	ErrMissingToken     = errors.New("authentication token is missing")

	// ErrWrongTokenType is a correctly signed token that is not an access token.
	ErrWrongTokenType = errors.New("authentication token has the wrong type")
)

// ErrMissingOperator is returned when a token is requested for the nil
// operator id. Every job records the operator that created it.
var ErrMissingOperator = errors.New("operator id is required")
