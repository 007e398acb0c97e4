package security

// AccessTokenVerifier checks a bearer token and returns its claims.
type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (TokenClaims, error)
}
