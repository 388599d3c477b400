package entity

import "time"

// TokenType tags a bearer token with its intended use.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	return t == TokenTypeAccess || t == TokenTypeRefresh
}

// TokenClaims is the decoded content of a verified token.
type TokenClaims struct {
	Subject           uint
	JTI               string
	Type              TokenType
	CredentialVersion int
	IssuedAt          time.Time
	ExpiresAt         time.Time
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Identity is the outcome of authenticating a request. Handlers receive it
// explicitly instead of reading it back from request state.
type Identity struct {
	UserID            uint
	JTI               string
	ExpiresAt         time.Time
	CredentialVersion int
}
