package jwtmw

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cuecards_backend/internal/feature/auth/domain"
	"cuecards_backend/internal/feature/auth/domain/entity"
	"cuecards_backend/internal/feature/auth/usecase"
)

// Authenticator resolves the identity behind an Authorization header value.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (entity.Identity, error)
}

// AuthenticatedHandler is a Gin handler that receives the resolved identity
// as an argument.
type AuthenticatedHandler func(c *gin.Context, identity entity.Identity)

// Middleware guards routes that require a valid access token.
type Middleware struct {
	auth Authenticator
}

// NewMiddleware creates a Middleware backed by auth.
func NewMiddleware(auth Authenticator) *Middleware {
	return &Middleware{auth: auth}
}

// Require returns a Gin handler that authenticates the request and passes the
// identity to next. Requests without a well-formed bearer header are rejected
// before any token parsing.
func (m *Middleware) Require(next AuthenticatedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Authorizationヘッダーを検証
		header := c.GetHeader("Authorization")
		if _, ok := usecase.BearerToken(header); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token", "code": domain.KindUnauthorized})
			return
		}

		// 2. 署名・失効・バージョンを検証
		identity, err := m.auth.Authenticate(c.Request.Context(), header)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": domain.KindUnauthorized})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": domain.KindInternal})
			return
		}

		// 3. 認証済みハンドラーへ
		next(c, identity)
	}
}
