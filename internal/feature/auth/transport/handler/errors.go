package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cuecards_backend/internal/feature/auth/domain"
	"cuecards_backend/internal/feature/auth/transport/http/dto"
)

// codeBadRequest marks a body that failed binding, before any domain logic ran.
const codeBadRequest = "BAD_REQUEST"

var kindStatus = map[domain.Kind]int{
	domain.KindUnauthorized:          http.StatusUnauthorized,
	domain.KindInvalidCredentials:    http.StatusUnauthorized,
	domain.KindUnconfirmedEmail:      http.StatusForbidden,
	domain.KindDuplicateEmail:        http.StatusConflict,
	domain.KindPasswordReused:        http.StatusBadRequest,
	domain.KindInvalidPasswordFormat: http.StatusBadRequest,
	domain.KindInvalidCode:           http.StatusBadRequest,
	domain.KindInternal:              http.StatusInternalServerError,
}

// kindMessage is the public text per kind. Wrapped details stay in the logs.
var kindMessage = map[domain.Kind]string{
	domain.KindUnauthorized:          domain.ErrUnauthorized.Error(),
	domain.KindInvalidCredentials:    "invalid email or password",
	domain.KindUnconfirmedEmail:      domain.ErrUnconfirmedEmail.Error(),
	domain.KindDuplicateEmail:        domain.ErrDuplicateEmail.Error(),
	domain.KindPasswordReused:        domain.ErrPasswordReused.Error(),
	domain.KindInvalidPasswordFormat: domain.ErrInvalidPasswordFormat.Error(),
	domain.KindInvalidCode:           domain.ErrInvalidCode.Error(),
	domain.KindInternal:              domain.ErrInternal.Error(),
}

// StatusOf maps err to an HTTP status via its domain kind.
func StatusOf(err error) int {
	return kindStatus[domain.KindOf(err)]
}

// writeError aborts the request with the status and body for err.
func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	c.AbortWithStatusJSON(kindStatus[kind], dto.ErrorRes{Error: kindMessage[kind], Code: string(kind)})
}

// writeBindError aborts with 400 for a body that failed validation.
func writeBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorRes{Error: err.Error(), Code: codeBadRequest})
}
