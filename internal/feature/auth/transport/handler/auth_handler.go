// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cuecards_backend/internal/feature/auth/domain/entity"
	"cuecards_backend/internal/feature/auth/transport/http/dto"
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	Register(ctx context.Context, email, nickname, password string) (uint, error)
	ResendConfirmation(ctx context.Context, email string) error
	ConfirmEmail(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (entity.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (entity.TokenPair, error)
	Logout(ctx context.Context, identity entity.Identity, refreshToken string) error
	ChangePassword(ctx context.Context, identity entity.Identity, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Me(ctx context.Context, identity entity.Identity) (*entity.User, error)
	UpdateProfile(ctx context.Context, identity entity.Identity, nickname, avatar *string) (*entity.User, error)
	DeleteAccount(ctx context.Context, identity entity.Identity) error
}

var errBlankNickname = errors.New("nickname must not be blank")

// AuthHandler は認証操作のHTTPリクエストを処理します。
type AuthHandler struct {
	auth   AuthUsecase
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger, now: time.Now}
}

// bind decodes the JSON body into req and writes a 400 on failure.
func (h *AuthHandler) bind(c *gin.Context, req any, op string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn(op+" validation failed", "error", err, "remote_addr", c.ClientIP())
		writeBindError(c, err)
		return false
	}
	return true
}

// fail logs a usecase error and writes the mapped response.
func (h *AuthHandler) fail(c *gin.Context, op string, err error, args ...any) {
	level := slog.LevelWarn
	if StatusOf(err) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(c.Request.Context(), level, op+" failed", append(args, "error", err, "remote_addr", c.ClientIP())...)
	writeError(c, err)
}

func (h *AuthHandler) tokenResponse(pair entity.TokenPair) dto.TokenRes {
	return dto.TokenRes{
		TokenType:        "Bearer",
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresIn:        int64(pair.AccessExpiresAt.Sub(h.now()).Seconds()),
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

// Register はユーザー登録APIエンドポイントを処理します。
// - 成功時は201とユーザーIDを返却
// - メール重複時は409を返却
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.SignupReq
	if !h.bind(c, &req, "register") {
		return
	}
	id, err := h.auth.Register(c.Request.Context(), req.Email, req.Nickname, req.Password)
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	h.logger.Info("user registered", "user_id", id, "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, dto.SignupRes{ID: id})
}

// ResendConfirmation は確認コードを再送します。アカウントの有無にかかわらず202を返します。
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	var req dto.EmailReq
	if !h.bind(c, &req, "resend confirmation") {
		return
	}
	if err := h.auth.ResendConfirmation(c.Request.Context(), req.Email); err != nil {
		h.fail(c, "resend confirmation", err)
		return
	}
	c.JSON(http.StatusAccepted, dto.MessageRes{Message: "ok"})
}

// ConfirmEmail は確認コードを消費してメールアドレスを確認済みにします。
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	var req dto.ConfirmReq
	if !h.bind(c, &req, "confirm email") {
		return
	}
	if err := h.auth.ConfirmEmail(c.Request.Context(), req.Email, req.Code); err != nil {
		h.fail(c, "confirm email", err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageRes{Message: "ok"})
}

// Login はユーザーログインAPIエンドポイントを処理します。
// - 認証失敗時は401、未確認メールは403を返却
// - 成功時はアクセストークンとリフレッシュトークンを返却
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if !h.bind(c, &req, "login") {
		return
	}
	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, h.tokenResponse(pair))
}

// Refresh rotates a refresh token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshReq
	if !h.bind(c, &req, "refresh") {
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, "refresh", err)
		return
	}
	c.JSON(http.StatusOK, h.tokenResponse(pair))
}

// ForgotPassword はリセットコードを送信します。未登録のメールでも202を返します。
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.EmailReq
	if !h.bind(c, &req, "forgot password") {
		return
	}
	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.fail(c, "forgot password", err)
		return
	}
	c.JSON(http.StatusAccepted, dto.MessageRes{Message: "ok"})
}

// ResetPassword sets a new password using a reset code.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordReq
	if !h.bind(c, &req, "reset password") {
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.fail(c, "reset password", err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageRes{Message: "ok"})
}

// Logout revokes the presented access token and, if sent, the refresh token.
// The body is optional.
func (h *AuthHandler) Logout(c *gin.Context, identity entity.Identity) {
	var req dto.LogoutReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBindError(c, err)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), identity, req.RefreshToken); err != nil {
		h.fail(c, "logout", err, "user_id", identity.UserID)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangePassword replaces the password of the authenticated user.
func (h *AuthHandler) ChangePassword(c *gin.Context, identity entity.Identity) {
	var req dto.ChangePasswordReq
	if !h.bind(c, &req, "change password") {
		return
	}
	err := h.auth.ChangePassword(c.Request.Context(), identity, req.OldPassword, req.NewPassword)
	if err != nil {
		h.fail(c, "change password", err, "user_id", identity.UserID)
		return
	}
	c.JSON(http.StatusOK, dto.MessageRes{Message: "ok"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context, identity entity.Identity) {
	user, err := h.auth.Me(c.Request.Context(), identity)
	if err != nil {
		h.fail(c, "me", err, "user_id", identity.UserID)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// UpdateProfile はニックネームとアバターを部分更新し、更新後のユーザーを返します。
func (h *AuthHandler) UpdateProfile(c *gin.Context, identity entity.Identity) {
	var req dto.UpdateProfileReq
	if !h.bind(c, &req, "update profile") {
		return
	}
	if req.Nickname != nil && strings.TrimSpace(*req.Nickname) == "" {
		writeBindError(c, errBlankNickname)
		return
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), identity, req.Nickname, req.Avatar)
	if err != nil {
		h.fail(c, "update profile", err, "user_id", identity.UserID)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

func userResponse(user *entity.User) dto.UserRes {
	return dto.UserRes{
		ID:        user.ID,
		Email:     user.Email,
		Nickname:  user.Nickname,
		Avatar:    user.Avatar,
		Confirmed: user.Confirmed,
		CreatedAt: user.CreatedAt,
	}
}

// DeleteAccount removes the authenticated user.
func (h *AuthHandler) DeleteAccount(c *gin.Context, identity entity.Identity) {
	if err := h.auth.DeleteAccount(c.Request.Context(), identity); err != nil {
		h.fail(c, "delete account", err, "user_id", identity.UserID)
		return
	}
	c.Status(http.StatusNoContent)
}
