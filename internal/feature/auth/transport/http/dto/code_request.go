package dto

// EmailReq is the body of endpoints that only need an address
// (resend confirmation, forgot password).
type EmailReq struct {
	Email string `json:"email" binding:"required,email"`
}

// ConfirmReq は/auth/confirmのリクエストボディです。
type ConfirmReq struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// ResetPasswordReq は/auth/password/resetのリクエストボディです。
type ResetPasswordReq struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePasswordReq is the body of PATCH /auth/password.
type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}
