// Package dto はauthフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

// SignupReq は/auth/registerエンドポイントのリクエストボディを表します。
// パスワード形式はユースケース側で検証します。
type SignupReq struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Nickname string `json:"nickname" binding:"required,max=150"`
	Password string `json:"password" binding:"required"`
}

// SignupRes is returned after a successful registration.
type SignupRes struct {
	ID uint `json:"id"`
}
