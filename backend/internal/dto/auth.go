package dto

// LoginRequest 邮箱 + 密码登录；remember_me 延长 refresh_token 有效期
type LoginRequest struct {
	Email      string `json:"email"       binding:"required,email,max=254"`
	Password   string `json:"password"    binding:"required,max=128"`
	RememberMe bool   `json:"remember_me"`
}

// RefreshTokenRequest 请求体可省略，此时从 HttpOnly Cookie 读取
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest 新密码不得与原密码相同
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72,nefield=OldPassword"`
}

// TokenType OAuth2 风格的令牌类型
const TokenType = "Bearer"

// TokenResponse 登录与刷新返回的令牌对
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"` // access_token 有效期（秒）
	Account      AccountResponse `json:"account"`
}
