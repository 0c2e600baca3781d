package services

import (
	"errors"
	"net/http"
)

// AuthError 认证与授权失败，Kind 用于程序判断，Message 可直接返回给客户端
type AuthError struct {
	Kind    string
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Kind + ": " + e.Message
}

var (
	// 用户名不存在与密码错误使用同一个错误，避免枚举用户
	ErrInvalidCredentials = &AuthError{Kind: "invalid_credentials", Status: http.StatusUnauthorized, Message: "用户名或密码错误"}
	ErrAccountDisabled    = &AuthError{Kind: "account_disabled", Status: http.StatusUnauthorized, Message: "账号已被禁用"}
	ErrConflict           = &AuthError{Kind: "conflict", Status: http.StatusUnauthorized, Message: "用户名或邮箱已存在"}

	ErrMissingToken    = &AuthError{Kind: "missing_token", Status: http.StatusUnauthorized, Message: "未提供认证令牌"}
	ErrInvalidToken    = &AuthError{Kind: "invalid_token", Status: http.StatusUnauthorized, Message: "认证令牌无效"}
	ErrExpiredToken    = &AuthError{Kind: "expired_token", Status: http.StatusUnauthorized, Message: "认证令牌已过期"}
	ErrUserUnavailable = &AuthError{Kind: "user_unavailable", Status: http.StatusUnauthorized, Message: "用户不存在或已被禁用"}

	ErrInsufficientRole       = &AuthError{Kind: "insufficient_role", Status: http.StatusForbidden, Message: "角色权限不足"}
	ErrInsufficientPermission = &AuthError{Kind: "insufficient_permission", Status: http.StatusForbidden, Message: "权限不足"}

	ErrUserNotFound = &AuthError{Kind: "not_found", Status: http.StatusNotFound, Message: "用户不存在"}
	ErrRoleNotFound = &AuthError{Kind: "not_found", Status: http.StatusNotFound, Message: "角色不存在"}
	ErrInvalidInput = &AuthError{Kind: "invalid_input", Status: http.StatusBadRequest, Message: "请求参数错误"}
)

// AsAuthError 提取错误链中的 AuthError
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
