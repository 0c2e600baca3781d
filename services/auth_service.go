package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"rbac-admin/models"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Nickname string
}

// LoginResult 登录响应
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserView  `json:"user"`
}

// AuthService 凭据校验、令牌签发与身份解析
type AuthService struct {
	users           UserStore
	roles           RoleStore
	hasher          PasswordHasher
	tokens          *TokenIssuer
	defaultRoleCode string
	l               *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users UserStore, roles RoleStore, hasher PasswordHasher, tokens *TokenIssuer, defaultRoleCode string, l *zap.Logger) *AuthService {
	return &AuthService{
		users:           users,
		roles:           roles,
		hasher:          hasher,
		tokens:          tokens,
		defaultRoleCode: defaultRoleCode,
		l:               l,
	}
}

// ValidateCredentials 按用户名或邮箱查找用户并校验密码。
// 先校验密码再检查状态，密码错误时不暴露账号是否被禁用
func (s *AuthService) ValidateCredentials(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// 用户不存在时同样做一次哈希比较，响应时间不暴露用户名是否存在
		_, _ = s.hasher.Compare(s.dummyPasswordHash(), password)
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Compare(user.Password, password)
	if err != nil {
		s.l.Warn("password hash comparison failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, ErrAccountDisabled
	}

	user.Password = ""
	return user, nil
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hashed, err := s.hasher.Hash("rbac-admin-dummy-password")
		if err != nil {
			s.l.Warn("failed to create dummy password hash", zap.Error(err))
			return
		}
		s.dummyHash = hashed
	})
	return s.dummyHash
}

// IssueToken 为用户签发令牌，并返回可公开的用户信息
func (s *AuthService) IssueToken(user *models.User) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        NewUserView(user),
	}, nil
}

func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := s.ValidateCredentials(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	result, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	// 更新最后登录时间，失败不影响登录
	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.l.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return result, nil
}

// ResolveIdentity 根据令牌中的 subject 重新加载用户及其角色权限，
// 禁用或删除的用户即使持有未过期令牌也会被拒绝
func (s *AuthService) ResolveIdentity(ctx context.Context, claims *Claims) (*models.User, error) {
	if claims == nil || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return s.resolve(ctx, claims.Subject)
}

func (s *AuthService) resolve(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive() {
		return nil, ErrUserUnavailable
	}

	user.Password = ""
	return user, nil
}

// Authenticate 校验令牌并解析身份
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	return s.ResolveIdentity(ctx, claims)
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*UserView, error) {
	user, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := NewUserView(user)
	return &view, nil
}

// Register 注册新用户，用户名或邮箱任一重复即失败
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, ErrInvalidInput
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrConflict
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	nickname := in.Nickname
	if nickname == "" {
		nickname = in.Username
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: hashed,
		Nickname: nickname,
		Status:   models.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.defaultRoleCode != "" {
		if err := s.assignDefaultRole(ctx, user.ID); err != nil {
			s.l.Warn("failed to assign default role", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	user.Password = ""
	return user, nil
}

func (s *AuthService) assignDefaultRole(ctx context.Context, userID string) error {
	roles, err := s.roles.FindByCodes(ctx, []string{s.defaultRoleCode})
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		return nil
	}
	return s.users.SetRoles(ctx, userID, []string{roles[0].ID})
}
