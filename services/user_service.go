package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rbac-admin/models"
)

type CreateUserInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// UpdateUserInput 为 nil 的字段不更新
type UpdateUserInput struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
	Status   *string `json:"status"`
}

// Page 分页结果
type Page struct {
	Data       []UserView `json:"data"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// NormalizePage 修正非法的分页参数
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	return int((total + int64(limit) - 1) / int64(limit))
}

// UserService 用户管理
type UserService struct {
	users  UserStore
	roles  RoleStore
	hasher PasswordHasher
	l      *zap.Logger
}

func NewUserService(users UserStore, roles RoleStore, hasher PasswordHasher, l *zap.Logger) *UserService {
	return &UserService{users: users, roles: roles, hasher: hasher, l: l}
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*UserView, error) {
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
		Avatar:   in.Avatar,
		Status:   models.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.l.Info("user created", zap.String("user_id", user.ID), zap.String("username", user.Username))
	view := NewUserView(user)
	return &view, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*UserView, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	view := NewUserView(user)
	return &view, nil
}

func (s *UserService) List(ctx context.Context, page, limit int) (*Page, error) {
	page, limit = NormalizePage(page, limit)

	users, total, err := s.users.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, NewUserView(&users[i]))
	}

	return &Page{
		Data:       views,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// Update 部分更新，修改密码时重新哈希
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*UserView, error) {
	updates := map[string]interface{}{}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, ErrInvalidInput
		}
		taken, err := s.users.ExistsByEmailExcept(ctx, email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrConflict
		}
		updates["email"] = email
	}
	if in.Nickname != nil {
		updates["nickname"] = *in.Nickname
	}
	if in.Avatar != nil {
		updates["avatar"] = *in.Avatar
	}
	if in.Status != nil {
		switch *in.Status {
		case models.UserStatusActive, models.UserStatusDisabled:
			updates["status"] = *in.Status
		default:
			return nil, ErrInvalidInput
		}
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, ErrInvalidInput
		}
		hashed, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updates["password"] = hashed
	}

	if len(updates) > 0 {
		if err := s.users.Update(ctx, id, updates); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.l.Info("user deleted", zap.String("user_id", id))
	return nil
}

// AssignRoles 按角色编码整体替换用户角色，任一编码不存在则失败
func (s *UserService) AssignRoles(ctx context.Context, id string, codes []string) (*UserView, error) {
	roles, err := s.roles.FindByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	if len(roles) != len(uniqueStrings(codes)) {
		return nil, ErrRoleNotFound
	}

	ids := make([]string, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	if err := s.users.SetRoles(ctx, id, ids); err != nil {
		return nil, err
	}

	s.l.Info("user roles assigned", zap.String("user_id", id), zap.Strings("roles", codes))
	return s.Get(ctx, id)
}

// ListRoles 返回所有角色及其权限
func (s *UserService) ListRoles(ctx context.Context) ([]RoleView, error) {
	roles, err := s.roles.ListWithPermissions(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]RoleView, 0, len(roles))
	for _, r := range roles {
		views = append(views, NewRoleView(r))
	}
	return views, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
