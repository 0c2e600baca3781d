package services

import (
	"sort"

	"rbac-admin/models"
)

// PermissionSet 用户所有角色权限的并集，元素为 "resource:action"
type PermissionSet map[string]struct{}

// DerivePermissions 每次请求根据当前角色数据重新计算，不做缓存
func DerivePermissions(user *models.User) PermissionSet {
	set := PermissionSet{}
	if user == nil {
		return set
	}
	for _, ur := range user.UserRoles {
		for _, rp := range ur.Role.RolePermissions {
			set[rp.Permission.Key()] = struct{}{}
		}
	}
	return set
}

func (s PermissionSet) Has(permission string) bool {
	_, ok := s[permission]
	return ok
}

// Intersects 判断是否拥有任意一个所需权限
func (s PermissionSet) Intersects(required []string) bool {
	for _, p := range required {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// Slice 返回排序后的权限列表
func (s PermissionSet) Slice() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasAnyRole 判断用户是否拥有任意一个角色编码
func HasAnyRole(user *models.User, codes []string) bool {
	if user == nil {
		return false
	}
	for _, ur := range user.UserRoles {
		for _, code := range codes {
			if ur.Role.Code == code {
				return true
			}
		}
	}
	return false
}

type PermissionView struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

type RoleView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Code        string           `json:"code"`
	Permissions []PermissionView `json:"permissions"`
}

// UserView 对外公开的用户信息，不含密码
type UserView struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Nickname string     `json:"nickname"`
	Avatar   string     `json:"avatar"`
	Roles    []RoleView `json:"roles"`
}

func NewRoleView(role models.Role) RoleView {
	view := RoleView{
		ID:          role.ID,
		Name:        role.Name,
		Code:        role.Code,
		Permissions: make([]PermissionView, 0, len(role.RolePermissions)),
	}
	for _, p := range role.Permissions() {
		view.Permissions = append(view.Permissions, PermissionView{
			ID:       p.ID,
			Code:     p.Code,
			Resource: p.Resource,
			Action:   p.Action,
		})
	}
	return view
}

func NewUserView(user *models.User) UserView {
	view := UserView{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Nickname: user.Nickname,
		Avatar:   user.Avatar,
		Roles:    make([]RoleView, 0, len(user.UserRoles)),
	}
	for _, role := range user.Roles() {
		view.Roles = append(view.Roles, NewRoleView(role))
	}
	return view
}
