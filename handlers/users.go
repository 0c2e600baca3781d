package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rbac-admin/middleware"
	"rbac-admin/services"
)

type AssignRolesRequest struct {
	RoleCodes []string `json:"role_codes"`
}

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	return services.NormalizePage(page, limit)
}

// CreateUser 创建用户
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	view, err := h.users.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "用户创建成功", view)
}

// ListUsers 用户列表
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)

	result, err := h.users.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", result)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	view, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", view)
}

// UpdateUser 部分更新用户
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req services.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	view, err := h.users.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "用户更新成功", view)
}

// DeleteUser 删除用户，不能删除自己
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if current := middleware.CurrentUser(c); current != nil && current.ID == id {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"code":    services.ErrInvalidInput.Kind,
			"message": "不能删除当前登录用户",
		})
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "用户删除成功", nil)
}

// AssignRoles 整体替换用户角色
func (h *UserHandler) AssignRoles(c *gin.Context) {
	var req AssignRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	view, err := h.users.AssignRoles(c.Request.Context(), c.Param("id"), req.RoleCodes)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "角色分配成功", view)
}

// ListRoles 角色及权限列表
func (h *UserHandler) ListRoles(c *gin.Context) {
	roles, err := h.users.ListRoles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", roles)
}
