package admin

import (
	"github.com/ayase-lite/ayase-lite/internal/authz"
	"github.com/ayase-lite/ayase-lite/internal/http/handlers/shared"
	"github.com/ayase-lite/ayase-lite/internal/http/response"

	"github.com/gin-gonic/gin"
)

type createUserRequest struct {
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required,min=8"`
	Notes    string   `json:"notes"`
	IsAdmin  bool     `json:"is_admin"`
	Roles    []string `json:"roles"`
}

// CreateUser 创建版务账号并赋予角色
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "username and a password of at least 8 characters are required")
		return
	}

	user, err := h.AuthService.CreateUser(c.Request.Context(), req.Username, req.Password, req.Notes, req.IsAdmin)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	if len(req.Roles) > 0 {
		if err := h.AuthzService.SetUserRoles(user.Username, req.Roles); err != nil {
			shared.RespondAppError(c, err)
			return
		}
	}
	response.Success(c, user)
}

// ListUsers 列出版务账号及其角色
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.AuthService.ListUsers(c.Request.Context())
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}

	type userWithRoles struct {
		User  interface{} `json:"user"`
		Roles []string    `json:"roles"`
	}
	out := make([]userWithRoles, 0, len(users))
	for i := range users {
		roles, err := h.AuthzService.GetUserRoles(users[i].Username)
		if err != nil {
			shared.RespondAppError(c, err)
			return
		}
		out = append(out, userWithRoles{User: &users[i], Roles: roles})
	}
	response.Success(c, out)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetUserActive 启用或停用账号
func (h *Handler) SetUserActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "active is required")
		return
	}
	if err := h.AuthService.SetUserActive(c.Request.Context(), c.Param("username"), *req.Active); err != nil {
		shared.RespondAppError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Updated user.", nil)
}

type setRolesRequest struct {
	Roles []string `json:"roles"`
}

// SetUserRoles 覆盖式设置账号角色
func (h *Handler) SetUserRoles(c *gin.Context) {
	var req setRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "roles must be a list")
		return
	}
	username := c.Param("username")

	user, err := h.AuthService.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}
	if err := h.AuthzService.SetUserRoles(username, req.Roles); err != nil {
		shared.RespondAppError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Updated user roles.", nil)
}

// ListRoles 列出角色及其权限集
func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}

	type roleWithPermissions struct {
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	out := make([]roleWithPermissions, 0, len(roles))
	for _, role := range roles {
		perms, err := h.AuthzService.GetRolePermissions(role)
		if err != nil {
			shared.RespondAppError(c, err)
			return
		}
		out = append(out, roleWithPermissions{Role: role, Permissions: perms})
	}
	response.Success(c, out)
}

type rolePermissionRequest struct {
	Permission string `json:"permission" binding:"required"`
}

// GrantRolePermission 给角色追加权限
func (h *Handler) GrantRolePermission(c *gin.Context) {
	var req rolePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "permission is required")
		return
	}
	role, err := authz.NormalizeRole(c.Param("role"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.AuthzService.GrantRolePermission(role, req.Permission); err != nil {
		shared.RespondAppError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Granted permission.", nil)
}

// RevokeRolePermission 移除角色权限
func (h *Handler) RevokeRolePermission(c *gin.Context) {
	var req rolePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "permission is required")
		return
	}
	role, err := authz.NormalizeRole(c.Param("role"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.AuthzService.RevokeRolePermission(role, req.Permission); err != nil {
		shared.RespondAppError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Revoked permission.", nil)
}
