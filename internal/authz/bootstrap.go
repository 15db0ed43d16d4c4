package authz

import (
	"fmt"

	"github.com/ayase-lite/ayase-lite/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role        string
	Inherits    []string
	Permissions []string
	Immutable   bool
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "janitor",
			Permissions: []string{
				constants.PermReportClose,
				constants.PermReportOpen,
				constants.PermReportSaveNotes,
				constants.PermPostHide,
				constants.PermPostShow,
				constants.PermMediaHide,
				constants.PermMediaShow,
			},
			Immutable: true,
		},
		{
			Role:     "moderator",
			Inherits: []string{"janitor"},
			Permissions: []string{
				constants.PermReportDelete,
				constants.PermPostDelete,
				constants.PermMediaDelete,
			},
			Immutable: true,
		},
		{
			Role:        "admin",
			Permissions: []string{"*"},
			Immutable:   true,
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认权限
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}

		exists, err := s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
		if err != nil {
			return fmt.Errorf("check builtin role failed: %w", err)
		}
		if !exists {
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor); err != nil {
				return fmt.Errorf("create builtin role failed: %w", err)
			}
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, permission := range seed.Permissions {
			normalized := NormalizePermission(permission)
			if normalized == "" {
				return fmt.Errorf("builtin permission is required")
			}
			if _, err := s.enforcer.AddPolicy(role, normalized); err != nil {
				return fmt.Errorf("add builtin permission failed: %w", err)
			}
		}
	}
	return nil
}
