package authz

import (
	"fmt"

	"github.com/bazar-next/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 市场三类角色的预置策略矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleCustomer,
			Policies: []Policy{
				{Object: "/cart", Action: "*"},
				{Object: "/cart/:product_id", Action: "DELETE"},
				{Object: "/orders", Action: "*"},
				{Object: "/orders/:id", Action: "GET"},
				{Object: "/orders/:id/cancel", Action: "POST"},
				{Object: "/orders/:id/qr", Action: "GET"},
				{Object: "/returns", Action: "*"},
				{Object: "/returns/:id", Action: "GET"},
				{Object: "/returns/scan", Action: "POST"},
			},
		},
		{
			Role: constants.RoleSeller,
			Policies: []Policy{
				{Object: "/seller/orders", Action: "GET"},
				{Object: "/seller/orders/:id/status", Action: "PATCH"},
				{Object: "/seller/orders/:id/courier", Action: "POST"},
				{Object: "/seller/returns", Action: "GET"},
				{Object: "/seller/returns/:id", Action: "GET"},
				{Object: "/seller/returns/:id/approve", Action: "POST"},
				{Object: "/seller/returns/:id/reject", Action: "POST"},
				{Object: "/seller/returns/:id/condition", Action: "POST"},
				{Object: "/seller/returns/:id/status", Action: "PATCH"},
				{Object: "/returns/scan", Action: "POST"},
			},
		},
		{
			Role: constants.RoleCourier,
			Policies: []Policy{
				{Object: "/courier/orders", Action: "GET"},
				{Object: "/courier/orders/:id/status", Action: "PATCH"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
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

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}

// AssignRole 把用户挂到单一内置角色（注册/种子数据用）
func (s *Service) AssignRole(userID uint, role string) error {
	return s.SetUserRoles(userID, []string{role})
}
