package app

import (
	"errors"
	"testing"

	"order-engine/internal/core"
)

func TestRoleAuthorizer(t *testing.T) {
	authz := DefaultRoleAuthorizer()

	tests := []struct {
		role   core.Role
		action Action
		allow  bool
	}{
		{core.RoleAdmin, ActionManageSettings, true},
		{core.RoleManager, ActionApproveOrder, true},
		{core.RoleManager, ActionManageCredit, true},
		{core.RoleManager, ActionManageSettings, false},
		{core.RoleManager, ActionManageProducts, true},
		{core.RoleSales, ActionManageProducts, false},
		{core.RoleSales, ActionCreateOrder, true},
		{core.RoleSales, ActionApproveOrder, false},
		{core.RoleSales, ActionManageCredit, false},
		{core.RoleWarehouse, ActionFulfillOrder, true},
		{core.RoleWarehouse, ActionReceiveStock, true},
		{core.RoleWarehouse, ActionCreateOrder, false},
		{"", ActionCreateOrder, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.action), func(t *testing.T) {
			err := authz.Authorize(Actor{UserID: 1, Role: tt.role}, tt.action)
			if tt.allow && err != nil {
				t.Errorf("expected allowed, got %v", err)
			}
			if !tt.allow && !errors.Is(err, ErrForbidden) {
				t.Errorf("expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestActorID(t *testing.T) {
	if SystemActor.id() != nil {
		t.Error("system actor should have no user id")
	}
	got := Actor{UserID: 42, Role: core.RoleSales}.id()
	if got == nil || *got != 42 {
		t.Errorf("id() = %v, want 42", got)
	}
}
