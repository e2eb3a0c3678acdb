package app

import (
	"errors"
	"fmt"

	"order-engine/internal/core"
)

// ErrForbidden is returned when the acting user's role does not allow an action.
var ErrForbidden = errors.New("forbidden")

// Actor identifies who is calling a mutating operation.
type Actor struct {
	UserID int
	Role   core.Role
}

// SystemActor is used by local tooling (CLI, seeding) that runs with full rights and no user.
var SystemActor = Actor{Role: core.RoleAdmin}

// id returns the user ID for audit columns, or nil for the system actor.
func (a Actor) id() *int {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

// Action names a permission-checked operation.
type Action string

const (
	ActionCreateOrder     Action = "order.create"
	ActionApproveOrder    Action = "order.approve"
	ActionRejectOrder     Action = "order.reject"
	ActionFulfillOrder    Action = "order.fulfill"
	ActionManageCredit    Action = "customer.credit"
	ActionManageCustomers Action = "customer.manage"
	ActionManageFormulas  Action = "formula.manage"
	ActionManageProducts  Action = "product.manage"
	ActionReceiveStock    Action = "stock.receive"
	ActionManageSettings  Action = "settings.manage"
)

// Authorizer decides whether actor may perform action.
type Authorizer interface {
	Authorize(actor Actor, action Action) error
}

// RoleAuthorizer grants actions per role. Admins may do everything.
type RoleAuthorizer map[core.Role][]Action

// DefaultRoleAuthorizer returns the standard role matrix:
//
//	manager    approve, reject, credit, customers, formulas, products, create, fulfill
//	sales      create, customers
//	warehouse  fulfill, receive stock
func DefaultRoleAuthorizer() RoleAuthorizer {
	return RoleAuthorizer{
		core.RoleManager: {
			ActionCreateOrder, ActionApproveOrder, ActionRejectOrder, ActionFulfillOrder,
			ActionManageCredit, ActionManageCustomers, ActionManageFormulas, ActionManageProducts,
		},
		core.RoleSales:     {ActionCreateOrder, ActionManageCustomers},
		core.RoleWarehouse: {ActionFulfillOrder, ActionReceiveStock},
	}
}

func (a RoleAuthorizer) Authorize(actor Actor, action Action) error {
	if actor.Role == core.RoleAdmin {
		return nil
	}
	for _, allowed := range a[actor.Role] {
		if allowed == action {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q may not %s", ErrForbidden, actor.Role, action)
}
