package model

import "github.com/shopspring/decimal"

// Role represents the role of an agent account in the reminder platform.
type Role string

const (
	// RoleAgent is a regular agent managing their own customers.
	RoleAgent Role = "agent"
	// RoleAgentAdmin manages a team of agents within one company.
	RoleAgentAdmin Role = "agent_admin"
	// RoleSupport is platform support staff.
	RoleSupport Role = "support"
	// RoleAdmin is a platform administrator.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin has every platform permission.
	RoleSuperAdmin Role = "super_admin"
)

// IsAdmin reports whether the role grants access to the admin panels.
// Only admin and super_admin qualify; agent_admin is a team role, not a platform one.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleAgentAdmin, RoleSupport, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// AgentSettings holds per-account billing settings.
type AgentSettings struct {
	PerMessageCost decimal.Decimal `json:"per_message_cost"`
}

// Agent is the authenticated user's profile as returned by the API.
type Agent struct {
	ID            FlexibleID      `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Mobile        string          `json:"mobile"`
	Role          Role            `json:"role"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	CompanyName   string          `json:"company_name"`
	Settings      AgentSettings   `json:"settings"`
}

// IsAdmin is derived from Role on every call.
func (a *Agent) IsAdmin() bool {
	return a != nil && a.Role.IsAdmin()
}

// DisplayName returns the name to greet the agent with, falling back to email.
func (a *Agent) DisplayName() string {
	if a == nil {
		return ""
	}
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

// Clone returns a copy that shares no mutable state with a.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
