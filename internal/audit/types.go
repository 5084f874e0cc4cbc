package audit

import "time"

// Actions recorded by the API.
const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionPasswordChange = "password_change"
	ActionRoleChange     = "role_change"
	ActionCreate         = "create"
	ActionUpdate         = "update"
	ActionDelete         = "delete"
)

// Entity types.
const (
	EntityUser   = "user"
	EntityDevice = "device"
)

// Entry is a single audit trail record.
type Entry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Source     string         `json:"source"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	UserID     string
	Limit      int // default 50, max 200
	Offset     int
}

// Page is one page of entries plus the unpaginated total.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}
