package auth

// Action names an operation gated by the role ladder.
type Action string

const (
	ActionRegisterDevice  Action = "register_device"
	ActionListOwnDevices  Action = "list_own_devices"
	ActionListAllDevices  Action = "list_all_devices"
	ActionUpdateOwnDevice Action = "update_own_device"
	ActionReassignDevice  Action = "reassign_device"
	ActionDeleteDevice    Action = "delete_device"
	ActionSubmitData      Action = "submit_data"
	ActionReadAnyData     Action = "read_any_data"
	ActionGetUser         Action = "get_user"
	ActionListUsers       Action = "list_users"
	ActionChangeRole      Action = "change_role"
	ActionDeleteUser      Action = "delete_user"
	ActionReadAudit       Action = "read_audit"
)

// actionThresholds is the whole permission ladder. Each action is allowed
// for its role and everything above it.
var actionThresholds = map[Action]Role{
	ActionRegisterDevice:  RoleEngineer,
	ActionListOwnDevices:  RoleOperator,
	ActionListAllDevices:  RoleManager,
	ActionUpdateOwnDevice: RoleManager,
	ActionReassignDevice:  RoleOwner,
	ActionDeleteDevice:    RoleManager,
	ActionSubmitData:      RoleManager,
	ActionReadAnyData:     RoleManager,
	ActionGetUser:         RoleManager,
	ActionListUsers:       RoleOwner,
	ActionChangeRole:      RoleOwner,
	ActionDeleteUser:      RoleOwner,
	ActionReadAudit:       RoleOwner,
}

// Allowed reports whether role meets the threshold for action. Unknown
// actions are denied.
func Allowed(role Role, action Action) bool {
	required, ok := actionThresholds[action]
	if !ok {
		return false
	}
	return RoleAtLeast(role, required)
}

// Actor is the acting user as seen by the decision functions.
type Actor struct {
	ID   string
	Role Role
}

// CanRegisterDevice reports whether role may register a device (engineer or above).
func CanRegisterDevice(role Role) bool { return Allowed(role, ActionRegisterDevice) }

// CanListOwnDevices reports whether role may list its own devices.
func CanListOwnDevices(role Role) bool { return Allowed(role, ActionListOwnDevices) }

// CanListAllDevices reports whether role may list every device (manager or above).
func CanListAllDevices(role Role) bool { return Allowed(role, ActionListAllDevices) }

// CanDeleteDevice reports whether role may delete any device (manager or above).
func CanDeleteDevice(role Role) bool { return Allowed(role, ActionDeleteDevice) }

// CanGetUser reports whether role may look up another user (manager or above).
func CanGetUser(role Role) bool { return Allowed(role, ActionGetUser) }

// CanListUsers reports whether role may list all users. Owner only.
func CanListUsers(role Role) bool { return Allowed(role, ActionListUsers) }

// CanChangeRole reports whether role may change a user's role. Owner only.
func CanChangeRole(role Role) bool { return Allowed(role, ActionChangeRole) }

// CanDeleteUser reports whether role may delete a user. Owner only.
func CanDeleteUser(role Role) bool { return Allowed(role, ActionDeleteUser) }

// CanReadAudit reports whether role may read the audit trail. Owner only.
func CanReadAudit(role Role) bool { return Allowed(role, ActionReadAudit) }

// UpdatePath is the outcome of DecideDeviceUpdate.
type UpdatePath int

const (
	UpdateDenied UpdatePath = iota
	// UpdateOwnerPath edits name and location; the owner stays.
	UpdateOwnerPath
	// UpdateAdminPath edits name and location and reassigns the owner.
	UpdateAdminPath
)

func (p UpdatePath) String() string {
	switch p {
	case UpdateOwnerPath:
		return "owner"
	case UpdateAdminPath:
		return "admin"
	default:
		return "denied"
	}
}

// DecideDeviceUpdate picks the update path for actor against a device
// owned by ownerID. Owner-role actors always take the admin path, even on
// their own devices.
func DecideDeviceUpdate(actor Actor, ownerID string) UpdatePath {
	if Allowed(actor.Role, ActionReassignDevice) {
		return UpdateAdminPath
	}
	if actor.ID != "" && actor.ID == ownerID && Allowed(actor.Role, ActionUpdateOwnDevice) {
		return UpdateOwnerPath
	}
	return UpdateDenied
}

// CanSubmitData requires the actor to own the device and the device
// owner's current role to be Manager or above. ownerRole must be loaded
// fresh, not taken from the actor's session.
func CanSubmitData(actor Actor, ownerID string, ownerRole Role) bool {
	if actor.ID == "" || actor.ID != ownerID {
		return false
	}
	return Allowed(ownerRole, ActionSubmitData)
}

// CanReadData lets a device owner read their own readings at any role,
// and Manager or above read anyone's.
func CanReadData(actor Actor, ownerID string) bool {
	if actor.ID != "" && actor.ID == ownerID && actor.Role.Valid() {
		return true
	}
	return Allowed(actor.Role, ActionReadAnyData)
}
