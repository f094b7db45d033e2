package models

import "time"

// Role is the role a connection registers with.
type Role string

const (
	RoleSecurity   Role = "security"
	RoleManagement Role = "management"
	RoleUser       Role = "user"
)

// Broadcast group names
const (
	GroupSecurity   = "security-channel"
	GroupManagement = "management-channel"
)

// Group returns the broadcast group a role joins on registration.
func (r Role) Group() (string, bool) {
	switch r {
	case RoleSecurity:
		return GroupSecurity, true
	case RoleManagement:
		return GroupManagement, true
	}
	return "", false
}

// Channels lists the channels reported back in the registered event.
// Plain users are told about both channels even though they join neither.
func (r Role) Channels() []string {
	if r == RoleUser {
		return []string{string(RoleSecurity), string(RoleManagement)}
	}
	return []string{string(r)}
}

// ChannelGroup maps a channel name used in ptt and chat payloads to its
// broadcast group.
func ChannelGroup(channel string) (string, bool) {
	return Role(channel).Group()
}

// User is a registered connection.
type User struct {
	SocketID    string         `json:"socketId"`
	Role        Role           `json:"role"`
	Name        string         `json:"name"`
	Extra       map[string]any `json:"extra,omitempty"`
	ConnectedAt time.Time      `json:"connectedAt"`
}
