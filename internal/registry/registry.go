// Package registry tracks which connections registered under which role.
package registry

import (
	"sync"

	"github.com/mossy-p/ptt-signaling/internal/models"
)

// Registry holds the security and management membership lists plus every
// registered user keyed by connection id. Role lists keep registration order.
type Registry struct {
	mu         sync.RWMutex
	security   []string
	management []string
	users      map[string]*models.User
}

func New() *Registry {
	return &Registry{
		users: make(map[string]*models.User),
	}
}

// Register stores user under its socket id. A connection registering again
// replaces its previous registration, which is returned.
func (r *Registry) Register(user *models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.removeLocked(user.SocketID)
	r.users[user.SocketID] = user
	if list := r.listLocked(user.Role); list != nil {
		*list = append(*list, user.SocketID)
	}
	return previous
}

// Unregister drops the connection and returns the user it was registered as.
func (r *Registry) Unregister(socketID string) (*models.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.removeLocked(socketID)
	return user, user != nil
}

func (r *Registry) removeLocked(socketID string) *models.User {
	user, ok := r.users[socketID]
	if !ok {
		return nil
	}
	delete(r.users, socketID)

	if list := r.listLocked(user.Role); list != nil {
		filtered := (*list)[:0]
		for _, id := range *list {
			if id != socketID {
				filtered = append(filtered, id)
			}
		}
		*list = filtered
	}
	return user
}

func (r *Registry) listLocked(role models.Role) *[]string {
	switch role {
	case models.RoleSecurity:
		return &r.security
	case models.RoleManagement:
		return &r.management
	}
	return nil
}

// Lookup returns the user registered on socketID.
func (r *Registry) Lookup(socketID string) (*models.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[socketID]
	return user, ok
}

// Count returns the length of the role's membership list. Roles without a
// list always count zero.
func (r *Registry) Count(role models.Role) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if list := r.listLocked(role); list != nil {
		return len(*list)
	}
	return 0
}

// Members returns a copy of the role's membership list.
func (r *Registry) Members(role models.Role) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.listLocked(role)
	if list == nil {
		return nil
	}
	return append([]string(nil), (*list)...)
}

func (r *Registry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Snapshot returns the counters served by the status endpoint.
func (r *Registry) Snapshot() models.StatusResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.StatusResponse{
		Status:     "online",
		Security:   len(r.security),
		Management: len(r.management),
		Total:      len(r.users),
	}
}
