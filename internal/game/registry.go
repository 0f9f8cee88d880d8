// internal/game/registry.go
//
// In-memory registry of connected participants and their seats.
//
// Characteristics:
//   - Fills player1, then player2, then observer; assignment is idempotent.
//   - Releasing a seat frees it for the next connection.
//   - NOT self-locking: the registry is owned exclusively by the Coordinator
//     and every call happens under the Coordinator's mutex. It never touches
//     the network.

package game

// Registry tracks which participant holds which role.
type Registry struct {
	roles map[string]Role
	seats [2]string // seat index -> participant id ("" if empty)
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{roles: make(map[string]Role)}
}

// Assign gives id a role, filling player1 first, then player2, then observer.
// If id is already registered its existing role is returned unchanged.
func (r *Registry) Assign(id string) Role {
	if role, ok := r.roles[id]; ok {
		return role
	}
	switch {
	case r.seats[0] == "":
		r.seats[0] = id
		r.roles[id] = RolePlayer1
	case r.seats[1] == "":
		r.seats[1] = id
		r.roles[id] = RolePlayer2
	default:
		r.roles[id] = RoleObserver
	}
	return r.roles[id]
}

// Release removes id from the table, freeing its seat if it held one.
// Returns the released role and whether id was registered at all.
func (r *Registry) Release(id string) (Role, bool) {
	role, ok := r.roles[id]
	if !ok {
		return "", false
	}
	delete(r.roles, id)
	for i := range r.seats {
		if r.seats[i] == id {
			r.seats[i] = ""
		}
	}
	return role, true
}

// RoleOf reports the role currently held by id.
func (r *Registry) RoleOf(id string) (Role, bool) {
	role, ok := r.roles[id]
	return role, ok
}

// ActiveCount returns how many seats are occupied (0, 1 or 2).
func (r *Registry) ActiveCount() int {
	n := 0
	for _, id := range r.seats {
		if id != "" {
			n++
		}
	}
	return n
}

// SlotHolders returns the seated players in seat order (player1 first).
// Empty seats are skipped.
func (r *Registry) SlotHolders() []Player {
	out := make([]Player, 0, 2)
	for _, id := range r.seats {
		if id != "" {
			out = append(out, Player{ID: id, Role: r.roles[id]})
		}
	}
	return out
}

// Snapshot returns a copy of the full role table.
func (r *Registry) Snapshot() map[string]Role {
	out := make(map[string]Role, len(r.roles))
	for id, role := range r.roles {
		out[id] = role
	}
	return out
}

// Clear empties the table and both seats.
func (r *Registry) Clear() {
	r.roles = make(map[string]Role)
	r.seats[0], r.seats[1] = "", ""
}
