// Package roster caches the chat participants seen on a connection, keyed
// by user id. Join and leave notifications are driven off cache
// transitions so a chat message racing a join event never produces a
// duplicate join.
package roster

import (
	"github.com/lumastream/chat-client/internal/domain"
)

// Roster is the id-keyed participant cache. Not safe for concurrent use;
// the session event loop owns it.
type Roster struct {
	users map[int64]*domain.User
}

func New() *Roster {
	return &Roster{users: make(map[int64]*domain.User)}
}

// Find returns the cached user, if present.
func (r *Roster) Find(id int64) (*domain.User, bool) {
	u, ok := r.users[id]
	return u, ok
}

// GetOrCreate returns the cached user for id, inserting a new record when
// absent. The second result reports whether an insert happened; a join
// notification is only warranted on insertion.
func (r *Roster) GetOrCreate(id int64, name string) (*domain.User, bool) {
	if u, ok := r.users[id]; ok {
		return u, false
	}
	u := domain.NewUser(id, name)
	r.users[id] = u
	return u, true
}

// Remove deletes and returns the cached user. The second result reports
// whether the user was present; a leave notification is only warranted
// when it was.
func (r *Roster) Remove(id int64) (*domain.User, bool) {
	u, ok := r.users[id]
	if ok {
		delete(r.users, id)
	}
	return u, ok
}

// Len returns the number of cached participants.
func (r *Roster) Len() int {
	return len(r.users)
}
