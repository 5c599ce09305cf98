package domain

// User is a chat participant seen in a room. Identity is the numeric id
// assigned by the platform; Name and Level may be refreshed in place as
// later events report them.
type User struct {
	ID    int64
	Name  string
	Level int
}

func NewUser(id int64, name string) *User {
	return &User{ID: id, Name: name}
}
