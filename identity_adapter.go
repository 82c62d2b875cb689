package auth

// UserIdentity adapts a User record to the Identity interface used by the
// token minter.
type UserIdentity struct {
	id    string
	name  string
	email string
	role  string
}

// NewUserIdentity wraps a user record.
func NewUserIdentity(user *User) UserIdentity {
	return UserIdentity{
		id:    user.ID.String(),
		name:  user.Name,
		email: user.Email,
		role:  user.Role,
	}
}

func (u UserIdentity) ID() string    { return u.id }
func (u UserIdentity) Name() string  { return u.name }
func (u UserIdentity) Email() string { return u.email }
func (u UserIdentity) Role() string  { return u.role }
