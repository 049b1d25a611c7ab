package model

// RoleAdmin is granted to every verified token.
const RoleAdmin = "ROLE_ADMIN"

// Identity is the principal established for one request. It is never persisted.
type Identity struct {
	Subject string
	Roles   []string
}

func (i *Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}
