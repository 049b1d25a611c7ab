package model

import (
	"strings"
	"time"

	"cloudshare/internal/domain"
)

// Profile is the locally mirrored identity-provider user.
type Profile struct {
	ClerkID   string
	Email     string
	FirstName string
	LastName  string
	PhotoURL  string
	CreatedAt time.Time
}

func NewProfile(clerkID, email, firstName, lastName, photoURL string) (*Profile, error) {
	if strings.TrimSpace(clerkID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Profile{
		ClerkID:   clerkID,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		PhotoURL:  photoURL,
		CreatedAt: time.Now(),
	}, nil
}

// FullName joins first and last name the way order records show it.
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
