package webhook

import (
	"strings"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
	profilesvc "github.com/creatorhub/platform-api/internal/profiles/service"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is the envelope of an identity lifecycle delivery.
type Event struct {
	Type string    `json:"type"`
	Data UserEvent `json:"data"`
}

type UserEvent struct {
	ID                    string         `json:"id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	PublicMetadata        PublicMetadata `json:"public_metadata"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type PublicMetadata struct {
	Role string `json:"role"`
}

// PrimaryEmail returns the primary address, or the first one listed.
func (u UserEvent) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

func (u UserEvent) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u UserEvent) toNewProfile() profilesvc.NewProfile {
	role, _ := domain.ParseRole(u.PublicMetadata.Role)
	return profilesvc.NewProfile{
		ID:        u.ID,
		Email:     u.PrimaryEmail(),
		FullName:  u.FullName(),
		AvatarURL: u.ImageURL,
		Role:      role,
	}
}
