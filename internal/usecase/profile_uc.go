package usecase

import (
	"context"
	"errors"
	"fmt"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"
	"cloudshare/internal/infra/logging"
	"cloudshare/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ ProfileUseCase = (*profileUC)(nil)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// UserEvent is the identity provider's user webhook payload.
type UserEvent struct {
	Type string   `json:"type"`
	Data UserData `json:"data"`
}

type UserData struct {
	ID                    string         `json:"id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// Email picks the primary address, falling back to the first one listed.
func (d UserData) Email() string {
	if d.PrimaryEmailAddressID != "" {
		for _, e := range d.EmailAddresses {
			if e.ID == d.PrimaryEmailAddressID {
				return e.EmailAddress
			}
		}
	}
	if len(d.EmailAddresses) > 0 {
		return d.EmailAddresses[0].EmailAddress
	}
	return ""
}

type ProfileUseCase interface {
	// HandleEvent applies a user event. applied is false for event types that
	// are ignored. A duplicate create yields domain.ErrAlreadyExists.
	HandleEvent(ctx context.Context, evt UserEvent) (applied bool, err error)
	Get(ctx context.Context, clerkID string) (*model.Profile, error)
}

type profileUC struct {
	profiles repository.ProfileRepository
	ledger   repository.CreditLedger
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewProfileUseCase(profiles repository.ProfileRepository, ledger repository.CreditLedger, tm repository.TransactionManager, logger *zerolog.Logger) *profileUC {
	return &profileUC{profiles: profiles, ledger: ledger, tm: tm, log: logger}
}

func (u *profileUC) HandleEvent(ctx context.Context, evt UserEvent) (bool, error) {
	defer logging.TraceDuration(u.log, "ProfileUC.HandleEvent")()
	log := logging.With(ctx, u.log)

	var err error
	switch evt.Type {
	case EventUserCreated:
		err = u.create(ctx, evt.Data)
	case EventUserUpdated:
		err = u.update(ctx, evt.Data)
	case EventUserDeleted:
		err = u.delete(ctx, evt.Data.ID)
	default:
		metrics.IncWebhookEvent(evt.Type, "ignored")
		log.Debug().Str("type", evt.Type).Msg("ignoring webhook event")
		return false, nil
	}
	if err != nil {
		metrics.IncWebhookEvent(evt.Type, "error")
		return false, err
	}
	metrics.IncWebhookEvent(evt.Type, "applied")
	log.Info().Str("type", evt.Type).Str("clerk_id", evt.Data.ID).Msg("webhook event applied")
	return true, nil
}

// create stores the profile and initialises the balance in one transaction.
func (u *profileUC) create(ctx context.Context, d UserData) error {
	p, err := model.NewProfile(d.ID, d.Email(), d.FirstName, d.LastName, d.ImageURL)
	if err != nil {
		return err
	}
	return u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := u.profiles.Create(ctx, tx, p); err != nil {
			return err
		}
		if _, err := u.ledger.GetOrCreate(ctx, tx, p.ClerkID); err != nil {
			return fmt.Errorf("initialise balance: %w", err)
		}
		return nil
	})
}

// update falls back to create for users this service has not seen yet.
func (u *profileUC) update(ctx context.Context, d UserData) error {
	p, err := model.NewProfile(d.ID, d.Email(), d.FirstName, d.LastName, d.ImageURL)
	if err != nil {
		return err
	}
	err = u.profiles.Update(ctx, nil, p)
	if errors.Is(err, domain.ErrNotFound) {
		return u.create(ctx, d)
	}
	return err
}

func (u *profileUC) delete(ctx context.Context, clerkID string) error {
	if clerkID == "" {
		return domain.ErrInvalidArgument
	}
	return u.profiles.Delete(ctx, nil, clerkID)
}

func (u *profileUC) Get(ctx context.Context, clerkID string) (*model.Profile, error) {
	return u.profiles.FindByClerkID(ctx, nil, clerkID)
}
