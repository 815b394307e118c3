package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type sessionRevoker interface {
	Revoke(ctx context.Context, accessID string) error
}

// Service covers the profile endpoints and the back-office user screens.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileUpdate) (*UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	DeactivateAccount(ctx context.Context, userID uuid.UUID, accessID, password string, reason *string) error

	ListUsers(ctx context.Context, params pagination.Params) (*UserList, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	AdminUpdateUser(ctx context.Context, adminID, userID uuid.UUID, input AdminUpdate) (*UserDTO, error)
	AdminDeactivateUser(ctx context.Context, adminID, userID uuid.UUID, reason *string) error
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Repo           *Repository
	Cart           cart.Repository
	Tx             txRunner
	Outbox         outboxPublisher
	Sessions       sessionRevoker
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	repo        *Repository
	cart        cart.Repository
	tx          txRunner
	outbox      outboxPublisher
	sessions    sessionRevoker
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService constructs a users service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session revoker is required")
	}
	return &service{
		repo:        params.Repo,
		cart:        params.Cart,
		tx:          params.Tx,
		outbox:      params.Outbox,
		sessions:    params.Sessions,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Present(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileUpdate) (*UserDTO, error) {
	fields := map[string]any{}
	details := map[string]string{}
	if input.FirstName != nil {
		if v := strings.TrimSpace(*input.FirstName); v == "" {
			details["firstName"] = "must not be blank"
		} else {
			fields["first_name"] = v
		}
	}
	if input.LastName != nil {
		if v := strings.TrimSpace(*input.LastName); v == "" {
			details["lastName"] = "must not be blank"
		} else {
			fields["last_name"] = v
		}
	}
	if input.Phone != nil {
		fields["phone"] = optionalText(*input.Phone)
	}
	if input.Address != nil {
		fields["address"] = optionalText(*input.Address)
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}

	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.Updates(ctx, userID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update profile")
	}
	return s.GetProfile(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if err := security.ValidatePasswordPolicy(next); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
			WithDetails(map[string]string{"newPassword": err.Error()})
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.verify(user, current); err != nil {
		return err
	}
	hash, err := security.HashPassword(next, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update password")
	}
	return nil
}

// DeactivateAccount is the self-service deletion: it checks the password,
// archives the account and ends the caller's session.
func (s *service) DeactivateAccount(ctx context.Context, userID uuid.UUID, accessID, password string, reason *string) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.verify(user, password); err != nil {
		return err
	}
	if err := s.deactivate(ctx, userID, userID, reason); err != nil {
		return err
	}
	if accessID != "" {
		if err := s.sessions.Revoke(ctx, accessID); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "revoke session after deactivation", err)
		}
	}
	return nil
}

func (s *service) ListUsers(ctx context.Context, params pagination.Params) (*UserList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list users")
	}
	page, info := pagination.Trim(rows, limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{SortAt: u.CreatedAt, ID: u.ID}
	})
	out := make([]UserDTO, 0, len(page))
	for i := range page {
		out = append(out, *Present(&page[i]))
	}
	return &UserList{Users: out, Pagination: info}, nil
}

func (s *service) GetUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	return s.GetProfile(ctx, userID)
}

func (s *service) AdminUpdateUser(ctx context.Context, adminID, userID uuid.UUID, input AdminUpdate) (*UserDTO, error) {
	fields := map[string]any{}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
				WithDetails(map[string]string{"role": "must be one of customer admin"})
		}
		fields["role"] = *input.Role
	}
	if input.IsActive != nil {
		fields["is_active"] = *input.IsActive
	}
	demotes := input.Role != nil && *input.Role != enums.UserRoleAdmin
	disables := input.IsActive != nil && !*input.IsActive
	if adminID == userID && (demotes || disables) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admins cannot demote or deactivate themselves")
	}

	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.Updates(ctx, userID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update user")
	}
	return s.GetProfile(ctx, userID)
}

func (s *service) AdminDeactivateUser(ctx context.Context, adminID, userID uuid.UUID, reason *string) error {
	if adminID == userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admins cannot deactivate themselves")
	}
	return s.deactivate(ctx, adminID, userID, reason)
}

// deactivate archives the account into deleted_users, marks it inactive and
// clears the cart in one transaction. Orders are kept.
func (s *service) deactivate(ctx context.Context, actorID, userID uuid.UUID, reason *string) error {
	reason = optionalText(derefOrEmpty(reason))
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		accounts := s.repo.WithTx(tx)
		user, err := accounts.LockByID(ctx, userID)
		if err != nil {
			return translateLookup(err)
		}
		if !user.IsActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "account already deactivated")
		}

		now := time.Now().UTC()
		if err := accounts.Archive(ctx, &models.DeletedUser{
			UserID:    user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Phone:     user.Phone,
			Role:      user.Role,
			Reason:    reason,
			DeletedBy: actorID,
			DeletedAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "archive user")
		}
		if err := accounts.Updates(ctx, user.ID, map[string]any{"is_active": false}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deactivate user")
		}
		if _, err := s.cart.WithTx(tx).DeleteForUser(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventUserDeactivated,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data: payloads.UserDeactivatedEvent{
				UserID:    user.ID,
				DeletedBy: actorID,
				SelfServe: actorID == user.ID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "queue deactivation event")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deactivate account")
		}
		return err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"target_user_id": userID.String(),
			"deleted_by":     actorID.String(),
		})
		s.logg.Info(logCtx, "account deactivated")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, translateLookup(err)
	}
	return user, nil
}

func (s *service) verify(user *models.User, password string) error {
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}
	return nil
}

func translateLookup(err error) error {
	if repo.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load user")
}

func optionalText(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func derefOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
