package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type updateProfileRequest struct {
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

type deleteAccountRequest struct {
	Password string  `json:"password" validate:"required"`
	Reason   *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

func ProfileGet(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "users", logg, asCaller(func(r *http.Request, userID uuid.UUID) (int, any, error) {
		user, err := svc.GetProfile(r.Context(), userID)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"user": user})
	}))
}

func ProfileUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "users", logg, asCaller(func(r *http.Request, userID uuid.UUID) (int, any, error) {
		body, err := validators.Decode[updateProfileRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		user, err := svc.UpdateProfile(r.Context(), userID, users.ProfileUpdate{
			FirstName: validators.SanitizeOptional(body.FirstName, 100),
			LastName:  validators.SanitizeOptional(body.LastName, 100),
			Phone:     body.Phone,
			Address:   body.Address,
		})
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"success": true, "user": user})
	}))
}

func ProfileChangePassword(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "users", logg, asCaller(func(r *http.Request, userID uuid.UUID) (int, any, error) {
		body, err := validators.Decode[changePasswordRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		if err := svc.ChangePassword(r.Context(), userID, body.CurrentPassword, body.NewPassword); err != nil {
			return responses.Fail(err)
		}
		return responses.Acked()
	}))
}

// ProfileDelete deactivates the caller's account and ends the current session.
func ProfileDelete(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "users", logg, asCaller(func(r *http.Request, userID uuid.UUID) (int, any, error) {
		body, err := validators.Decode[deleteAccountRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		accessID := middleware.AccessIDFromContext(r.Context())
		if err := svc.DeactivateAccount(r.Context(), userID, accessID, body.Password, body.Reason); err != nil {
			return responses.Fail(err)
		}
		return responses.Acked()
	}))
}
