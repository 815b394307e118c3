package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type adminUpdateUserRequest struct {
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=customer admin"`
	IsActive *bool   `json:"isActive,omitempty"`
}

func (b adminUpdateUserRequest) toInput() (users.AdminUpdate, error) {
	input := users.AdminUpdate{IsActive: b.IsActive}
	if b.Role == nil {
		return input, nil
	}
	role, err := enums.ParseUserRole(*b.Role)
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	input.Role = &role
	return input, nil
}

type adminDeleteUserRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

func AdminUsersList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "users", logg, func(r *http.Request) (int, any, error) {
		params, err := parseCursorParams(r)
		if err != nil {
			return responses.Fail(err)
		}
		list, err := svc.ListUsers(r.Context(), params)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(list)
	})
}

func AdminUserDetail(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "users", logg, func(r *http.Request) (int, any, error) {
		userID, err := validators.ParseURLUUID(r, "userId")
		if err != nil {
			return responses.Fail(err)
		}
		user, err := svc.GetUser(r.Context(), userID)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"user": user})
	})
}

func AdminUserUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "users", logg, asCaller(func(r *http.Request, adminID uuid.UUID) (int, any, error) {
		userID, err := validators.ParseURLUUID(r, "userId")
		if err != nil {
			return responses.Fail(err)
		}
		body, err := validators.Decode[adminUpdateUserRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		input, err := body.toInput()
		if err != nil {
			return responses.Fail(err)
		}
		user, err := svc.AdminUpdateUser(r.Context(), adminID, userID, input)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"success": true, "user": user})
	}))
}

// AdminUserDelete deactivates and archives an account on behalf of an admin.
// The body, and with it the reason, is optional.
func AdminUserDelete(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "users", logg, asCaller(func(r *http.Request, adminID uuid.UUID) (int, any, error) {
		userID, err := validators.ParseURLUUID(r, "userId")
		if err != nil {
			return responses.Fail(err)
		}
		var body adminDeleteUserRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			return responses.Fail(err)
		}
		if err := svc.AdminDeactivateUser(r.Context(), adminID, userID, body.Reason); err != nil {
			return responses.Fail(err)
		}
		return responses.Acked()
	}))
}
