package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AuthRegister opens a customer account and signs it in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "auth", logg, func(r *http.Request) (int, any, error) {
		body, err := validators.Decode[auth.RegisterRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		result, err := svc.Register(r.Context(), body)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.Created(result)
	})
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "auth", logg, func(r *http.Request) (int, any, error) {
		body, err := validators.Decode[auth.LoginRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		result, err := svc.Login(r.Context(), body)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(result)
	})
}

// AuthRefresh rotates the session. The bearer token may already be expired;
// only its signature and jti matter here.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "auth", logg, func(r *http.Request) (int, any, error) {
		accessToken, err := validators.ParseBearer(r.Header.Get("Authorization"))
		if err != nil {
			return responses.Fail(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
		}
		body, err := validators.Decode[auth.RefreshRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		result, err := svc.Refresh(r.Context(), accessToken, body.RefreshToken)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(result)
	})
}

func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "auth", logg, func(r *http.Request) (int, any, error) {
		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			return responses.Fail(pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		}
		if err := svc.Logout(r.Context(), accessID); err != nil {
			return responses.Fail(err)
		}
		return responses.Acked()
	})
}

// AuthForgotPassword always answers 202 so the response reveals nothing about
// which emails have accounts.
func AuthForgotPassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "auth", logg, func(r *http.Request) (int, any, error) {
		body, err := validators.Decode[auth.ForgotPasswordRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		if err := svc.ForgotPassword(r.Context(), body.Email); err != nil {
			return responses.Fail(err)
		}
		return responses.Accepted(map[string]any{
			"success": true,
			"message": "if the account exists, a reset link has been sent",
		})
	})
}

func AuthResetPassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "auth", logg, func(r *http.Request) (int, any, error) {
		body, err := validators.Decode[auth.ResetPasswordRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		if err := svc.ResetPassword(r.Context(), body); err != nil {
			return responses.Fail(err)
		}
		return responses.Acked()
	})
}
