package controllers

import (
	"net/http"

	"github.com/smartdot/storefront-backend/api/middleware"
	"github.com/smartdot/storefront-backend/api/responses"
	"github.com/smartdot/storefront-backend/api/validators"
	"github.com/smartdot/storefront-backend/internal/auth"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
	"github.com/smartdot/storefront-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AuthRegister creates a customer account and signs it in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteCreated(w, result)
	}
}

// AdminSignup creates an ADMIN account from an invitation token.
func AdminSignup(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.AdminSignupRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdminSignup(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteCreated(w, result)
	}
}

// CartReleaser drops the in-memory store of a cart session.
type CartReleaser interface {
	Release(sessionID string)
}

// AuthLogout releases the caller's cart store and expires the cart session cookie so the
// next visitor on the device starts a fresh cart. Access tokens are stateless; clients discard them.
func AuthLogout(carts CartReleaser, opts middleware.CartSessionOptions, logg *logger.Logger) http.HandlerFunc {
	if opts.Header == "" {
		opts.Header = middleware.DefaultCartSessionHeader
	}
	if opts.Cookie == "" {
		opts.Cookie = middleware.DefaultCartSessionCookie
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID := middleware.CartSessionFromContext(r.Context()); sessionID != "" && carts != nil {
			carts.Release(sessionID)
			logg.Info(r.Context(), "cart.session.released")
		}

		w.Header().Del(opts.Header)
		http.SetCookie(w, &http.Cookie{
			Name:     opts.Cookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		responses.WriteSuccess(w, map[string]bool{"success": true})
	}
}
