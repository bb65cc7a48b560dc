package users

import (
	"net/http"
	"time"

	"github.com/user/listkeeper-go/auth"
	"github.com/user/listkeeper-go/guard"
	"github.com/user/listkeeper-go/httpx"
)

// UserHandlers provides HTTP handlers for account management.
type UserHandlers struct {
	service      *AccountService
	tokenTTL     time.Duration
	cookieSecure bool
}

// NewUserHandlers creates new UserHandlers. tokenTTL sets the cookie Max-Age
// (zero makes it a session cookie).
func NewUserHandlers(service *AccountService, tokenTTL time.Duration, cookieSecure bool) *UserHandlers {
	return &UserHandlers{service: service, tokenTTL: tokenTTL, cookieSecure: cookieSecure}
}

// setTokenCookie writes the cookie half of the double-submit pair. It is
// readable by scripts so the browser client can copy it into the header.
func (h *UserHandlers) setTokenCookie(w http.ResponseWriter, token string) {
	c := &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.tokenTTL > 0 {
		c.MaxAge = int(h.tokenTTL / time.Second)
	}
	http.SetCookie(w, c)
}

// HandleRegister godoc
// @Summary Create an account
// @Description Registers a new user and starts a session.
// @Tags users
// @Accept json
// @Produce json
// @Param account body auth.RegisterInput true "New account"
// @Success 200 {object} users.AuthResponse
// @Failure 400 {object} apperror.ErrorResponse "Missing field, malformed email, or username/email taken"
// @Failure 500 {object} apperror.ErrorResponse
// @Router /new-account [post]
func (h *UserHandlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in auth.RegisterInput
		// Validation happens in the credential service after normalization.
		if err := httpx.ReadJSON(w, r, &in); err != nil {
			httpx.Error(w, r, err)
			return
		}
		resp, err := h.service.Register(r.Context(), in)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		h.setTokenCookie(w, resp.Token)
		httpx.JSON(w, r, http.StatusOK, resp)
	}
}

// HandleLogin godoc
// @Summary Log in
// @Description Authenticates with HTTP Basic credentials and starts a session.
// @Tags users
// @Produce json
// @Security BasicAuth
// @Success 200 {object} users.AuthResponse
// @Failure 400 {object} apperror.ErrorResponse "Malformed Basic credentials"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid credentials"
// @Router /login [get]
func (h *UserHandlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := guard.CurrentUser(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		resp, err := h.service.Session(user)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		h.setTokenCookie(w, resp.Token)
		httpx.JSON(w, r, http.StatusOK, resp)
	}
}

// HandleLogout godoc
// @Summary Log out
// @Description Clears the session cookie. Tokens are stateless, so this only affects the browser.
// @Tags users
// @Success 204
// @Router /logout [post]
func (h *UserHandlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleGetMe godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Security XSRFToken
// @Success 200 {object} model.User
// @Failure 401 {object} apperror.ErrorResponse
// @Router /users/me [get]
func (h *UserHandlers) HandleGetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := guard.CurrentUser(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, r, http.StatusOK, user)
	}
}

// HandleDeleteMe godoc
// @Summary Delete account
// @Description Deletes every item and list the user owns, then the user.
// @Tags users
// @Security XSRFToken
// @Success 204
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 500 {object} apperror.ErrorResponse
// @Router /users/me [delete]
func (h *UserHandlers) HandleDeleteMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := guard.CurrentUser(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		if err := h.service.Delete(r.Context(), user); err != nil {
			httpx.Error(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
