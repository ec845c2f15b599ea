package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/userdir/internal/userdir/service"
	"github.com/aussiebroadwan/userdir/internal/userdir/store"
	"github.com/aussiebroadwan/userdir/pkg/httpx"
	"github.com/aussiebroadwan/userdir/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
)

type LoginHandler struct {
	Accounts  *service.AccountService
	JWTSecret []byte
	TokenTTL  time.Duration
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Handle authenticates the submitted email+password and mints a session
// token. Every failure renders the same 401: callers can never tell unknown
// email, wrong password and unreachable directory apart.
func (h *LoginHandler) Handle(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	if err := h.Accounts.Validate(r.Context(), email, password); err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			log.Error("validate failed", "err", err)
		}
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "authentication failed")
		return
	}

	// Staff flag comes from the local row when one exists; directory-only
	// users are never staff.
	staff := false
	if acct, err := h.Accounts.Get(r.Context(), email); err == nil {
		staff = acct.IsStaff
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Warn("post-login lookup failed", "email", email, "err", err)
	}

	now := time.Now()
	claims := httpx.SessionClaims{
		Staff: staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.TokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.JWTSecret)
	if err != nil {
		log.Error("token signing failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "could not issue token")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.TokenTTL.Seconds()),
	})
}
