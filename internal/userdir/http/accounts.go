package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/userdir/internal/userdir/domain"
	"github.com/aussiebroadwan/userdir/internal/userdir/service"
	"github.com/aussiebroadwan/userdir/internal/userdir/store"
	"github.com/aussiebroadwan/userdir/pkg/httpx"
	"github.com/aussiebroadwan/userdir/pkg/slogx"
)

type AccountsHandler struct {
	Accounts *service.AccountService
}

type accountResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	IsStaff   bool   `json:"is_staff"`
	IsActive  bool   `json:"is_active"`
	CreatedAt int64  `json:"created_at"`
}

func toAccountResponse(a domain.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Email:     a.Email,
		IsStaff:   a.IsStaff,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
}

type createAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IsStaff  bool   `json:"is_staff"`
	IsActive bool   `json:"is_active"`
}

type updateAccountRequest struct {
	Password string `json:"password"`
	IsStaff  bool   `json:"is_staff"`
	IsActive bool   `json:"is_active"`
}

// List returns a page of accounts. Without start/limit parameters every
// account is returned.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	start, limit := -1, -1
	if v := r.URL.Query().Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "start must be an integer")
			return
		}
		start = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be an integer")
			return
		}
		limit = n
	}

	accounts, err := h.Accounts.List(r.Context(), start, limit)
	if err != nil {
		writeFailure(w, r, "list accounts", err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (h *AccountsHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.Accounts.Count(r.Context())
	if err != nil {
		writeFailure(w, r, "count accounts", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	acct, err := h.Accounts.Get(r.Context(), r.PathValue("email"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such account")
			return
		}
		writeFailure(w, r, "get account", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAccountResponse(acct))
}

func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	id, err := h.Accounts.Add(r.Context(), req.Email, req.Password, req.IsStaff, req.IsActive)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httpx.WriteError(w, http.StatusConflict, "conflict", "email already registered")
			return
		}
		writeFailure(w, r, "create account", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounts.Remove(r.Context(), r.PathValue("email")); err != nil {
		writeFailure(w, r, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "id must be an integer")
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "password is required")
		return
	}

	if err := h.Accounts.Update(r.Context(), id, req.Password, req.IsStaff, req.IsActive); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such account")
			return
		}
		writeFailure(w, r, "update account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	slogx.FromContext(r.Context()).Error(op, "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "server_error", "operation failed")
}
