package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/userdir/internal/userdir/service"
	"github.com/aussiebroadwan/userdir/internal/userdir/store"
	"github.com/aussiebroadwan/userdir/pkg/httpx"
)

type BindingsHandler struct {
	Bindings *service.BindingService
}

type bindRequest struct {
	Email string `json:"email"`
}

func (h *BindingsHandler) Bind(w http.ResponseWriter, r *http.Request) {
	var req bindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.Bindings.Bind(r.Context(), req.Email, r.PathValue("peerID")); err != nil {
		writeFailure(w, r, "bind peer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BindingsHandler) GetEmail(w http.ResponseWriter, r *http.Request) {
	email, err := h.Bindings.EmailForPeer(r.Context(), r.PathValue("peerID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "peer is not bound")
			return
		}
		writeFailure(w, r, "lookup binding", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"email": email})
}

func (h *BindingsHandler) GetPeers(w http.ResponseWriter, r *http.Request) {
	peers, err := h.Bindings.PeersForEmail(r.Context(), r.PathValue("email"))
	if err != nil {
		writeFailure(w, r, "list bindings", err)
		return
	}
	if peers == nil {
		peers = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]string{"peers": peers})
}

func (h *BindingsHandler) Unbind(w http.ResponseWriter, r *http.Request) {
	if err := h.Bindings.Unbind(r.Context(), r.PathValue("peerID")); err != nil {
		writeFailure(w, r, "unbind peer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
