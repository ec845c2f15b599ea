package service

import (
	"context"

	"github.com/aussiebroadwan/userdir/internal/userdir/store"
)

// BindingService manages email-to-peer bindings. Bindings never participate
// in authentication; they only map transport identities onto accounts.
type BindingService struct {
	Store store.Store
}

// Bind associates peerID with email, replacing the peer's previous binding
// if it had one.
func (s *BindingService) Bind(ctx context.Context, email, peerID string) error {
	return s.Store.Bindings().Bind(ctx, email, peerID)
}

// EmailForPeer resolves the email a peer is bound to.
func (s *BindingService) EmailForPeer(ctx context.Context, peerID string) (string, error) {
	return s.Store.Bindings().EmailByPeer(ctx, peerID)
}

// PeersForEmail lists every peer bound to an email.
func (s *BindingService) PeersForEmail(ctx context.Context, email string) ([]string, error) {
	return s.Store.Bindings().PeersByEmail(ctx, email)
}

// Unbind removes a peer's binding; unknown peers are a no-op success.
func (s *BindingService) Unbind(ctx context.Context, peerID string) error {
	return s.Store.Bindings().Unbind(ctx, peerID)
}
