package domain

// Binding maps an account email to a peer identity. A peer binds to exactly
// one email (peer_id is unique) but one email may have many peers.
type Binding struct {
	Email  string
	PeerID string
}
