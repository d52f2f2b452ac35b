// Package chathub is the presence-and-messaging coordination engine: it tracks
// which users are connected, routes messages to the live connections joined to
// a channel, deduplicates pairwise channels, and computes delivery status.
package chathub

// Client is one live connection, independent of its transport. The hub manages
// clients uniformly through this interface; the WebSocket implementation lives
// in ws_client.go and tests substitute their own.
type Client interface {
	// GetConnID returns the unique identifier of this connection. It is never
	// reused, even by the same user reconnecting.
	GetConnID() string

	// GetUserID returns the authenticated user id, or 0 before authentication.
	GetUserID() uint
	// SetUserID binds the connection to a user after token verification.
	SetUserID(id uint)

	// Send queues an outbound event without blocking. It returns false when
	// the client is closed or its buffer is full; the hub treats that as a
	// dead connection and evicts it.
	Send(ev Event) bool

	// Run starts the client's transport pumps.
	Run()
	// Close releases the client's resources. Idempotent.
	Close()
}
