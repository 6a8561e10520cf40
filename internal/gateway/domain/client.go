// Package domain holds the gateway's data model types, free of transport
// and storage concerns.
package domain

import "time"

// Client profiles drive registration defaults: known MCP clients get their
// canonical redirect URIs, everything else gets the conservative default.
const (
	ClientProfileClaude  = "claude"
	ClientProfileJulius  = "julius"
	ClientProfileDefault = "default"
)

// RegisteredClient is one dynamic client registration record. The gateway
// never authenticates these clients itself; the record exists so OAuth
// clients can complete the DCR handshake against the upstream provider.
type RegisteredClient struct {
	ID           string // ULID, storage key
	ClientID     string // the OAuth client_id handed back to the caller
	ClientName   string
	Profile      string // one of the ClientProfile constants
	RedirectURIs []string
	GrantTypes   []string
	Scope        string
	CreatedAt    time.Time
}
