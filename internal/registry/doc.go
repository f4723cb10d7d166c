// Package registry tracks authenticated worker sessions. Tokens are
// capabilities minted at login; the HTTP layer resolves them to identities
// before any scheduling call runs.
package registry
