// Package auth provides API key authentication for Recurly requests.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Credentials holds the private API key of a site.
type Credentials struct {
	APIKey string
}

// Apply adds HTTP Basic authentication with the API key as user name.
func (c *Credentials) Apply(req *http.Request) {
	if c == nil {
		return
	}
	req.SetBasicAuth(c.APIKey, "")
}

// Valid reports whether credentials are configured.
func (c *Credentials) Valid() bool {
	return c != nil && c.APIKey != ""
}

// Fingerprint returns a short, stable digest of the API key. It scopes
// cache keys and rate limit state to one site without storing the key.
func (c *Credentials) Fingerprint() string {
	if !c.Valid() {
		return "anonymous"
	}
	sum := sha256.Sum256([]byte(c.APIKey))
	return hex.EncodeToString(sum[:8])
}
