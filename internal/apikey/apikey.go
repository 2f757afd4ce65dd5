// Package apikey implements spec §4.K: key/role taxonomy, status
// lifecycle, and the per-key enforcement points consulted by
// internal/api, internal/wsgateway, and internal/stream. Grounded on
// original_source/crates/web-utils/src/api_key/api_key_impl.rs for the
// key shape and status/lifecycle operations.
package apikey

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the key's lifecycle state (spec §4.K: "status must be
// Active").
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusRevoked  Status = "revoked"
	StatusExpired  Status = "expired"
)

// Sentinel errors, classified per spec §7's Auth error taxonomy
// (401/403/429, never retried).
var (
	ErrNotFound          = errors.New("apikey: not found")
	ErrBadStatus         = errors.New("apikey: key is not active")
	ErrScopePermission   = errors.New("apikey: subject outside role scopes")
	ErrRateLimitExceeded = errors.New("apikey: rate limit exceeded")
	ErrSubscriptionLimit = errors.New("apikey: subscription limit exceeded")
	ErrUnknownRole       = errors.New("apikey: unknown role")
)

// Key is a single issued credential (spec §4.K: "{id, user_name,
// secret_value, role, status}").
type Key struct {
	ID        uuid.UUID
	UserName  string
	Value     string
	RoleName  string
	Status    Status
	CreatedAt time.Time
}

// Row is the flat, DB-codec-friendly persisted form of Key (spec §6:
// "api_keys(id PK, user_name, api_key UNIQUE, role_id, status)"). RoleName
// plays the role of role_id: roles are a small, statically configured set
// (config.Config.Roles), not a separate mutable table, so the key row
// references a role by its config name directly.
type Row struct {
	ID        uuid.UUID `db:"id"`
	UserName  string    `db:"user_name"`
	Value     string    `db:"api_key"`
	RoleName  string    `db:"role_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

func (r Row) toKey() Key {
	return Key{
		ID:        r.ID,
		UserName:  r.UserName,
		Value:     r.Value,
		RoleName:  r.RoleName,
		Status:    Status(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

// Validate reports ErrBadStatus unless status is Active (spec §4.K,
// "every request: status must be Active").
func (k Key) Validate() error {
	if k.Status != StatusActive {
		return fmt.Errorf("%w: %s", ErrBadStatus, k.Status)
	}
	return nil
}
