package apikey

import (
	"github.com/chainstream/streams/internal/config"
	"github.com/chainstream/streams/internal/subject"
)

// Role wraps a config.RoleLimit with the scope/limit checks spec §4.K's
// enforcement points need. Roles are a small, statically configured set
// (config.Config.Roles) rather than a mutable database table — the
// original's ApiKeyRole::fetch_by_id becomes a plain map lookup.
type Role struct {
	cfg config.RoleLimit
}

// NewRole wraps cfg for use by a Manager.
func NewRole(cfg config.RoleLimit) Role { return Role{cfg: cfg} }

// Name is the role's configured name (e.g. "admin", "standard").
func (r Role) Name() string { return r.cfg.Name }

// AllowsScope reports whether concreteSubject — a fully bound subject
// with no wildcard segments, as returned by subject.Bound.Parse — falls
// under one of the role's configured scope patterns (spec §4.K: "role
// must permit the requested scope (subject prefix allow-list)").
func (r Role) AllowsScope(concreteSubject string) bool {
	for _, scope := range r.cfg.Scopes {
		if subject.Match(concreteSubject, scope) {
			return true
		}
	}
	return false
}

// SubscriptionLimit returns the role's max concurrent WS subscriptions
// per key, or 0 for unlimited (spec §4.K, §4.I.2).
func (r Role) SubscriptionLimit() int { return r.cfg.SubscriptionLimit }

// RequestsPerMinute returns the role's sliding-window request budget, or
// 0 for unlimited (spec §4.K: "Per-minute: sliding-window counter per
// key").
func (r Role) RequestsPerMinute() int { return r.cfg.RequestsPerMinute }

// HistoricalLimitBlocks satisfies internal/stream.HistoricalLimiter
// (spec §4.K: "Stream FromBlock: (latest - from_block) <=
// historical_limit_blocks"). 0 means unlimited.
func (r Role) HistoricalLimitBlocks() int64 { return r.cfg.HistoricalLimitBlocks }
