package apikey

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chainstream/streams/internal/config"
)

const (
	secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	secretLength   = 32
)

// Manager is the single point every request-handling path (internal/api,
// internal/wsgateway) consults to authenticate a key and check its
// role's enforcement points (spec §4.K). It also exposes the admin
// Create/Revoke/Rotate operations from the Supplemented Features.
type Manager struct {
	repo  *Repository
	roles map[string]Role

	limiter *RateLimiter
	Subs    *SubscriptionTracker
}

// NewManager builds a Manager from the repository and the statically
// configured role set (config.Config.Roles).
func NewManager(repo *Repository, roleCfg map[string]config.RoleLimit) *Manager {
	roles := make(map[string]Role, len(roleCfg))
	for name, rc := range roleCfg {
		roles[name] = NewRole(rc)
	}
	return &Manager{
		repo:    repo,
		roles:   roles,
		limiter: NewRateLimiter(),
		Subs:    NewSubscriptionTracker(),
	}
}

// Authenticate resolves value to a Key and its Role, checking Active
// status (spec §4.K: "every request: status must be Active").
func (m *Manager) Authenticate(ctx context.Context, value string) (Key, Role, error) {
	k, err := m.repo.FindByValue(ctx, value)
	if err != nil {
		return Key{}, Role{}, err
	}
	if err := k.Validate(); err != nil {
		return Key{}, Role{}, err
	}
	role, ok := m.roles[k.RoleName]
	if !ok {
		return Key{}, Role{}, fmt.Errorf("%w: %s", ErrUnknownRole, k.RoleName)
	}
	return k, role, nil
}

// CheckScope enforces the role's subject allow-list (spec §4.K).
func (m *Manager) CheckScope(role Role, concreteSubject string) error {
	if !role.AllowsScope(concreteSubject) {
		return fmt.Errorf("%w: %s", ErrScopePermission, concreteSubject)
	}
	return nil
}

// CheckRate enforces the role's per-minute request budget for this key
// (spec §4.K: "Per-minute: sliding-window counter per key").
func (m *Manager) CheckRate(keyValue string, role Role) error {
	if !m.limiter.Allow(keyValue, role.RequestsPerMinute()) {
		return ErrRateLimitExceeded
	}
	return nil
}

// Create issues a new Active key for userName under roleName (spec's
// Supplemented Features: admin bootstrap). Grounded on
// ApiKey::generate_random_api_key + ApiKey::create.
func (m *Manager) Create(ctx context.Context, userName, roleName string) (Key, error) {
	if _, ok := m.roles[roleName]; !ok {
		return Key{}, fmt.Errorf("%w: %s", ErrUnknownRole, roleName)
	}
	value, err := generateSecret()
	if err != nil {
		return Key{}, fmt.Errorf("apikey: generate secret: %w", err)
	}
	k := Key{
		ID:        uuid.New(),
		UserName:  userName,
		Value:     value,
		RoleName:  roleName,
		Status:    StatusActive,
		CreatedAt: time.Now(),
	}
	if err := m.repo.Insert(ctx, k); err != nil {
		return Key{}, err
	}
	return k, nil
}

// Revoke sets a key's status to Revoked (spec's Supplemented Features:
// admin revoke). A revoked key fails Authenticate's Validate check on
// every subsequent request.
func (m *Manager) Revoke(ctx context.Context, value string) (Key, error) {
	k, err := m.repo.UpdateStatus(ctx, value, StatusRevoked)
	if err != nil {
		return Key{}, err
	}
	m.limiter.Remove(value)
	return k, nil
}

// Rotate replaces a key's secret value in place, keeping its id, user,
// and role (spec's Supplemented Features: admin rotate). The old value
// stops authenticating immediately; callers must distribute the
// returned Key's new Value out of band.
func (m *Manager) Rotate(ctx context.Context, oldValue string) (Key, error) {
	k, err := m.repo.FindByValue(ctx, oldValue)
	if err != nil {
		return Key{}, err
	}
	newValue, err := generateSecret()
	if err != nil {
		return Key{}, fmt.Errorf("apikey: generate secret: %w", err)
	}
	rotated, err := m.repo.UpdateValue(ctx, k.ID, newValue)
	if err != nil {
		return Key{}, err
	}
	m.limiter.Remove(oldValue)
	return rotated, nil
}

// List returns every issued key (admin surface).
func (m *Manager) List(ctx context.Context) ([]Key, error) {
	return m.repo.List(ctx)
}

// generateSecret mirrors ApiKey::generate_random_api_key: a random
// alphabetic string under a fixed, recognizable prefix.
func generateSecret() (string, error) {
	buf := make([]byte, secretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = secretAlphabet[int(b)%len(secretAlphabet)]
	}
	return "cs-" + string(buf), nil
}
