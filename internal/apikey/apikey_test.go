package apikey

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chainstream/streams/internal/config"
)

func standardRole() Role {
	return NewRole(config.RoleLimit{
		Name:                  "standard",
		SubscriptionLimit:     10,
		RequestsPerMinute:     120,
		HistoricalLimitBlocks: 600,
		Scopes:                []string{"blocks.>", "transactions.>"},
	})
}

func TestKeyValidateRejectsNonActiveStatus(t *testing.T) {
	for _, s := range []Status{StatusInactive, StatusRevoked, StatusExpired} {
		k := Key{Status: s}
		assert.ErrorIs(t, k.Validate(), ErrBadStatus)
	}
	assert.NoError(t, Key{Status: StatusActive}.Validate())
}

func TestRoleAllowsScopeMatchesConfiguredPrefixes(t *testing.T) {
	role := standardRole()
	assert.True(t, role.AllowsScope("blocks.123"))
	assert.True(t, role.AllowsScope("transactions.123.0"))
	assert.False(t, role.AllowsScope("receipts.123.0.0"))
}

func TestRoleAdminScopeAllowsEverything(t *testing.T) {
	admin := NewRole(config.RoleLimit{Name: "admin", Scopes: []string{">"}})
	assert.True(t, admin.AllowsScope("receipts.123.0.0"))
	assert.True(t, admin.AllowsScope("blocks.1"))
}

func TestRoleLimitAccessors(t *testing.T) {
	role := standardRole()
	assert.Equal(t, 10, role.SubscriptionLimit())
	assert.Equal(t, 120, role.RequestsPerMinute())
	assert.Equal(t, int64(600), role.HistoricalLimitBlocks())
}

func TestRateLimiterAllowsUnlimitedWhenPerMinuteIsZero(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 1000; i++ {
		assert.True(t, rl.Allow("k1", 0))
	}
}

func TestRateLimiterRejectsBeyondBurst(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("k1", 5))
	}
	assert.False(t, rl.Allow("k1", 5))
}

func TestRateLimiterTracksKeysIndependently(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("a", 3))
	}
	assert.False(t, rl.Allow("a", 3))
	assert.True(t, rl.Allow("b", 3))
}

func TestRateLimiterRemoveResetsWindow(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 2; i++ {
		assert.True(t, rl.Allow("k1", 2))
	}
	assert.False(t, rl.Allow("k1", 2))
	rl.Remove("k1")
	assert.True(t, rl.Allow("k1", 2))
}

func TestSubscriptionTrackerEnforcesLimit(t *testing.T) {
	tr := NewSubscriptionTracker()
	assert.True(t, tr.TryAcquire("k1", 2))
	assert.True(t, tr.TryAcquire("k1", 2))
	assert.False(t, tr.TryAcquire("k1", 2))

	tr.Release("k1")
	assert.True(t, tr.TryAcquire("k1", 2))
}

func TestSubscriptionTrackerUnlimitedWhenLimitIsZero(t *testing.T) {
	tr := NewSubscriptionTracker()
	for i := 0; i < 1000; i++ {
		assert.True(t, tr.TryAcquire("k1", 0))
	}
}

func TestSubscriptionTrackerReleaseNeverGoesNegative(t *testing.T) {
	tr := NewSubscriptionTracker()
	tr.Release("never-acquired")
	assert.True(t, tr.TryAcquire("never-acquired", 1))
}

func TestManagerCreateRejectsUnknownRole(t *testing.T) {
	m := NewManager(nil, map[string]config.RoleLimit{"standard": {Name: "standard"}})
	_, err := m.Create(nil, "alice", "nonexistent")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestManagerCheckScopeWrapsErrScopePermission(t *testing.T) {
	m := NewManager(nil, map[string]config.RoleLimit{})
	role := standardRole()
	assert.ErrorIs(t, m.CheckScope(role, "receipts.1.0.0"), ErrScopePermission)
	assert.NoError(t, m.CheckScope(role, "blocks.1"))
}

func TestManagerCheckRateWrapsErrRateLimitExceeded(t *testing.T) {
	m := NewManager(nil, map[string]config.RoleLimit{})
	role := NewRole(config.RoleLimit{RequestsPerMinute: 1})
	assert.NoError(t, m.CheckRate("key-x", role))
	assert.ErrorIs(t, m.CheckRate("key-x", role), ErrRateLimitExceeded)
}

func TestGenerateSecretHasPrefixAndLength(t *testing.T) {
	v, err := generateSecret()
	assert.NoError(t, err)
	assert.Regexp(t, `^cs-[a-zA-Z]{32}$`, v)
}

func TestGenerateSecretIsNotDeterministic(t *testing.T) {
	a, err := generateSecret()
	assert.NoError(t, err)
	b, err := generateSecret()
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
