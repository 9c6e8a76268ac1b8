package auth

import (
	"context"
	"database/sql"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"careerbot/internal/config"
	"careerbot/internal/redis"
	"careerbot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestAuthIssueValidateRevoke(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 1)
	ctx := context.Background()

	svc := NewService(db, nil, time.Hour)
	token, err := svc.IssueToken(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), userID)

	require.NoError(t, svc.RevokeToken(ctx, token))
	_, err = svc.ValidateToken(ctx, token)
	assert.Error(t, err, "token should be invalid after revoke")

	token2, err := svc.IssueToken(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.RevokeUserTokens(ctx, 1))
	_, err = svc.ValidateToken(ctx, token2)
	assert.Error(t, err, "token should be invalid after revoking all")
}

func TestAuthValidateExpiredToken(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 2)

	svc := NewService(db, nil, 10*time.Millisecond)
	token, err := svc.IssueToken(context.Background(), 2)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// expired tokens are removed on validation
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM user_tokens WHERE token = ?`, token).Scan(&count))
	assert.Zero(t, count)
}

func TestPurgeExpiredTokens(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 3)
	ctx := context.Background()

	svc := NewService(db, nil, time.Hour)
	live, err := svc.IssueToken(ctx, 3)
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Minute)
	_, err = db.Exec(`INSERT INTO user_tokens (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		"stale", 3, past.Add(-time.Hour), past)
	require.NoError(t, err)

	n, err := svc.PurgeExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.ValidateToken(ctx, live)
	assert.NoError(t, err, "live token should survive purge")
}

func TestTokenCleanerStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	db := openTestDB(t)
	defer db.Close()

	svc := NewService(db, nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := svc.StartTokenCleaner(ctx, 5*time.Millisecond, zap.NewNop())
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
}

func TestAuthTokenCacheUsesRedis(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 10)

	cacheClient, cleanup := newRedisCacheClient(t)
	defer cleanup()

	svc := NewService(db, cacheClient, time.Hour)
	ctx := context.Background()

	token, err := svc.IssueToken(ctx, 10)
	require.NoError(t, err)

	raw := cacheClient.Raw()
	require.NotNil(t, raw)
	key := redisTokenPrefix + token
	got, err := raw.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "10", got)

	// validation is served from the cache once the row is gone
	_, _ = db.Exec(`DELETE FROM user_tokens WHERE token = ?`, token)
	userID, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(10), userID)

	require.NoError(t, svc.RevokeToken(ctx, token))
	_, err = raw.Get(ctx, key).Result()
	assert.Error(t, err, "expected redis key deleted")
	_, err = svc.ValidateToken(ctx, token)
	assert.Error(t, err)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {
				DSN: ":memory:",
			},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db, "sqlite3"))
	return db
}

func insertUser(t *testing.T, db *sql.DB, id int64) {
	t.Helper()
	name := "user_" + strconv.FormatInt(id, 10)
	_, err := db.Exec(`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, '', ?)`,
		id, name, name+"@example.com", time.Now().UTC())
	require.NoError(t, err)
}

func newRedisCacheClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed auth tests")
	}
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	db := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Host: host,
			Port: port,
			DB:   db,
		},
	}
	client, err := redis.NewRedisClient(cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if raw := client.Raw(); raw != nil {
		require.NoError(t, raw.FlushDB(ctx).Err())
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup
}
