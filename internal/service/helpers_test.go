package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
	"github.com/prperemyshlev/spamdetect-backend/internal/repository"
	"github.com/prperemyshlev/spamdetect-backend/internal/utils"
	"github.com/prperemyshlev/spamdetect-backend/pkg/database"
	"github.com/prperemyshlev/spamdetect-backend/pkg/observability"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret        = "test-secret-key-that-is-at-least-32-characters-long"
	testAccessExpiry  = 15 * time.Minute
	testRefreshExpiry = 7 * 24 * time.Hour
)

type sentEmail struct {
	to    string
	token string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{to: email, token: token})
	return nil
}

func (m *recordingMailer) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *recordingMailer) last() (sentEmail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentEmail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeProvider struct {
	identity *domain.FederatedIdentity
	err      error
	code     string
}

func (p *fakeProvider) Name() string { return domain.ProviderGoogle }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (*domain.FederatedIdentity, error) {
	p.code = code
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

func (p *fakeProvider) VerifyIDToken(_ context.Context, _ string) (*domain.FederatedIdentity, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

type fixture struct {
	repo   *repository.MemoryUserRepository
	mailer *recordingMailer
	clock  *testClock
	jwt    *utils.JWTManager
	auth   AuthService
}

func newFixture() *fixture {
	f := &fixture{
		repo:   repository.NewMemoryUserRepository(),
		mailer: &recordingMailer{},
		clock:  newTestClock(),
	}
	f.jwt = utils.NewJWTManager(testSecret, testAccessExpiry, testRefreshExpiry, utils.WithClock(f.clock.Now))
	f.auth = NewAuthService(f.repo, f.jwt, f.mailer, observability.NopAuthMetrics(), nil, bcrypt.MinCost)
	return f
}

func newTestRedis(t *testing.T) (*database.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return database.NewRedisFromClient(client), mr
}

func newUnreachableRedis(t *testing.T) *database.Redis {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	return database.NewRedisFromClient(client)
}
