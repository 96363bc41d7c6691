package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/valutx/internal/logging"
	"github.com/dmitrijs2005/valutx/internal/server/audit"
	"github.com/dmitrijs2005/valutx/internal/server/auth"
	"github.com/dmitrijs2005/valutx/internal/server/models"
	"github.com/dmitrijs2005/valutx/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/valutx/internal/server/repositories/sqlitetest"
	"github.com/dmitrijs2005/valutx/internal/server/verifier"
)

type testEnv struct {
	db      *sql.DB
	rm      repomanager.RepositoryManager
	sink    *recordingSink
	limiter *fakeLimiter
	issuer  *auth.Issuer
	codec   *verifier.Codec
	clock   *fakeClock

	auth   *AuthService
	items  *ItemService
	audits *AuditLogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := sqlitetest.Open(t)
	rm := repomanager.NewSQLiteRepositoryManager()
	e := &testEnv{
		db:      db,
		rm:      rm,
		sink:    &recordingSink{next: audit.NewRepositorySink(db, rm)},
		limiter: &fakeLimiter{},
		issuer:  auth.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour),
		codec:   verifier.New(bcrypt.MinCost),
		clock:   &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)},
	}

	ids := &sequence{}
	e.auth = NewAuthService(db, rm, e.codec, e.issuer, e.sink, e.limiter, logging.Nop{})
	e.auth.now, e.auth.newID = e.clock.Now, ids.next("user")

	e.items = NewItemService(db, rm, e.sink, logging.Nop{})
	e.items.now, e.items.newID = e.clock.Now, ids.next("item")

	e.audits = NewAuditLogService(db, rm, logging.Nop{})
	return e
}

func (e *testEnv) signup(t *testing.T, email, key string) *models.User {
	t.Helper()
	u, err := e.auth.Signup(context.Background(), SignupInput{
		Email: email, AuthKey: key, KDFSalt: "salt-" + email, WrappedDEK: "dek-" + email,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) createItem(t *testing.T, userID string) *models.Item {
	t.Helper()
	it, err := e.items.Create(context.Background(), userID, CreateItemInput{
		Type: "login", Ciphertext: "c0", IV: "iv0", AuthTag: "tag0",
	})
	require.NoError(t, err)
	return it
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sequence struct {
	mu sync.Mutex
	n  int
}

func (s *sequence) next(prefix string) func() string {
	return func() string {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.n++
		return fmt.Sprintf("%s-%d", prefix, s.n)
	}
}

// recordingSink remembers every event and forwards to next when set.
type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
	next   audit.Sink
	err    error
}

func (s *recordingSink) Emit(ctx context.Context, e audit.Event) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.next != nil {
		return s.next.Emit(ctx, e)
	}
	return nil
}

func (s *recordingSink) types() []models.AuditEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeLimiter struct {
	mu       sync.Mutex
	blocked  bool
	allowErr error
	failures map[string]int
	resets   []string
	failErr  error
	resetErr error
}

func (l *fakeLimiter) Allowed(ctx context.Context, email string) (bool, error) {
	if l.allowErr != nil {
		return true, l.allowErr
	}
	return !l.blocked, nil
}

func (l *fakeLimiter) Fail(ctx context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failures == nil {
		l.failures = map[string]int{}
	}
	l.failures[email]++
	return l.failErr
}

func (l *fakeLimiter) Reset(ctx context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets = append(l.resets, email)
	return l.resetErr
}

var errInjected = errors.New("injected")
