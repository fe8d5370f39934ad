package warden_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wardenio/warden"
)

// fakeUserProvider is an in-memory credential store keyed by account.
type fakeUserProvider struct {
	mu          sync.Mutex
	users       map[string]*warden.UserRecord
	permissions map[int64][]string
	resets      int
}

func newFakeUserProvider() *fakeUserProvider {
	return &fakeUserProvider{
		users:       make(map[string]*warden.UserRecord),
		permissions: make(map[int64][]string),
	}
}

func (p *fakeUserProvider) add(t *testing.T, id int64, account, password string, status warden.AccountStatus, perms ...string) {
	t.Helper()

	hash, err := warden.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[account] = &warden.UserRecord{
		ID:           id,
		Account:      account,
		Name:         "user " + account,
		PasswordHash: hash,
		Status:       status,
	}
	p.permissions[id] = perms
}

func (p *fakeUserProvider) GetByID(_ context.Context, id int64) (warden.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range p.users {
		if u.ID == id {
			return *u, nil
		}
	}
	return warden.UserRecord{}, warden.ErrAccountNotFound
}

func (p *fakeUserProvider) GetByAccount(_ context.Context, account string) (warden.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.users[account]; ok {
		return *u, nil
	}
	return warden.UserRecord{}, warden.ErrAccountNotFound
}

func (p *fakeUserProvider) IncrPasswordErrorNum(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range p.users {
		if u.ID == id {
			u.PasswordErrorNum++
			now := time.Now()
			u.PasswordErrorLastTime = &now
			return nil
		}
	}
	return warden.ErrAccountNotFound
}

func (p *fakeUserProvider) ResetPasswordErrorNum(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	for _, u := range p.users {
		if u.ID == id {
			u.PasswordErrorNum = 0
			u.PasswordErrorLastTime = nil
			return nil
		}
	}
	return warden.ErrAccountNotFound
}

func (p *fakeUserProvider) GetPermissions(_ context.Context, id int64) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	perms := p.permissions[id]
	out := make([]string, 0, len(perms))
	seen := make(map[string]struct{}, len(perms))
	for _, perm := range perms {
		if _, dup := seen[perm]; dup {
			continue
		}
		seen[perm] = struct{}{}
		out = append(out, perm)
	}
	return out, nil
}

func (p *fakeUserProvider) resetCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

func (p *fakeUserProvider) errorCount(account string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.users[account]; ok {
		return u.PasswordErrorNum
	}
	return -1
}

// fakeLoginLogStore records calls and serves canned aggregates.
type fakeLoginLogStore struct {
	mu      sync.Mutex
	entries []warden.LoginLogEntry

	totalCalls int
}

func (s *fakeLoginLogStore) Save(_ context.Context, entry *warden.LoginLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *fakeLoginLogStore) TotalCount(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCalls++
	return int64(len(s.entries)), nil
}

func (s *fakeLoginLogStore) CountByDate(_ context.Context, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.entries {
		if e.LoginDate.Format("2006-01-02") == day.Format("2006-01-02") {
			n++
		}
	}
	return n, nil
}

func (s *fakeLoginLogStore) CountDistinctIPByDate(_ context.Context, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ips := make(map[string]struct{})
	for _, e := range s.entries {
		if e.LoginDate.Format("2006-01-02") == day.Format("2006-01-02") {
			ips[e.RequestIP] = struct{}{}
		}
	}
	return int64(len(ips)), nil
}

func (s *fakeLoginLogStore) CountByBrowser(_ context.Context) ([]warden.LoginLogCount, error) {
	return s.grouped(func(e warden.LoginLogEntry) string { return e.Browser }), nil
}

func (s *fakeLoginLogStore) CountByOperatingSystem(_ context.Context) ([]warden.LoginLogCount, error) {
	return s.grouped(func(e warden.LoginLogEntry) string { return e.OperatingSystem }), nil
}

func (s *fakeLoginLogStore) grouped(key func(warden.LoginLogEntry) string) []warden.LoginLogCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, e := range s.entries {
		counts[key(e)]++
	}
	out := make([]warden.LoginLogCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, warden.LoginLogCount{Name: name, Count: n})
	}
	return out
}

func (s *fakeLoginLogStore) CountByDaySince(_ context.Context, since time.Time, account string) ([]warden.VisitCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, e := range s.entries {
		if e.LoginDate.Before(since) {
			continue
		}
		if account != "" && e.Account != account {
			continue
		}
		counts[e.LoginDate.Format("2006-01-02")]++
	}
	out := make([]warden.VisitCount, 0, len(counts))
	for date, n := range counts {
		out = append(out, warden.VisitCount{LoginDate: date, Count: n})
	}
	return out, nil
}

func (s *fakeLoginLogStore) Clear(_ context.Context, before time.Time, keepCount int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) <= keepCount {
		return false, nil
	}
	kept := s.entries[len(s.entries)-keepCount:]
	removed := len(s.entries) != len(kept)
	s.entries = append([]warden.LoginLogEntry(nil), kept...)
	return removed, nil
}

func (s *fakeLoginLogStore) saved() []warden.LoginLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]warden.LoginLogEntry(nil), s.entries...)
}

type testHarness struct {
	engine *warden.Engine
	logs   *warden.LoginLogService
	users  *fakeUserProvider
	store  *fakeLoginLogStore
	sink   *warden.ChannelSink
	redis  *miniredis.Miniredis
}

func testConfig(t *testing.T) warden.Config {
	t.Helper()
	return warden.Config{
		Token: warden.TokenConfig{
			Expiration:   time.Hour,
			SigningKey:   []byte("test-signing-key"),
			Issuer:       "warden-test",
			TransientTTL: time.Hour,
		},
		Cache: warden.CacheConfig{Prefix: "warden"},
		Events: warden.EventsConfig{
			Enabled:    true,
			BufferSize: 16,
			DropIfFull: false,
		},
		LoginLog: warden.LoginLogConfig{KeepCount: 2},
	}
}

func newHarness(t *testing.T, cfg warden.Config) *testHarness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := newFakeUserProvider()
	logStore := &fakeLoginLogStore{}
	sink := warden.NewChannelSink(64)

	engine, logs, err := warden.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithLoginLogStore(logStore).
		WithEventSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testHarness{
		engine: engine,
		logs:   logs,
		users:  users,
		store:  logStore,
		sink:   sink,
		redis:  mr,
	}
}

// drainEvents closes the dispatcher and collects everything it delivered.
func (h *testHarness) drainEvents() []warden.LoginEvent {
	h.engine.Close()
	var out []warden.LoginEvent
	for {
		select {
		case event := <-h.sink.Events():
			out = append(out, event)
		default:
			return out
		}
	}
}
