package config

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory Store for resolver and service tests.
type fakeStore struct {
	mu sync.Mutex

	tablesExist bool
	probeErr    error
	loadErr     error
	upsertErr   error

	rows  map[Key]SettingRow
	audit []AuditEntry

	loadCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tablesExist: true,
		rows:        map[Key]SettingRow{},
	}
}

func (f *fakeStore) TablesExist(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tablesExist, f.probeErr
}

func (f *fakeStore) Load(ctx context.Context, keys []Key) ([]SettingRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	var out []SettingRow
	for _, k := range keys {
		if row, ok := f.rows[k]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStore) Upsert(ctx context.Context, row SettingRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	row.UpdatedAt = time.Now()
	f.rows[row.Key] = row
	return nil
}

func (f *fakeStore) InsertIfAbsent(ctx context.Context, row SettingRow) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[row.Key]; ok {
		return false, nil
	}
	row.UpdatedAt = time.Now()
	f.rows[row.Key] = row
	return true, nil
}

func (f *fakeStore) AppendAudit(ctx context.Context, entry AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = int64(len(f.audit) + 1)
	entry.ChangedAt = time.Now()
	f.audit = append(f.audit, entry)
	return nil
}

func (f *fakeStore) RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AuditEntry
	for i := len(f.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.audit[i])
	}
	return out, nil
}

func textRow(key Key, text string) SettingRow {
	return SettingRow{Key: key, ValueText: &text, ValueType: definitionsByKey[key].Type}
}

// fakeClock is a settable clock for TTL tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
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

func TestResolvePrecedenceDBOverEnvOverDefault(t *testing.T) {
	t.Setenv("AI_PROVIDER", "fallback")

	store := newFakeStore()
	store.rows[KeyAIProvider] = textRow(KeyAIProvider, "groq")

	r := NewResolver(store, NewCipher(""))
	resolved := r.ResolveAll(context.Background(), true)

	got := resolved[KeyAIProvider]
	if got.Source != SourceDB || got.Value.Str() != "groq" {
		t.Fatalf("db row lost: source=%s value=%q", got.Source, got.Value.Str())
	}

	// Without a row the env layer wins.
	delete(store.rows, KeyAIProvider)
	resolved = r.ResolveAll(context.Background(), true)
	got = resolved[KeyAIProvider]
	if got.Source != SourceEnv || got.Value.Str() != "fallback" {
		t.Fatalf("env layer lost: source=%s value=%q", got.Source, got.Value.Str())
	}
}

func TestResolveDefaultLayer(t *testing.T) {
	r := NewResolver(newFakeStore(), NewCipher(""))
	resolved := r.ResolveAll(context.Background(), true)

	got := resolved[KeySiteBaseURL]
	if got.Source != SourceDefault || got.Value.Str() != DefaultSiteURL {
		t.Fatalf("default layer: source=%s value=%q", got.Source, got.Value.Str())
	}
	if !resolved[KeyAIFallbackEnabled].Value.Bool() {
		t.Fatal("ai fallback default should be true")
	}
}

func TestResolveInvalidEnvIgnored(t *testing.T) {
	t.Setenv("JOBS_SOURCE_MODE", "sometimes")

	r := NewResolver(nil, NewCipher(""))
	resolved := r.ResolveAll(context.Background(), true)

	got := resolved[KeyJobsSourceMode]
	if got.Source != SourceDefault || got.Value.Str() != "auto" {
		t.Fatalf("invalid env value propagated: source=%s value=%q", got.Source, got.Value.Str())
	}
}

func TestResolveNonFiniteEnvIgnored(t *testing.T) {
	t.Setenv("GROQ_MAX_TOKENS", "NaN")

	r := NewResolver(nil, NewCipher(""))
	resolved := r.ResolveAll(context.Background(), true)

	got := resolved[KeyAIGroqMaxTokens]
	if got.Source != SourceDefault || got.Value.Num() != 1000 {
		t.Fatalf("non-finite env value propagated: source=%s value=%v", got.Source, got.Value.Num())
	}
}

func TestResolveEnvFallbackOrder(t *testing.T) {
	t.Setenv("SITE_BASE_URL", "https://primary.example.com")
	t.Setenv("PUBLIC_SITE_URL", "https://secondary.example.com")

	r := NewResolver(nil, NewCipher(""))
	resolved := r.ResolveAll(context.Background(), true)
	if got := resolved[KeySiteBaseURL].Value.Str(); got != "https://primary.example.com" {
		t.Fatalf("first env fallback not preferred: %q", got)
	}
}

func TestResolveCacheTTL(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock()
	r := NewResolver(store, NewCipher(""), WithClock(clock.Now))

	r.ResolveAll(context.Background(), false)
	r.ResolveAll(context.Background(), false)
	if store.loadCalls != 1 {
		t.Fatalf("loadCalls = %d, want 1 (second read served from cache)", store.loadCalls)
	}

	clock.Advance(DefaultCacheTTL + time.Second)
	r.ResolveAll(context.Background(), false)
	if store.loadCalls != 2 {
		t.Fatalf("loadCalls = %d, want 2 after TTL expiry", store.loadCalls)
	}
}

func TestInvalidateCacheForcesReload(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store, NewCipher(""))

	r.ResolveAll(context.Background(), false)
	r.InvalidateCache()
	r.ResolveAll(context.Background(), false)
	if store.loadCalls != 2 {
		t.Fatalf("loadCalls = %d, want 2 after invalidation", store.loadCalls)
	}
}

func TestResolveStorageUnavailable(t *testing.T) {
	store := newFakeStore()
	store.tablesExist = false
	store.rows[KeyAIGroqModel] = textRow(KeyAIGroqModel, "ignored-model")

	r := NewResolver(store, NewCipher(""))
	if r.StorageAvailable(context.Background()) {
		t.Fatal("StorageAvailable = true with missing tables")
	}
	resolved := r.ResolveAll(context.Background(), true)
	if got := resolved[KeyAIGroqModel]; got.Source == SourceDB {
		t.Fatalf("db row applied while storage unavailable: %q", got.Value.Str())
	}
}

func TestResolveLoadErrorDegrades(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errors.New("connection reset")

	r := NewResolver(store, NewCipher(""))
	resolved := r.ResolveAll(context.Background(), true)
	if got := resolved[KeyAIProvider]; got.Source != SourceDefault {
		t.Fatalf("load error did not degrade to defaults: source=%s", got.Source)
	}
}

func TestResolveSecretDecryption(t *testing.T) {
	cipher := NewCipher("master")
	token, err := cipher.Encrypt("gsk_live_key")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	store := newFakeStore()
	store.rows[KeyAIGroqAPIKey] = SettingRow{
		Key:            KeyAIGroqAPIKey,
		ValueEncrypted: &token,
		ValueType:      TypeSecret,
		IsSecret:       true,
	}

	r := NewResolver(store, cipher)
	resolved := r.ResolveAll(context.Background(), true)
	got := resolved[KeyAIGroqAPIKey]
	if got.Value.Str() != "gsk_live_key" || got.Source != SourceDB || !got.IsSet {
		t.Fatalf("secret not resolved: %+v", got)
	}
	if got.Warning != "" {
		t.Fatalf("unexpected warning: %q", got.Warning)
	}
}

func TestResolveSecretDecryptFailureWarns(t *testing.T) {
	bad := "AAAA.BBBB.CCCC"
	store := newFakeStore()
	store.rows[KeyAIGroqAPIKey] = SettingRow{
		Key:            KeyAIGroqAPIKey,
		ValueEncrypted: &bad,
		ValueType:      TypeSecret,
		IsSecret:       true,
	}

	r := NewResolver(store, NewCipher("master"))
	got := r.ResolveAll(context.Background(), true)[KeyAIGroqAPIKey]
	if got.Warning == "" {
		t.Fatal("undecryptable secret produced no warning")
	}
	if got.Source == SourceDB && got.IsSet {
		t.Fatal("undecryptable secret reported as set")
	}
}

func TestResolveSecretWithoutCipherWarns(t *testing.T) {
	token := "AAAA.BBBB.CCCC"
	store := newFakeStore()
	store.rows[KeyAIGroqAPIKey] = SettingRow{
		Key:            KeyAIGroqAPIKey,
		ValueEncrypted: &token,
		ValueType:      TypeSecret,
		IsSecret:       true,
	}

	r := NewResolver(store, NewCipher(""))
	got := r.ResolveAll(context.Background(), true)[KeyAIGroqAPIKey]
	if got.Warning == "" {
		t.Fatal("encrypted secret without a key produced no warning")
	}
}

func TestResolveLegacyPlaintextSecret(t *testing.T) {
	store := newFakeStore()
	plain := "gsk_old_plaintext"
	store.rows[KeyAIGroqAPIKey] = SettingRow{
		Key:       KeyAIGroqAPIKey,
		ValueText: &plain,
		ValueType: TypeSecret,
		IsSecret:  true,
	}

	r := NewResolver(store, NewCipher("master"))
	got := r.ResolveAll(context.Background(), true)[KeyAIGroqAPIKey]
	if got.Value.Str() != "gsk_old_plaintext" {
		t.Fatalf("legacy plaintext secret not served: %q", got.Value.Str())
	}
	if got.Warning == "" {
		t.Fatal("legacy plaintext secret produced no warning")
	}
}

func TestResolveCorruptRowWarns(t *testing.T) {
	store := newFakeStore()
	store.rows[KeyAIGroqMaxTokens] = textRow(KeyAIGroqMaxTokens, "not-a-number")

	r := NewResolver(store, NewCipher(""))
	got := r.ResolveAll(context.Background(), true)[KeyAIGroqMaxTokens]
	if got.Warning == "" {
		t.Fatal("corrupt row produced no warning")
	}
	if got.Source != SourceDefault {
		t.Fatalf("corrupt row replaced fallback value: source=%s", got.Source)
	}
}

func TestResolveOutOfEnumRowCollapses(t *testing.T) {
	store := newFakeStore()
	store.rows[KeyAIProvider] = textRow(KeyAIProvider, "openai")

	r := NewResolver(store, NewCipher(""))
	cfg := r.RuntimeConfig(context.Background(), true)
	if cfg.AI.Provider != "groq" {
		t.Fatalf("out-of-enum provider = %q, want collapse to groq", cfg.AI.Provider)
	}
}

func TestRuntimeConfigDefaults(t *testing.T) {
	r := NewResolver(nil, NewCipher(""))
	cfg := r.RuntimeConfig(context.Background(), true)

	if cfg.AI.Provider != "groq" {
		t.Errorf("Provider = %q", cfg.AI.Provider)
	}
	if cfg.AI.GroqModel == "" || cfg.AI.MaxTokens <= 0 {
		t.Errorf("model/tokens not defaulted: %q %d", cfg.AI.GroqModel, cfg.AI.MaxTokens)
	}
	if cfg.Jobs.SourceMode != "auto" || !cfg.Jobs.FallbackEnabled {
		t.Errorf("jobs defaults wrong: %+v", cfg.Jobs)
	}
	if cfg.Site.BaseURL != DefaultSiteURL {
		t.Errorf("BaseURL = %q", cfg.Site.BaseURL)
	}
}
