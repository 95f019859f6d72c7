package config

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultCacheTTL bounds staleness after external writes (direct DB
// edits) while avoiding a storage round-trip per request.
const DefaultCacheTTL = 60 * time.Second

// ResolvedSetting is the effective value of one key for one resolution
// cycle, tagged with the layer that supplied it.
type ResolvedSetting struct {
	Key        Key
	Definition Definition
	Source     Source
	Value      Value
	IsSet      bool
	Warning    string
}

type settingsSnapshot struct {
	expiresAt time.Time
	settings  map[Key]ResolvedSetting
}

type storageStatus struct {
	checkedAt time.Time
	available bool
}

// Resolver merges the database, environment and default layers into one
// resolved view per key. The snapshot cache and the storage-status
// cache are last-writer-wins: concurrent refreshes may both recompute
// the same snapshot, which is harmless because resolution is a pure
// function of storage plus environment.
type Resolver struct {
	store  Store // nil when no database is configured
	cipher *Cipher
	ttl    time.Duration
	now    func() time.Time

	cache  atomic.Pointer[settingsSnapshot]
	status atomic.Pointer[storageStatus]
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithTTL overrides the cache TTL for both caches.
func WithTTL(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.ttl = d }
}

// WithClock injects a clock, so TTL behavior is testable without
// sleeping.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// NewResolver builds a resolver over the given store and cipher. A nil
// store means every read resolves from environment and defaults only.
func NewResolver(store Store, cipher *Cipher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		cipher: cipher,
		ttl:    DefaultCacheTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StorageAvailable reports whether the settings tables are reachable.
// The probe result is cached for the TTL so repeated resolutions during
// an outage do not hammer the database.
func (r *Resolver) StorageAvailable(ctx context.Context) bool {
	if r.store == nil {
		return false
	}
	if st := r.status.Load(); st != nil && r.now().Before(st.checkedAt.Add(r.ttl)) {
		return st.available
	}

	available, err := r.store.TablesExist(ctx)
	if err != nil {
		slog.Debug("settings storage probe failed", slog.Any("error", err))
		available = false
	}
	r.status.Store(&storageStatus{checkedAt: r.now(), available: available})
	return available
}

// ResolveAll returns the resolved view for every registered key.
// forceRefresh bypasses the snapshot cache.
func (r *Resolver) ResolveAll(ctx context.Context, forceRefresh bool) map[Key]ResolvedSetting {
	if !forceRefresh {
		if snap := r.cache.Load(); snap != nil && r.now().Before(snap.expiresAt) {
			return snap.settings
		}
	}

	resolved := r.buildFallbackMap()

	if r.StorageAvailable(ctx) {
		rows, err := r.store.Load(ctx, Keys())
		if err != nil {
			slog.Warn("settings load failed, serving env/default layer", slog.Any("error", err))
		} else {
			for _, row := range rows {
				cur, ok := resolved[row.Key]
				if !ok {
					continue // row for a key outside the registry
				}
				resolved[row.Key] = r.applyRow(cur, row)
			}
		}
	}

	r.cache.Store(&settingsSnapshot{
		expiresAt: r.now().Add(r.ttl),
		settings:  resolved,
	})
	return resolved
}

// InvalidateCache clears the snapshot immediately. The mutator calls it
// after every successful write, so a caller who waits for the mutation
// never observes a stale read.
func (r *Resolver) InvalidateCache() {
	r.cache.Store(nil)
}

// buildFallbackMap resolves every key from environment then default.
// An invalid environment value is treated as absent: a misconfigured
// variable must never propagate into the runtime.
func (r *Resolver) buildFallbackMap() map[Key]ResolvedSetting {
	out := make(map[Key]ResolvedSetting, len(definitions))
	for _, def := range definitions {
		value, source := fallbackValue(def)
		out[def.Key] = ResolvedSetting{
			Key:        def.Key,
			Definition: def,
			Source:     source,
			Value:      value,
			IsSet:      !value.IsEmpty(),
		}
	}
	return out
}

func fallbackValue(def Definition) (Value, Source) {
	if raw, ok := EnvOverride(def); ok {
		v, err := ParseAndValidate(def.Key, raw)
		if err == nil {
			return v, SourceEnv
		}
		slog.Debug("invalid environment value ignored",
			slog.String("key", string(def.Key)),
			slog.Any("error", err),
		)
	}
	return def.Default, SourceDefault
}

// applyRow folds one stored row into the current resolved setting.
// Decryption and corruption problems degrade to warnings with the
// prior fallback value retained; they never fail the resolution.
func (r *Resolver) applyRow(cur ResolvedSetting, row SettingRow) ResolvedSetting {
	def := cur.Definition

	if def.IsSecret {
		return r.applySecretRow(cur, row)
	}

	stored := ParseFromStorage(def, row.ValueText)
	if stored.Kind() == KindUnset && row.ValueText != nil {
		cur.Warning = "invalid stored value for " + string(def.Key)
		return cur
	}
	if err := validateTyped(def, stored); err != nil {
		cur.Warning = "invalid stored value for " + string(def.Key)
		return cur
	}

	cur.Source = SourceDB
	cur.Value = stored
	cur.IsSet = !stored.IsEmpty()
	return cur
}

func (r *Resolver) applySecretRow(cur ResolvedSetting, row SettingRow) ResolvedSetting {
	def := cur.Definition

	var plaintext string
	var havePlain bool
	switch {
	case row.ValueEncrypted != nil && *row.ValueEncrypted != "":
		if !r.cipher.Configured() {
			cur.Warning = "secret is encrypted but no encryption key is configured"
			return cur
		}
		p, err := r.cipher.Decrypt(*row.ValueEncrypted)
		if err != nil {
			cur.Warning = "could not decrypt secret for " + string(def.Key)
			return cur
		}
		plaintext = p
		havePlain = true
	case row.ValueText != nil && *row.ValueText != "":
		// Legacy unencrypted secret at rest. Served, but flagged so the
		// operator re-saves it through the admin console.
		plaintext = *row.ValueText
		havePlain = true
		cur.Warning = "stored secret for " + string(def.Key) + " is not encrypted; re-save to encrypt"
	}

	if !havePlain {
		cur.Source = SourceDB
		cur.Value = StringValue("")
		cur.IsSet = false
		return cur
	}

	v, err := ParseAndValidate(def.Key, plaintext)
	if err != nil {
		cur.Warning = "invalid stored value for " + string(def.Key)
		return cur
	}

	cur.Source = SourceDB
	cur.Value = v
	cur.IsSet = plaintext != ""
	return cur
}

// RuntimeConfig is the typed, defaulted snapshot handed to feature
// consumers. Rebuilt on every resolution, subject to the cache.
type RuntimeConfig struct {
	AI   AIConfig
	Jobs JobsConfig
	Site SiteConfig
}

// AIConfig configures resume analysis.
type AIConfig struct {
	Provider        string // "groq" or "fallback"
	GroqAPIKey      string
	GroqModel       string
	MaxTokens       int
	FallbackEnabled bool
}

// JobsConfig configures job search sourcing.
type JobsConfig struct {
	SourceMode              string // "auto", "database" or "fallback"
	FallbackEnabled         bool
	AdvancedMatchingEnabled bool
}

// SiteConfig configures public site metadata.
type SiteConfig struct {
	BaseURL            string
	GoogleVerification string
	SocialLinks        map[string]any
}

// RuntimeConfig projects the resolved settings into the typed snapshot,
// collapsing any out-of-enum stored value to its safe default.
func (r *Resolver) RuntimeConfig(ctx context.Context, forceRefresh bool) RuntimeConfig {
	resolved := r.ResolveAll(ctx, forceRefresh)

	provider := resolved[KeyAIProvider].Value.Str()
	if provider != "fallback" {
		provider = "groq"
	}

	sourceMode := resolved[KeyJobsSourceMode].Value.Str()
	if sourceMode != "database" && sourceMode != "fallback" {
		sourceMode = "auto"
	}

	model := resolved[KeyAIGroqModel].Value.Str()
	if model == "" {
		model = definitionsByKey[KeyAIGroqModel].Default.Str()
	}

	maxTokens := int(resolved[KeyAIGroqMaxTokens].Value.Num())
	if maxTokens <= 0 {
		maxTokens = int(definitionsByKey[KeyAIGroqMaxTokens].Default.Num())
	}

	baseURL := resolved[KeySiteBaseURL].Value.Str()
	if baseURL == "" {
		baseURL = DefaultSiteURL
	}

	return RuntimeConfig{
		AI: AIConfig{
			Provider:        provider,
			GroqAPIKey:      resolved[KeyAIGroqAPIKey].Value.Str(),
			GroqModel:       model,
			MaxTokens:       maxTokens,
			FallbackEnabled: resolved[KeyAIFallbackEnabled].Value.Bool(),
		},
		Jobs: JobsConfig{
			SourceMode:              sourceMode,
			FallbackEnabled:         resolved[KeyJobsFallbackEnabled].Value.Bool(),
			AdvancedMatchingEnabled: resolved[KeyJobsAdvancedMatching].Value.Bool(),
		},
		Site: SiteConfig{
			BaseURL:            baseURL,
			GoogleVerification: resolved[KeySiteGoogleVerify].Value.Str(),
			SocialLinks:        resolved[KeySiteSocialLinks].Value.JSON(),
		},
	}
}
