package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// UpdateValue is one submitted change: either an explicit clear (delete
// the stored secret) or a raw value to validate and persist. The tagged
// form makes a sentinel-string collision with a legitimate value
// impossible.
type UpdateValue struct {
	clear bool
	raw   any
}

// ClearSecret returns the clear variant. Only meaningful for secret
// keys; for other types a clear is validated like a null value.
func ClearSecret() UpdateValue { return UpdateValue{clear: true} }

// SetTo returns the set variant carrying an untyped raw value.
func SetTo(raw any) UpdateValue { return UpdateValue{raw: raw} }

// IsClear reports whether this update clears the stored value.
func (u UpdateValue) IsClear() bool { return u.clear }

// Raw returns the untyped payload of a set variant.
func (u UpdateValue) Raw() any { return u.raw }

// UpdateResult reports the outcome of one UpdateSettings call.
type UpdateResult struct {
	Success          bool           `json:"success"`
	UpdatedKeys      []Key          `json:"updatedKeys"`
	FieldErrors      map[Key]string `json:"fieldErrors"`
	StorageAvailable bool           `json:"storageAvailable"`
}

// AdminField is one setting as shown in the admin console. Secret
// values are never echoed; only their set/unset state is.
type AdminField struct {
	Key         Key      `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Section     Section  `json:"section"`
	Type        Type     `json:"type"`
	IsSecret    bool     `json:"isSecret"`
	Options     []string `json:"options,omitempty"`
	Source      Source   `json:"source"`
	Value       Value    `json:"value"`
	IsSet       bool     `json:"isSet"`
	Warning     string   `json:"warning,omitempty"`
}

// AuditItem is one audit entry as shown in the admin console.
type AuditItem struct {
	ID        int64   `json:"id"`
	Key       string  `json:"settingKey"`
	Action    string  `json:"action"`
	OldValue  *string `json:"oldValue"`
	NewValue  *string `json:"newValue"`
	ChangedAt string  `json:"changedAt"`
	ChangedBy string  `json:"changedBy"`
}

// AdminPayload is the full admin console view.
type AdminPayload struct {
	StorageAvailable bool         `json:"storageAvailable"`
	Warnings         []string     `json:"warnings"`
	Settings         []AdminField `json:"settings"`
	Audit            []AuditItem  `json:"audit"`
}

const defaultGroqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// Service is the configuration boundary consumed by request handlers:
// resolved reads, validated writes, the admin view and the provider
// health probe.
type Service struct {
	store    Store
	cipher   *Cipher
	resolver *Resolver

	groqEndpoint string
	httpClient   *http.Client
	now          func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithCacheTTL overrides the resolver cache TTL.
func WithCacheTTL(d time.Duration) ServiceOption {
	return func(s *Service) { s.resolver.ttl = d }
}

// WithServiceClock injects a clock into the service and its resolver.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
		s.resolver.now = now
	}
}

// WithGroqEndpoint overrides the health-probe endpoint (tests point it
// at a local server).
func WithGroqEndpoint(url string) ServiceOption {
	return func(s *Service) { s.groqEndpoint = url }
}

// WithHTTPClient overrides the probe HTTP client.
func WithHTTPClient(c *http.Client) ServiceOption {
	return func(s *Service) { s.httpClient = c }
}

// NewService builds the configuration service. store may be nil, in
// which case reads degrade to env/default and writes fail fast.
func NewService(store Store, cipher *Cipher, opts ...ServiceOption) *Service {
	s := &Service{
		store:        store,
		cipher:       cipher,
		resolver:     NewResolver(store, cipher),
		groqEndpoint: defaultGroqEndpoint,
		httpClient:   &http.Client{Timeout: 8 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver exposes the resolver for consumers that only read.
func (s *Service) Resolver() *Resolver { return s.resolver }

// RuntimeConfig is the read path for every feature area.
func (s *Service) RuntimeConfig(ctx context.Context, forceRefresh bool) RuntimeConfig {
	return s.resolver.RuntimeConfig(ctx, forceRefresh)
}

// UpdateSettings validates and persists a batch of changes. Validation
// is exhaustive and all-or-nothing: either every submitted value
// passes and persistence is attempted per key, or nothing is written.
// Keys outside the registry are ignored for forward compatibility.
func (s *Service) UpdateSettings(ctx context.Context, updates map[string]UpdateValue, actor string) UpdateResult {
	result := UpdateResult{
		UpdatedKeys: []Key{},
		FieldErrors: map[Key]string{},
	}

	if !s.resolver.StorageAvailable(ctx) {
		return result
	}
	result.StorageAvailable = true

	type preparedUpdate struct {
		def     Definition
		isClear bool
		value   Value
	}
	var prepared []preparedUpdate

	for _, key := range Keys() {
		update, ok := updates[string(key)]
		if !ok {
			continue
		}
		def := definitionsByKey[key]

		if def.IsSecret && update.IsClear() {
			prepared = append(prepared, preparedUpdate{def: def, isClear: true})
			continue
		}

		v, err := ParseAndValidate(key, update.Raw())
		if err != nil {
			result.FieldErrors[key] = validationMessage(err)
			continue
		}
		if def.IsSecret && !s.cipher.Configured() {
			result.FieldErrors[key] = "encryption key not configured; cannot save secret"
			continue
		}
		prepared = append(prepared, preparedUpdate{def: def, value: v})
	}

	if len(result.FieldErrors) > 0 {
		return result
	}

	keys := make([]Key, len(prepared))
	for i, item := range prepared {
		keys[i] = item.def.Key
	}
	current, err := s.loadCurrentRows(ctx, keys)
	if err != nil {
		slog.Warn("load current settings failed", slog.Any("error", err))
		result.StorageAvailable = false
		return result
	}

	for _, item := range prepared {
		key := item.def.Key
		currentRow, exists := current[key]

		// Clearing a key that was never stored is a no-op.
		if item.isClear && !exists {
			continue
		}

		action := AuditUpdate
		switch {
		case !exists:
			action = AuditCreate
		case item.isClear:
			action = AuditDelete
		}

		row := SettingRow{
			Key:       key,
			ValueType: item.def.Type,
			IsSecret:  item.def.IsSecret,
			UpdatedBy: actor,
		}
		if !item.isClear {
			if item.def.IsSecret {
				token, err := s.cipher.Encrypt(item.value.Str())
				if err != nil {
					result.FieldErrors[key] = "encryption key not configured; cannot save secret"
					continue
				}
				row.ValueEncrypted = &token
			} else {
				text := SerializeForStorage(item.def, item.value)
				row.ValueText = &text
			}
		}

		if err := s.store.Upsert(ctx, row); err != nil {
			slog.Error("setting upsert failed", slog.String("key", string(key)), slog.Any("error", err))
			result.FieldErrors[key] = "could not persist setting"
			continue
		}

		var oldRedacted *string
		if exists {
			r := RedactStoredText(currentText(currentRow, item.def.IsSecret), item.def.IsSecret)
			oldRedacted = &r
		}
		newRedacted := "[empty]"
		if !item.isClear {
			newRedacted = RedactForAudit(item.value, item.def.IsSecret)
		}

		if err := s.store.AppendAudit(ctx, AuditEntry{
			Key:       string(key),
			Action:    action,
			OldValue:  oldRedacted,
			NewValue:  &newRedacted,
			ChangedBy: actor,
		}); err != nil {
			slog.Error("audit append failed", slog.String("key", string(key)), slog.Any("error", err))
		}

		result.UpdatedKeys = append(result.UpdatedKeys, key)
	}

	s.resolver.InvalidateCache()

	result.Success = len(result.FieldErrors) == 0
	return result
}

func currentText(row SettingRow, isSecret bool) string {
	if isSecret {
		if row.ValueEncrypted != nil && *row.ValueEncrypted != "" {
			return *row.ValueEncrypted
		}
	}
	if row.ValueText != nil {
		return *row.ValueText
	}
	return ""
}

func validationMessage(err error) string {
	if verr, ok := err.(*ValidationError); ok {
		return verr.Reason
	}
	return "invalid value"
}

func (s *Service) loadCurrentRows(ctx context.Context, keys []Key) (map[Key]SettingRow, error) {
	rows, err := s.store.Load(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	out := make(map[Key]SettingRow, len(rows))
	for _, row := range rows {
		if IsKnownKey(row.Key) {
			out[row.Key] = row
		}
	}
	return out, nil
}

// SeedDefaults inserts a row for every non-secret key that has never
// been written, so the admin console starts from a materialized state.
// Secrets are never seeded.
func (s *Service) SeedDefaults(ctx context.Context, actor string) {
	if !s.resolver.StorageAvailable(ctx) {
		return
	}

	seeded := false
	for _, def := range definitions {
		if def.IsSecret {
			continue
		}
		value, _ := fallbackValue(def)
		text := SerializeForStorage(def, value)
		inserted, err := s.store.InsertIfAbsent(ctx, SettingRow{
			Key:       def.Key,
			ValueText: &text,
			ValueType: def.Type,
			UpdatedBy: actor,
		})
		if err != nil {
			slog.Warn("seed default failed", slog.String("key", string(def.Key)), slog.Any("error", err))
			continue
		}
		if !inserted {
			continue
		}
		seeded = true

		redacted := RedactForAudit(value, false)
		if err := s.store.AppendAudit(ctx, AuditEntry{
			Key:       string(def.Key),
			Action:    AuditCreate,
			NewValue:  &redacted,
			ChangedBy: actor,
		}); err != nil {
			slog.Warn("seed audit failed", slog.String("key", string(def.Key)), slog.Any("error", err))
		}
	}

	if seeded {
		s.resolver.InvalidateCache()
	}
}

// GetAdminPayload assembles the full admin view: availability, per-key
// warnings, every setting (secrets blanked) and the recent audit trail.
// On the first successful read it seeds missing non-secret defaults.
func (s *Service) GetAdminPayload(ctx context.Context) AdminPayload {
	storageAvailable := s.resolver.StorageAvailable(ctx)
	if storageAvailable {
		s.SeedDefaults(ctx, "admin_panel")
	}

	resolved := s.resolver.ResolveAll(ctx, false)

	warnings := []string{}
	if !storageAvailable {
		warnings = append(warnings, "Settings storage is unavailable. Using env/default values only.")
	}

	fields := make([]AdminField, 0, len(definitions))
	for _, key := range Keys() {
		setting := resolved[key]
		value := setting.Value
		if setting.Definition.IsSecret {
			value = StringValue("")
		}
		fields = append(fields, AdminField{
			Key:         setting.Key,
			Label:       setting.Definition.Label,
			Description: setting.Definition.Description,
			Section:     setting.Definition.Section,
			Type:        setting.Definition.Type,
			IsSecret:    setting.Definition.IsSecret,
			Options:     setting.Definition.Options,
			Source:      setting.Source,
			Value:       value,
			IsSet:       setting.IsSet,
			Warning:     setting.Warning,
		})
	}

	audit := []AuditItem{}
	if storageAvailable {
		entries, err := s.store.RecentAudit(ctx, 20)
		if err != nil {
			slog.Warn("load audit failed", slog.Any("error", err))
		} else {
			for _, e := range entries {
				audit = append(audit, AuditItem{
					ID:        e.ID,
					Key:       e.Key,
					Action:    string(e.Action),
					OldValue:  e.OldValue,
					NewValue:  e.NewValue,
					ChangedAt: e.ChangedAt.UTC().Format(time.RFC3339),
					ChangedBy: e.ChangedBy,
				})
			}
		}
	}

	return AdminPayload{
		StorageAvailable: storageAvailable,
		Warnings:         warnings,
		Settings:         fields,
		Audit:            audit,
	}
}
