// Package config implements the runtime configuration engine: a closed
// registry of typed settings resolved from three layers (database row,
// environment variable, hardcoded default), with encrypted secrets,
// audit logging and a time-boxed cache.
package config

import "os"

// Key identifies one configurable setting. The set of keys is closed:
// every key is registered below at init and none are created at runtime.
type Key string

const (
	KeyAIProvider           Key = "ai.provider"
	KeyAIGroqAPIKey         Key = "ai.groq.api_key"
	KeyAIGroqModel          Key = "ai.groq.model"
	KeyAIGroqMaxTokens      Key = "ai.groq.max_tokens"
	KeyAIFallbackEnabled    Key = "ai.fallback.enabled"
	KeyJobsSourceMode       Key = "jobs.source_mode"
	KeyJobsFallbackEnabled  Key = "jobs.fallback.enabled"
	KeyJobsAdvancedMatching Key = "jobs.advanced_matching.enabled"
	KeySiteBaseURL          Key = "site.base_url"
	KeySiteGoogleVerify     Key = "site.google_verification"
	KeySiteSocialLinks      Key = "site.social_links"
)

// Type is the value type of a setting.
type Type string

const (
	TypeString  Type = "string"
	TypeBoolean Type = "boolean"
	TypeNumber  Type = "number"
	TypeJSON    Type = "json"
	TypeSecret  Type = "secret"
)

// Section groups settings in the admin console.
type Section string

const (
	SectionAI   Section = "ai"
	SectionJobs Section = "jobs"
	SectionSite Section = "site"
)

// Source tags which layer supplied a resolved value.
type Source string

const (
	SourceDB      Source = "db"
	SourceEnv     Source = "env"
	SourceDefault Source = "default"
)

// Definition describes one setting: how it is typed, validated,
// displayed, and which environment variables may back it.
type Definition struct {
	Key          Key
	Label        string
	Description  string
	Section      Section
	Type         Type
	IsSecret     bool
	EnvFallbacks []string // checked in order, first non-empty wins
	Default      Value
	Options      []string // non-nil = enum-constrained string
}

// DefaultSiteURL is the canonical site URL used when nothing else is configured.
const DefaultSiteURL = "https://optcareerconnect.com"

// definitions holds the registry in registration order.
var definitions = []Definition{
	{
		Key:          KeyAIProvider,
		Label:        "AI Provider",
		Description:  "Whether resume analysis uses Groq or local fallback scoring.",
		Section:      SectionAI,
		Type:         TypeString,
		EnvFallbacks: []string{"AI_PROVIDER"},
		Default:      StringValue("groq"),
		Options:      []string{"groq", "fallback"},
	},
	{
		Key:          KeyAIGroqAPIKey,
		Label:        "Groq API Key",
		Description:  "Secret key used for Groq chat completions.",
		Section:      SectionAI,
		Type:         TypeSecret,
		IsSecret:     true,
		EnvFallbacks: []string{"GROQ_API_KEY"},
		Default:      StringValue(""),
	},
	{
		Key:          KeyAIGroqModel,
		Label:        "Groq Model",
		Description:  "Model used for resume analysis prompts.",
		Section:      SectionAI,
		Type:         TypeString,
		EnvFallbacks: []string{"GROQ_MODEL"},
		Default:      StringValue("mixtral-8x7b-32768"),
	},
	{
		Key:          KeyAIGroqMaxTokens,
		Label:        "Groq Max Tokens",
		Description:  "Completion token budget for resume analysis calls.",
		Section:      SectionAI,
		Type:         TypeNumber,
		EnvFallbacks: []string{"GROQ_MAX_TOKENS"},
		Default:      NumberValue(1000),
	},
	{
		Key:          KeyAIFallbackEnabled,
		Label:        "AI Fallback Enabled",
		Description:  "Allow local heuristic scoring when Groq fails or is disabled.",
		Section:      SectionAI,
		Type:         TypeBoolean,
		EnvFallbacks: []string{"AI_FALLBACK_ENABLED"},
		Default:      BoolValue(true),
	},
	{
		Key:          KeyJobsSourceMode,
		Label:        "Jobs Source Mode",
		Description:  "How job search chooses between database and local fallback data.",
		Section:      SectionJobs,
		Type:         TypeString,
		EnvFallbacks: []string{"JOBS_SOURCE_MODE"},
		Default:      StringValue("auto"),
		Options:      []string{"auto", "database", "fallback"},
	},
	{
		Key:          KeyJobsFallbackEnabled,
		Label:        "Jobs Fallback Enabled",
		Description:  "Allow the fallback jobs dataset when the database is unavailable.",
		Section:      SectionJobs,
		Type:         TypeBoolean,
		EnvFallbacks: []string{"JOBS_FALLBACK_ENABLED"},
		Default:      BoolValue(true),
	},
	{
		Key:          KeyJobsAdvancedMatching,
		Label:        "Advanced Matching Enabled",
		Description:  "Enable resume-driven score boosting in job search.",
		Section:      SectionJobs,
		Type:         TypeBoolean,
		EnvFallbacks: []string{"JOBS_ADVANCED_MATCHING_ENABLED"},
		Default:      BoolValue(true),
	},
	{
		Key:          KeySiteBaseURL,
		Label:        "Site Base URL",
		Description:  "Canonical URL used for links and social tags.",
		Section:      SectionSite,
		Type:         TypeString,
		EnvFallbacks: []string{"SITE_BASE_URL", "PUBLIC_SITE_URL"},
		Default:      StringValue(DefaultSiteURL),
	},
	{
		Key:          KeySiteGoogleVerify,
		Label:        "Google Site Verification",
		Description:  "Value for the Search Console verification meta tag.",
		Section:      SectionSite,
		Type:         TypeString,
		EnvFallbacks: []string{"GOOGLE_SITE_VERIFICATION"},
		Default:      StringValue(""),
	},
	{
		Key:          KeySiteSocialLinks,
		Label:        "Social Links",
		Description:  "JSON object mapping network name to profile URL.",
		Section:      SectionSite,
		Type:         TypeJSON,
		EnvFallbacks: []string{"SITE_SOCIAL_LINKS"},
		Default:      JSONValue(map[string]any{}),
	},
}

var definitionsByKey = func() map[Key]Definition {
	m := make(map[Key]Definition, len(definitions))
	for _, d := range definitions {
		m[d.Key] = d
	}
	return m
}()

// Keys returns every registered key in registration order.
func Keys() []Key {
	keys := make([]Key, len(definitions))
	for i, d := range definitions {
		keys[i] = d.Key
	}
	return keys
}

// DefinitionOf returns the definition for key. Keys obtained from Keys()
// always resolve; an externally supplied key may not.
func DefinitionOf(key Key) (Definition, error) {
	d, ok := definitionsByKey[key]
	if !ok {
		return Definition{}, &UnknownKeyError{Key: string(key)}
	}
	return d, nil
}

// IsKnownKey reports whether key is part of the closed registry.
func IsKnownKey(key Key) bool {
	_, ok := definitionsByKey[key]
	return ok
}

// EnvOverride scans the definition's fallback variables in order and
// returns the first non-empty value. ok is false when none is set.
func EnvOverride(def Definition) (string, bool) {
	for _, name := range def.EnvFallbacks {
		if v := os.Getenv(name); v != "" {
			return v, true
		}
	}
	return "", false
}
