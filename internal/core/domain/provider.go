package domain

import (
	"fmt"
	"strings"
)

type ProviderID string

const (
	ProviderGemini ProviderID = "gemini"
	ProviderClaude ProviderID = "claude"
	ProviderOpenAI ProviderID = "openai"
)

// ProviderChain is the fixed fallback order.
var ProviderChain = []ProviderID{ProviderGemini, ProviderClaude, ProviderOpenAI}

type ErrorKind string

const (
	KindRateLimited       ErrorKind = "rate_limited"
	KindQuotaExhausted    ErrorKind = "quota_exhausted"
	KindInvalidCredential ErrorKind = "invalid_credential"
	KindPermissionDenied  ErrorKind = "permission_denied"
	KindTransient         ErrorKind = "transient_error"
)

// Sentinel maps the kind onto the matching error sentinel.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindRateLimited:
		return ErrProviderRateLimited
	case KindQuotaExhausted:
		return ErrProviderQuotaExhausted
	case KindInvalidCredential:
		return ErrProviderInvalidCred
	case KindPermissionDenied:
		return ErrProviderPermission
	default:
		return ErrProviderTransient
	}
}

// ProviderError is the failure shape every completion client surfaces.
type ProviderError struct {
	Provider   ProviderID
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ProviderCredentials holds what the router may hand out per provider.
type ProviderCredentials struct {
	GeminiKeys []string
	ClaudeKey  string
	OpenAIKey  string
}

func (c ProviderCredentials) Configured(provider ProviderID) bool {
	switch provider {
	case ProviderGemini:
		return len(c.GeminiKeys) > 0
	case ProviderClaude:
		return strings.TrimSpace(c.ClaudeKey) != ""
	case ProviderOpenAI:
		return strings.TrimSpace(c.OpenAIKey) != ""
	default:
		return false
	}
}

func (c ProviderCredentials) Any() bool {
	for _, p := range ProviderChain {
		if c.Configured(p) {
			return true
		}
	}
	return false
}

type ProviderStatus string

const (
	ProviderNotConfigured ProviderStatus = "not_configured"
	ProviderAvailable     ProviderStatus = "available"
	ProviderActive        ProviderStatus = "active"
	ProviderExhausted     ProviderStatus = "exhausted"
)

// ProviderState is a read-only view of the router at a point in time.
type ProviderState struct {
	Active         ProviderID                    `json:"active,omitempty"`
	AllExhausted   bool                          `json:"all_exhausted"`
	GeminiKeyIndex int                           `json:"gemini_key_index"`
	GeminiKeyCount int                           `json:"gemini_key_count"`
	Providers      map[ProviderID]ProviderStatus `json:"providers"`
}
