package routing

import (
	"fmt"
	"strings"

	"github.com/juristcu/juristcu-api/internal/core/domain"
)

// Selection is the provider and credential the next call must use.
type Selection struct {
	Provider   domain.ProviderID
	KeyIndex   int
	Credential string
}

// Transition describes what a reported failure did to the router.
type Transition struct {
	From       domain.ProviderID
	To         domain.ProviderID
	KeyRotated bool
	Exhausted  bool
	Ignored    bool
}

// Router is the provider failover state machine for one scan:
// GeminiActive(key) -> ClaudeActive -> OpenAIActive -> AllExhausted.
// Every transition is one-way. A Router must not be shared between scans
// and is not safe for concurrent use.
type Router struct {
	geminiKeys []string
	claudeKey  string
	openAIKey  string

	active    domain.ProviderID
	keyIndex  int
	exhausted map[domain.ProviderID]bool
}

func NewRouter(creds domain.ProviderCredentials) *Router {
	keys := make([]string, 0, len(creds.GeminiKeys))
	for _, k := range creds.GeminiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	r := &Router{
		geminiKeys: keys,
		claudeKey:  strings.TrimSpace(creds.ClaudeKey),
		openAIKey:  strings.TrimSpace(creds.OpenAIKey),
		exhausted:  make(map[domain.ProviderID]bool, len(domain.ProviderChain)),
	}
	r.active = r.nextAvailable(-1)
	return r
}

func (r *Router) configured(p domain.ProviderID) bool {
	switch p {
	case domain.ProviderGemini:
		return len(r.geminiKeys) > 0
	case domain.ProviderClaude:
		return r.claudeKey != ""
	case domain.ProviderOpenAI:
		return r.openAIKey != ""
	default:
		return false
	}
}

// Configured reports whether any provider had a credential at construction time.
func (r *Router) Configured() bool {
	for _, p := range domain.ProviderChain {
		if r.configured(p) {
			return true
		}
	}
	return false
}

// nextAvailable returns the first configured, non-exhausted provider after chain index
// `after`, or "" when the chain is spent.
func (r *Router) nextAvailable(after int) domain.ProviderID {
	for i := after + 1; i < len(domain.ProviderChain); i++ {
		p := domain.ProviderChain[i]
		if r.configured(p) && !r.exhausted[p] {
			return p
		}
	}
	return ""
}

func chainIndex(p domain.ProviderID) int {
	for i, c := range domain.ProviderChain {
		if c == p {
			return i
		}
	}
	return len(domain.ProviderChain)
}

// Current returns the active provider, or ErrAllProvidersExhausted in the terminal state.
func (r *Router) Current() (Selection, error) {
	switch r.active {
	case domain.ProviderGemini:
		return Selection{Provider: domain.ProviderGemini, KeyIndex: r.keyIndex, Credential: r.geminiKeys[r.keyIndex]}, nil
	case domain.ProviderClaude:
		return Selection{Provider: domain.ProviderClaude, Credential: r.claudeKey}, nil
	case domain.ProviderOpenAI:
		return Selection{Provider: domain.ProviderOpenAI, Credential: r.openAIKey}, nil
	default:
		return Selection{}, domain.ErrAllProvidersExhausted
	}
}

// ReportFailure applies a failed call of provider to the state machine. Gemini rotates
// to its next key before giving up; Claude and OpenAI are exhausted on any error kind.
// Reports for a provider other than the active one are stale and ignored.
//
// TODO: kind is not consulted yet. Non-quota Claude and OpenAI errors escalate the
// chain the same as quota ones; decide whether they should get bounded retries first.
func (r *Router) ReportFailure(provider domain.ProviderID, kind domain.ErrorKind) Transition {
	if r.active == "" || provider != r.active {
		return Transition{From: provider, To: r.active, Ignored: true}
	}

	if provider == domain.ProviderGemini && r.keyIndex+1 < len(r.geminiKeys) {
		r.keyIndex++
		return Transition{From: provider, To: provider, KeyRotated: true}
	}

	r.exhausted[provider] = true
	r.active = r.nextAvailable(chainIndex(provider))
	return Transition{From: provider, To: r.active, Exhausted: true}
}

// Snapshot reports the per-provider status for responses and audit records.
func (r *Router) Snapshot() domain.ProviderState {
	state := domain.ProviderState{
		Active:         r.active,
		AllExhausted:   r.active == "" && r.Configured(),
		GeminiKeyIndex: r.keyIndex,
		GeminiKeyCount: len(r.geminiKeys),
		Providers:      make(map[domain.ProviderID]domain.ProviderStatus, len(domain.ProviderChain)),
	}
	for _, p := range domain.ProviderChain {
		switch {
		case !r.configured(p):
			state.Providers[p] = domain.ProviderNotConfigured
		case r.exhausted[p]:
			state.Providers[p] = domain.ProviderExhausted
		case p == r.active:
			state.Providers[p] = domain.ProviderActive
		default:
			state.Providers[p] = domain.ProviderAvailable
		}
	}
	return state
}

func (r *Router) String() string {
	switch r.active {
	case "":
		return "all_exhausted"
	case domain.ProviderGemini:
		return fmt.Sprintf("gemini[%d/%d]", r.keyIndex+1, len(r.geminiKeys))
	default:
		return string(r.active)
	}
}
