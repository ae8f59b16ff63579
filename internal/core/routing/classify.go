// Package routing decides which LLM provider serves each evaluation and how provider
// failures move the scan along the fallback chain.
package routing

import (
	"errors"
	"net/http"
	"strings"

	"github.com/juristcu/juristcu-api/internal/core/domain"
)

// rule matches when the status equals (status 0 matches any) and, if keywords are set,
// the message contains one of them. Keywords are compared lower-cased.
type rule struct {
	status   int
	keywords []string
	kind     domain.ErrorKind
}

func (r rule) match(status int, message string) bool {
	if r.status != 0 && r.status != status {
		return false
	}
	if len(r.keywords) == 0 {
		return r.status != 0
	}
	for _, kw := range r.keywords {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}

var commonRules = []rule{
	{status: http.StatusUnauthorized, kind: domain.KindInvalidCredential},
	{status: http.StatusForbidden, kind: domain.KindPermissionDenied},
}

var providerRules = map[domain.ProviderID][]rule{
	domain.ProviderOpenAI: {
		{keywords: []string{"insufficient_quota", "quota"}, kind: domain.KindQuotaExhausted},
		{status: http.StatusTooManyRequests, kind: domain.KindRateLimited},
		{keywords: []string{"rate_limit", "429"}, kind: domain.KindRateLimited},
	},
	domain.ProviderClaude: {
		{status: http.StatusPaymentRequired, kind: domain.KindQuotaExhausted},
		{keywords: []string{"credit"}, kind: domain.KindQuotaExhausted},
		{status: http.StatusTooManyRequests, kind: domain.KindRateLimited},
		{keywords: []string{"rate_limit"}, kind: domain.KindRateLimited},
	},
	domain.ProviderGemini: {
		{keywords: []string{"resource_exhausted", "quota"}, kind: domain.KindQuotaExhausted},
		{status: http.StatusTooManyRequests, kind: domain.KindRateLimited},
		{keywords: []string{"api_key_invalid", "api key not valid"}, kind: domain.KindInvalidCredential},
		{keywords: []string{"permission_denied"}, kind: domain.KindPermissionDenied},
	},
}

// Classify maps a raw provider failure onto an ErrorKind. Providers expose no common
// error taxonomy, so the tables are heuristic; anything unmatched is transient.
func Classify(provider domain.ProviderID, statusCode int, message string) domain.ErrorKind {
	msg := strings.ToLower(message)
	for _, r := range commonRules {
		if r.match(statusCode, msg) {
			return r.kind
		}
	}
	for _, r := range providerRules[provider] {
		if r.match(statusCode, msg) {
			return r.kind
		}
	}
	return domain.KindTransient
}

// ClassifyError classifies any error returned by a completion client.
func ClassifyError(provider domain.ProviderID, err error) domain.ErrorKind {
	if err == nil {
		return domain.KindTransient
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		msg := perr.Message
		if msg == "" && perr.Err != nil {
			msg = perr.Err.Error()
		}
		return Classify(provider, perr.StatusCode, msg)
	}
	return Classify(provider, 0, err.Error())
}
