package config

import (
	"reflect"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_PORT", "PORT", "API_KEY", "API_KEY_PREFIX", "DEBUG_MODE", "MODO_DEBUG",
		"GEMINI_KEYS", "ANTHROPIC_API_KEY", "CLAUDE_API_KEY", "OPENAI_API_KEY",
		"CLAUDE_VERSION", "VERSAO_CLAUDE", "CHATGPT_VERSION", "VERSAO_CHATGPT",
		"LLM_TEMPERATURE", "LLM_MAX_TOKENS", "COURTESY_DELAY_MS", "NATS_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.APIPort != "3000" || cfg.APIKeyPrefix != "tcu_" {
		t.Fatalf("unexpected port/prefix defaults: %q %q", cfg.APIPort, cfg.APIKeyPrefix)
	}
	if cfg.ClaudeVersion != "sonnet-4.5" || cfg.ChatGPTVersion != "4.1" {
		t.Fatalf("unexpected model version defaults: %q %q", cfg.ClaudeVersion, cfg.ChatGPTVersion)
	}
	if cfg.LLMTemperature != 0.1 || cfg.LLMMaxTokens != 500 || cfg.CourtesyDelayMS != 500 {
		t.Fatalf("unexpected llm defaults: %+v", cfg)
	}
	if cfg.NATSURL != "" || cfg.DebugMode {
		t.Fatalf("expected events and debug disabled by default")
	}
}

func TestLoadParsesGeminiKeyList(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_KEYS", " k1, ,k2 ,,k3")

	cfg := Load()
	if !reflect.DeepEqual(cfg.GeminiKeys, []string{"k1", "k2", "k3"}) {
		t.Fatalf("unexpected gemini keys %q", cfg.GeminiKeys)
	}
}

func TestLoadHonorsLegacyNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("CLAUDE_API_KEY", "sk-ant")
	t.Setenv("VERSAO_CHATGPT", "4o")
	t.Setenv("MODO_DEBUG", "true")

	cfg := Load()
	if cfg.APIPort != "8081" || cfg.AnthropicAPIKey != "sk-ant" || cfg.ChatGPTVersion != "4o" || !cfg.DebugMode {
		t.Fatalf("legacy names not applied: %+v", cfg)
	}

	t.Setenv("API_PORT", "9000")
	t.Setenv("DEBUG_MODE", "false")
	cfg = Load()
	if cfg.APIPort != "9000" || cfg.DebugMode {
		t.Fatalf("expected primary names to win, got port %q debug %v", cfg.APIPort, cfg.DebugMode)
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_TEMPERATURE", "warm")
	t.Setenv("LLM_MAX_TOKENS", "many")

	cfg := Load()
	if cfg.LLMTemperature != 0.1 || cfg.LLMMaxTokens != 500 {
		t.Fatalf("expected fallbacks, got %v %d", cfg.LLMTemperature, cfg.LLMMaxTokens)
	}
}

func TestValidate(t *testing.T) {
	base := Config{APIKey: "tcu_secret", APIKeyPrefix: "tcu_", PostgresDSN: "postgres://x", OpenAIAPIKey: "sk"}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	missing := base
	missing.APIKey = ""
	if err := missing.Validate(); err == nil || !strings.Contains(err.Error(), "API_KEY is required") {
		t.Fatalf("expected missing API_KEY error, got %v", err)
	}

	badPrefix := base
	badPrefix.APIKey = "abc"
	if err := badPrefix.Validate(); err == nil || !strings.Contains(err.Error(), `must start with "tcu_"`) {
		t.Fatalf("expected prefix error, got %v", err)
	}

	noProviders := base
	noProviders.OpenAIAPIKey = ""
	if err := noProviders.Validate(); err == nil || !strings.Contains(err.Error(), "at least one provider") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestValidateWorkerRequiresNATS(t *testing.T) {
	cfg := Config{PostgresDSN: "postgres://x"}
	if err := cfg.ValidateWorker(); err == nil {
		t.Fatalf("expected NATS_URL error")
	}
	cfg.NATSURL = "nats://localhost:4222"
	if err := cfg.ValidateWorker(); err != nil {
		t.Fatalf("ValidateWorker() error = %v", err)
	}
}

func TestMaskedAPIKey(t *testing.T) {
	if got := (Config{APIKey: "tcu_0123456789abcdef"}).MaskedAPIKey(); got != "tcu_012345..." {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := (Config{APIKey: "tcu_ab"}).MaskedAPIKey(); got != "tcu_..." {
		t.Fatalf("unexpected short mask %q", got)
	}
}
