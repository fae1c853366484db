package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestAIConfig_InvalidBaseURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.AI.BaseURL = "not a url"
	err := cfg.Validate()
	if err == nil || !strings.HasPrefix(err.Error(), "ai: ") {
		t.Fatalf("invalid base url should fail, got %v", err)
	}
}

func TestAIConfig_Bounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.AI.Temperature = 3
	if err := cfg.Validate(); err == nil {
		t.Error("temperature above 2 should fail")
	}

	cfg = NewDefaultConfig()
	cfg.AI.Timeout = time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Error("sub-second timeout should fail")
	}
}

func TestAIConfig_EmptyKeyAllowed(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.AI.APIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty api key should be allowed: %v", err)
	}
	client := cfg.AI.Client()
	if client.BaseURL != cfg.AI.BaseURL || client.MaxTokens != cfg.AI.MaxTokens || client.Timeout != cfg.AI.Timeout {
		t.Errorf("client config = %+v", client)
	}
}

func TestEditorConfig_UnknownSort(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Editor.DefaultSort = "size"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown default sort should fail")
	}
}

func TestInboxConfig_Enabled(t *testing.T) {
	cfg := InboxConfig{}
	if cfg.Enabled() {
		t.Error("empty dir should disable the inbox")
	}
	cfg.Dir = "./inbox"
	if !cfg.Enabled() {
		t.Error("inbox with dir should be enabled")
	}
}
