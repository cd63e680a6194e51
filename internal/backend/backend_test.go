package backend

import (
	"context"
	"strings"
	"testing"
	"time"

	"billed/internal/config"
)

type staticTokens struct{}

func (staticTokens) Token(ctx context.Context) (string, error) { return "token", nil }

func TestTypeIsValid(t *testing.T) {
	tests := []struct {
		typ   Type
		valid bool
	}{
		{APIBackend, true},
		{MemoryBackend, true},
		{Type("sqlite"), false},
		{Type(""), false},
	}
	for _, tt := range tests {
		if got := tt.typ.IsValid(); got != tt.valid {
			t.Errorf("Type(%q).IsValid() = %v, want %v", tt.typ, got, tt.valid)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	appCfg := &config.Config{
		StoreBackend:   "api",
		APIBaseURL:     "http://localhost:5678",
		RequestTimeout: 10 * time.Second,
	}

	cfg, err := FromAppConfig(appCfg, staticTokens{})
	if err != nil {
		t.Fatalf("FromAppConfig returned error: %v", err)
	}
	if cfg.Type != APIBackend {
		t.Errorf("Type = %q, want %q", cfg.Type, APIBackend)
	}
	if cfg.APIBaseURL != appCfg.APIBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, appCfg.APIBaseURL)
	}
	if cfg.Tokens == nil {
		t.Error("expected token source to be carried over")
	}
}

func TestFromAppConfigRejectsUnknownType(t *testing.T) {
	_, err := FromAppConfig(&config.Config{StoreBackend: "sqlite"}, staticTokens{})
	if err == nil {
		t.Fatal("expected error for unknown backend type")
	}
	if !strings.Contains(err.Error(), "sqlite") {
		t.Errorf("error should name the offending type, got %q", err.Error())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory needs nothing", Config{Type: MemoryBackend}, false},
		{"api complete", Config{Type: APIBackend, APIBaseURL: "http://localhost:5678", Tokens: staticTokens{}}, false},
		{"api without url", Config{Type: APIBackend, Tokens: staticTokens{}}, true},
		{"api without tokens", Config{Type: APIBackend, APIBaseURL: "http://localhost:5678"}, true},
		{"unknown type", Config{Type: Type("bogus")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	factory := NewFactory(nil)

	result, err := factory.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend returned error: %v", err)
	}
	if result.Backend.Store == nil {
		t.Error("expected a bill store")
	}
	if result.Backend.Auth == nil {
		t.Error("expected an authenticator")
	}
}

func TestCreateAPIBackend(t *testing.T) {
	factory := NewFactory(nil)

	result, err := factory.CreateBackend(context.Background(), Config{
		Type:           APIBackend,
		APIBaseURL:     "http://localhost:5678",
		RequestTimeout: 5 * time.Second,
		Tokens:         staticTokens{},
	})
	if err != nil {
		t.Fatalf("CreateBackend returned error: %v", err)
	}
	if result.Backend.Store == nil || result.Backend.Auth == nil {
		t.Fatal("expected store and authenticator")
	}
	if result.Cleanup == nil {
		t.Fatal("expected a cleanup function for the api backend")
	}
	if err := result.Cleanup(); err != nil {
		t.Errorf("Cleanup returned error: %v", err)
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	factory := NewFactory(nil)

	if _, err := factory.CreateBackend(context.Background(), Config{Type: Type("bogus")}); err == nil {
		t.Fatal("expected error for invalid backend config")
	}
}
