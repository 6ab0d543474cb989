package state

import (
	"context"
	"log"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"hsplit/config"
)

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)
	if env != EnvFromContext(ctx) {
		t.Error("EnvFromContext() must return the same environment")
	}
	if env.Uptime() < 0 {
		t.Error("Uptime() is negative")
	}

	derived, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if EnvFromContext(derived) != env {
		t.Error("environment is lost in derived context")
	}
}

func TestEnvFromContext_Missing(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for context without environment")
		}
	}()
	EnvFromContext(context.Background())
}

func TestEmbeddedSiteFiles(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))

	for _, want := range []string{`{{ template "nav" .TOC }}`, `.Page.Content`, `.Prev`, `.Next`, `.Stylesheets`} {
		if !strings.Contains(string(env.PageTemplate), want) {
			t.Errorf("embedded page template does not contain %q", want)
		}
	}
	if len(env.Stylesheet) == 0 {
		t.Error("embedded stylesheet is empty")
	}
	if env.CodePage != nil || env.SourceEncoding != nil {
		t.Error("encodings must not be forced by default")
	}
}

func TestRulesName(t *testing.T) {
	tests := []struct {
		name  string
		cfg   *config.Config
		rules string
		want  string
	}{
		{"nothing", nil, "", ""},
		{"configuration", &config.Config{Document: config.DocumentConfig{Rules: "renlei"}}, "", "renlei"},
		{"command line wins", &config.Config{Document: config.DocumentConfig{Rules: "renlei"}}, "silkroads.yaml", "silkroads.yaml"},
		{"command line only", nil, "sapiens", "sapiens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &LocalEnv{Cfg: tt.cfg, Rules: tt.rules}
			if got := env.RulesName(); got != tt.want {
				t.Errorf("RulesName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStdLogRedirection(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	env := EnvFromContext(ContextWithEnv(context.Background()))
	env.Log = zap.New(core)

	env.RedirectStdLog()
	log.Print("from standard logger")
	env.RestoreStdLog()

	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "from standard logger" {
		t.Errorf("captured entries = %+v", entries)
	}

	// second restore is harmless
	env.RestoreStdLog()
}

func TestRedirectWithoutLogger(t *testing.T) {
	env := &LocalEnv{}
	env.RedirectStdLog()
	env.RestoreStdLog()
}
