package dali

import (
	"errors"
	"testing"
	"time"
)

func TestNewClientBuilder_Defaults(t *testing.T) {
	t.Parallel()
	client, err := NewClientBuilder().Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ClientConfig{
		Host:      "localhost",
		Port:      8000,
		Username:  "root",
		Password:  "root",
		Namespace: "test",
		Database:  "test",
	}
	if got := client.Config(); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if client.SQLEndpoint() != "http://localhost:8000/sql" {
		t.Fatalf("unexpected endpoint %q", client.SQLEndpoint())
	}
	if client.timeout != 0 {
		t.Fatalf("expected no timeout by default, got %s", client.timeout)
	}
}

func TestClientBuilder_Setters(t *testing.T) {
	t.Parallel()
	client, err := NewClientBuilder().
		Host("db.internal").
		Port(8443).
		Username("agent").
		Password("s3cret").
		Namespace("app").
		Database("prod").
		Timeout(5 * time.Second).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := client.Config()
	if cfg.Host != "db.internal" || cfg.Port != 8443 || cfg.Username != "agent" || cfg.Password != "s3cret" {
		t.Fatalf("unexpected connection fields %+v", cfg)
	}
	if cfg.Namespace != "app" || cfg.Database != "prod" {
		t.Fatalf("unexpected namespace/database %+v", cfg)
	}
	if client.timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", client.timeout)
	}
	if client.SQLEndpoint() != "http://db.internal:8443/sql" {
		t.Fatalf("unexpected endpoint %q", client.SQLEndpoint())
	}
}

func TestClientBuilder_SettersDoNotValidate(t *testing.T) {
	t.Parallel()
	client, err := NewClientBuilder().Host("").Port(-1).Username("").Namespace("").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := client.Config()
	if cfg.Host != "" || cfg.Port != -1 || cfg.Username != "" || cfg.Namespace != "" {
		t.Fatalf("expected values stored as given, got %+v", cfg)
	}
}

func TestClientBuilder_LastSetterWins(t *testing.T) {
	t.Parallel()
	client, err := NewClientBuilder().Database("a").Database("b").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Config().Database != "b" {
		t.Fatalf("expected b, got %q", client.Config().Database)
	}
}

func TestClientBuilder_NegativeTimeout(t *testing.T) {
	t.Parallel()
	_, err := NewClientBuilder().Timeout(-time.Second).Build()
	if err == nil {
		t.Fatal("expected error")
	}
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected *BuildError, got %T", err)
	}
	if buildErr.Field != "timeout" {
		t.Fatalf("expected field timeout, got %q", buildErr.Field)
	}
}

func TestClientConfig_BuilderRoundTrip(t *testing.T) {
	t.Parallel()
	cfg := ClientConfig{Host: "h", Port: 1, Username: "u", Password: "p", Namespace: "n", Database: "d"}
	client, err := cfg.Builder().Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Config() != cfg {
		t.Fatalf("expected %+v, got %+v", cfg, client.Config())
	}
}

func TestClient_ConfigReturnsCopy(t *testing.T) {
	t.Parallel()
	client, err := NewClientBuilder().Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := client.Config()
	cfg.Password = "changed"
	if client.Config().Password != "root" {
		t.Fatal("mutating the returned config changed the client")
	}
}

func TestBuilderReuse(t *testing.T) {
	t.Parallel()
	b := NewClientBuilder().Namespace("first")
	first, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := b.Namespace("second").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Config().Namespace != "first" || second.Config().Namespace != "second" {
		t.Fatalf("built clients share state: %q %q", first.Config().Namespace, second.Config().Namespace)
	}
}

func TestBasicAuth(t *testing.T) {
	t.Parallel()
	tests := []struct {
		user, pass string
		want       string
	}{
		{"test", "test", "Basic dGVzdDp0ZXN0"},
		{"root", "root", "Basic cm9vdDpyb290"},
		{"", "", "Basic Og=="},
		{"user", "p:ss", "Basic dXNlcjpwOnNz"},
	}
	for _, tt := range tests {
		if got := basicAuth(tt.user, tt.pass); got != tt.want {
			t.Errorf("basicAuth(%q, %q) = %q, want %q", tt.user, tt.pass, got, tt.want)
		}
	}
}

func TestAuthHeader_IsStable(t *testing.T) {
	t.Parallel()
	client, err := NewClientBuilder().Username("test").Password("test").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := client.authHeader()
	second := client.authHeader()
	if first != "Basic dGVzdDp0ZXN0" || first != second {
		t.Fatalf("expected stable header, got %q then %q", first, second)
	}
	if client.Config().Username != "test" || client.Config().Password != "test" {
		t.Fatalf("authHeader changed the config: %+v", client.Config())
	}
}

func TestBuildError_Message(t *testing.T) {
	t.Parallel()
	err := &BuildError{Field: "timeout", Reason: "must be >= 0, got -1s"}
	if err.Error() != "dali: invalid timeout: must be >= 0, got -1s" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
