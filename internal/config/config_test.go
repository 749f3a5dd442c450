package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8080 || cfg.Mode != "release" {
		t.Fatalf("server defaults = %+v", cfg)
	}
	if cfg.Sessions.MaxParticipants != 4 || cfg.Sessions.RecentLimit != 20 {
		t.Fatalf("sessions = %+v", cfg.Sessions)
	}
	if cfg.Stream.TokenTTL != time.Hour || cfg.Client.PollInterval != 5*time.Second {
		t.Fatalf("durations: ttl=%v poll=%v", cfg.Stream.TokenTTL, cfg.Client.PollInterval)
	}
	if cfg.Client.CallType != "livestream" || cfg.Client.ChannelKind != "messaging" {
		t.Fatalf("client = %+v", cfg.Client)
	}
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := inTempDir(t)
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := []byte("port: 9000\nsessions:\n  max_participants: 8\nauth:\n  jwt_secret: from-file\n")
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("COLLAB_AUTH_JWT_SECRET", "from-env")

	flags := pflag.NewFlagSet("agent", pflag.ContinueOnError)
	flags.String("client.session_id", "", "")
	flags.Bool("client.join", false, "")
	if err := flags.Parse([]string{"--client.session_id=s-1", "--client.join"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9000 || cfg.Sessions.MaxParticipants != 8 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Fatalf("jwt secret = %q, want env override", cfg.Auth.JWTSecret)
	}
	if cfg.Client.SessionID != "s-1" || !cfg.Client.Join {
		t.Fatalf("flags not applied: %+v", cfg.Client)
	}
}

func TestLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"":      zerolog.InfoLevel,
		"bogus": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := (&Config{LogLevel: in}).Level(); got != want {
			t.Errorf("Level(%q) = %v, want %v", in, got, want)
		}
	}
}
