package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":5000" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":5000")
	}
	if cfg.MediaAPIURL != "https://api.webrtc.bandwidth.com/v1" {
		t.Fatalf("MediaAPIURL = %q, want default", cfg.MediaAPIURL)
	}
	if cfg.SIPInterconnectURI != "sip:sipx.webrtc.bandwidth.com:5060" {
		t.Fatalf("SIPInterconnectURI = %q, want default", cfg.SIPInterconnectURI)
	}
	if cfg.FarEndCallTimeout != 90*time.Second {
		t.Fatalf("FarEndCallTimeout = %v, want 90s", cfg.FarEndCallTimeout)
	}
	if cfg.TunnelCallTimeout != 60*time.Second {
		t.Fatalf("TunnelCallTimeout = %v, want 60s", cfg.TunnelCallTimeout)
	}
	if cfg.ShutdownGrace != 10*time.Second {
		t.Fatalf("ShutdownGrace = %v, want 10s", cfg.ShutdownGrace)
	}
	if cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = true, want false by default")
	}
}

func TestLoadTrimsCallbackBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BASE_CALLBACK_URL", "https://example.ngrok.io/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CallbackBaseURL != "https://example.ngrok.io" {
		t.Fatalf("CallbackBaseURL = %q, want trailing slash trimmed", cfg.CallbackBaseURL)
	}
	if got := cfg.CallbackURL("/tunnelanswer"); got != "https://example.ngrok.io/tunnelanswer" {
		t.Fatalf("CallbackURL = %q", got)
	}
	if got := cfg.CallbackURL("callAnswer"); got != "https://example.ngrok.io/callAnswer" {
		t.Fatalf("CallbackURL without slash = %q", got)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BW_USERNAME", "")
	t.Setenv("BW_PASSWORD", "")

	_, err := Load()
	if err == nil {
		t.Fatalf("Load() expected error for missing credentials")
	}
	if !strings.Contains(err.Error(), "BW_USERNAME") || !strings.Contains(err.Error(), "BW_PASSWORD") {
		t.Fatalf("error %q should name the missing variables", err)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_SHUTDOWN_GRACE", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for invalid duration")
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BW_ACCOUNT_ID", "9900000")
	t.Setenv("BW_USERNAME", "api-user")
	t.Setenv("BW_PASSWORD", "api-pass")
	t.Setenv("BW_VOICE_APPLICATION_ID", "app-1234")
	t.Setenv("BW_NUMBER", "+15552223333")
	t.Setenv("BASE_CALLBACK_URL", "https://example.ngrok.io")
	t.Setenv("APP_BIND_ADDR", "")
	t.Setenv("APP_SHUTDOWN_GRACE", "")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "")
	t.Setenv("BANDWIDTH_WEBRTC_API_URL", "")
	t.Setenv("BANDWIDTH_VOICE_API_URL", "")
	t.Setenv("SIP_URI", "")
	t.Setenv("BW_CALL_TIMEOUT", "")
	t.Setenv("BW_TUNNEL_CALL_TIMEOUT", "")
	t.Setenv("BW_TUNNEL_CALLBACK_TIMEOUT", "")
}
