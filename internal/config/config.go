package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the webphone service.
type Config struct {
	BindAddr         string
	MetricsNamespace string
	AllowAnyOrigin   bool
	ShutdownGrace    time.Duration

	AccountID       string
	Username        string
	Password        string
	ApplicationID   string
	ServiceNumber   string
	CallbackBaseURL string

	MediaAPIURL        string
	VoiceAPIURL        string
	SIPInterconnectURI string

	FarEndCallTimeout     time.Duration
	TunnelCallTimeout     time.Duration
	TunnelCallbackTimeout time.Duration
}

// Load reads environment variables and applies safe defaults. Platform
// credentials, the service number, the voice application id and the public
// callback base URL have no defaults; a missing value is a startup error.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":5000"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "webphone"),
		AccountID:          strings.TrimSpace(os.Getenv("BW_ACCOUNT_ID")),
		Username:           strings.TrimSpace(os.Getenv("BW_USERNAME")),
		Password:           strings.TrimSpace(os.Getenv("BW_PASSWORD")),
		ApplicationID:      strings.TrimSpace(os.Getenv("BW_VOICE_APPLICATION_ID")),
		ServiceNumber:      strings.TrimSpace(os.Getenv("BW_NUMBER")),
		CallbackBaseURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("BASE_CALLBACK_URL")), "/"),
		MediaAPIURL:        envOrDefault("BANDWIDTH_WEBRTC_API_URL", "https://api.webrtc.bandwidth.com/v1"),
		VoiceAPIURL:        envOrDefault("BANDWIDTH_VOICE_API_URL", "https://voice.bandwidth.com/api/v2"),
		SIPInterconnectURI: envOrDefault("SIP_URI", "sip:sipx.webrtc.bandwidth.com:5060"),
		// The control plane enforces its own call and callback timeouts; these
		// are the values passed along on call creation.
		FarEndCallTimeout:     90 * time.Second,
		TunnelCallTimeout:     60 * time.Second,
		TunnelCallbackTimeout: 25 * time.Second,
		ShutdownGrace:         10 * time.Second,
	}

	var err error
	cfg.ShutdownGrace, err = durationFromEnv("APP_SHUTDOWN_GRACE", cfg.ShutdownGrace)
	if err != nil {
		return Config{}, err
	}
	cfg.FarEndCallTimeout, err = durationFromEnv("BW_CALL_TIMEOUT", cfg.FarEndCallTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TunnelCallTimeout, err = durationFromEnv("BW_TUNNEL_CALL_TIMEOUT", cfg.TunnelCallTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TunnelCallbackTimeout, err = durationFromEnv("BW_TUNNEL_CALLBACK_TIMEOUT", cfg.TunnelCallbackTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", false)
	if err != nil {
		return Config{}, err
	}

	var missing []string
	for _, v := range []struct {
		key   string
		value string
	}{
		{"BW_ACCOUNT_ID", cfg.AccountID},
		{"BW_USERNAME", cfg.Username},
		{"BW_PASSWORD", cfg.Password},
		{"BW_VOICE_APPLICATION_ID", cfg.ApplicationID},
		{"BW_NUMBER", cfg.ServiceNumber},
		{"BASE_CALLBACK_URL", cfg.CallbackBaseURL},
	} {
		if v.value == "" {
			missing = append(missing, v.key)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// CallbackURL joins a webhook path onto the public callback base URL.
func (c Config) CallbackURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.CallbackBaseURL + path
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
