package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "BASE_URL", "DATABASE_URL",
		"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_PHONE_NUMBER", "TWILIO_API_URL",
		"WORKER_COUNT", "JOB_TIMEOUT", "MAX_RETRIES",
		"WIDGET_TTL", "SWEEP_INTERVAL", "PLACEMENT_PADDING",
		"CARD_RATE_PER_MINUTE", "CARD_RATE_BURST",
		"SMS_RATE_PER_MINUTE", "SMS_RATE_BURST",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port != "8080" || c.Env != "development" || c.BaseURL != "http://localhost:8080" {
		t.Errorf("server defaults = %q %q %q", c.Port, c.Env, c.BaseURL)
	}
	if c.WorkerCount != 3 || c.MaxRetries != 3 || c.JobTimeout != 15*time.Second {
		t.Errorf("worker defaults = %d %d %v", c.WorkerCount, c.MaxRetries, c.JobTimeout)
	}
	if c.PlacementPadding != 20 || c.WidgetTTL != 30*time.Minute {
		t.Errorf("card defaults = %v %v", c.PlacementPadding, c.WidgetTTL)
	}
	if c.CardRatePerMinute != 30 || c.CardRateBurst != 10 || c.SMSRatePerMinute != 10 || c.SMSRateBurst != 5 {
		t.Errorf("rate defaults = %d/%d card, %d/%d sms",
			c.CardRatePerMinute, c.CardRateBurst, c.SMSRatePerMinute, c.SMSRateBurst)
	}
	if c.TwilioConfigured() {
		t.Error("twilio should not be configured")
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "production")
	t.Setenv("JOB_TIMEOUT", "45")
	t.Setenv("WIDGET_TTL", "2h")
	t.Setenv("PLACEMENT_PADDING", "12.5")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC1")
	t.Setenv("TWILIO_AUTH_TOKEN", "tok")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15005550006")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.JobTimeout != 45*time.Second || c.WidgetTTL != 2*time.Hour || c.PlacementPadding != 12.5 {
		t.Errorf("parsed = %v %v %v", c.JobTimeout, c.WidgetTTL, c.PlacementPadding)
	}
	if !c.TwilioConfigured() {
		t.Error("twilio should be configured")
	}
}

func TestLoad_ValidationJoinsErrors(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("PORT", "eighty")
	t.Setenv("WORKER_COUNT", "0")
	t.Setenv("CARD_RATE_BURST", "-1")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"ENV must be", "PORT must be numeric", "WORKER_COUNT must be positive", "CARD_RATE_BURST must be positive"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestLoadDotEnv_RealEnvWins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	content := "# comment\nBASE_URL=\"https://from-file.example\"\nPORT=9090\nnot a pair\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7070")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.BaseURL != "https://from-file.example" {
		t.Errorf("BASE_URL = %q, want value from .env", c.BaseURL)
	}
	if c.Port != "7070" {
		t.Errorf("PORT = %q, want real env value", c.Port)
	}
}
