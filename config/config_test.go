package config

import "testing"

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()

	if cfg.Mode != "batch" {
		t.Errorf("mode = %q, want batch", cfg.Mode)
	}
	if cfg.APIPort != 8080 {
		t.Errorf("api port = %d, want 8080", cfg.APIPort)
	}
	if cfg.Analysis.QualityBandLow != 0.8 || cfg.Analysis.QualityBandHigh != 1.2 {
		t.Errorf("quality band = [%f, %f], want [0.8, 1.2]",
			cfg.Analysis.QualityBandLow, cfg.Analysis.QualityBandHigh)
	}
	if cfg.Analysis.SamplerSeed != 42 || cfg.Analysis.SamplerMaxCases != 10 {
		t.Errorf("sampler = (%d, %d), want (42, 10)",
			cfg.Analysis.SamplerSeed, cfg.Analysis.SamplerMaxCases)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("RUN_MODE", "serve")
	t.Setenv("API_PORT", "9090")
	t.Setenv("AUDIT_OD_RATIO_THRESHOLD", "0.6")
	t.Setenv("AUDIT_ALERT_WEBHOOKS", "http://a.example/hook, http://b.example/hook")

	cfg := LoadFromEnv()
	if cfg.Mode != "serve" {
		t.Errorf("mode = %q, want serve", cfg.Mode)
	}
	if cfg.APIPort != 9090 {
		t.Errorf("api port = %d, want 9090", cfg.APIPort)
	}
	if cfg.Analysis.ODRatioThreshold != 0.6 {
		t.Errorf("od ratio threshold = %f, want 0.6", cfg.Analysis.ODRatioThreshold)
	}
	if len(cfg.AlertWebhooks) != 2 || cfg.AlertWebhooks[1] != "http://b.example/hook" {
		t.Errorf("webhooks = %v", cfg.AlertWebhooks)
	}
}

func TestGetEnvIntInvalid(t *testing.T) {
	t.Setenv("API_PORT", "not-a-number")
	cfg := LoadFromEnv()
	if cfg.APIPort != 8080 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.APIPort)
	}
}
