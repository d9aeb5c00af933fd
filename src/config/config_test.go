package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	LoadConfig()

	if Cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", Cfg.Port)
	}
	if Cfg.MarketDataMode != "simulated" {
		t.Errorf("MarketDataMode = %q, want simulated", Cfg.MarketDataMode)
	}
	if Cfg.TaxBasisFallback != "trade-price" {
		t.Errorf("TaxBasisFallback = %q, want trade-price", Cfg.TaxBasisFallback)
	}
	if Cfg.SimulatorStepPct != 0.05 {
		t.Errorf("SimulatorStepPct = %g, want 0.05", Cfg.SimulatorStepPct)
	}
	if Cfg.PriceRefreshEvery != 5*time.Second {
		t.Errorf("PriceRefreshEvery = %s, want 5s", Cfg.PriceRefreshEvery)
	}
	if Cfg.MaxImportBytes != 10*1024*1024 {
		t.Errorf("MaxImportBytes = %d, want 10MB", Cfg.MaxImportBytes)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MARKET_DATA_MODE", "LIVE")
	t.Setenv("SIMULATOR_STEP_PCT", "0.1")
	t.Setenv("PRICE_REFRESH_EVERY", "30s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	LoadConfig()

	if Cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", Cfg.Port)
	}
	if Cfg.MarketDataMode != "live" {
		t.Errorf("MarketDataMode = %q, want live (lowercased)", Cfg.MarketDataMode)
	}
	if Cfg.SimulatorStepPct != 0.1 {
		t.Errorf("SimulatorStepPct = %g, want 0.1", Cfg.SimulatorStepPct)
	}
	if Cfg.PriceRefreshEvery != 30*time.Second {
		t.Errorf("PriceRefreshEvery = %s, want 30s", Cfg.PriceRefreshEvery)
	}
	if len(Cfg.AllowedOrigins) != 2 || Cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v", Cfg.AllowedOrigins)
	}
}

func TestLoadConfigRejectsInvalidChoices(t *testing.T) {
	t.Setenv("MARKET_DATA_MODE", "psychic")
	t.Setenv("TAX_BASIS_FALLBACK", "guess")

	LoadConfig()

	if Cfg.MarketDataMode != "simulated" {
		t.Errorf("invalid mode fell back to %q, want simulated", Cfg.MarketDataMode)
	}
	if Cfg.TaxBasisFallback != "trade-price" {
		t.Errorf("invalid fallback fell back to %q, want trade-price", Cfg.TaxBasisFallback)
	}
}
