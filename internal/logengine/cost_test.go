package logengine

import (
	"testing"

	"github.com/rencryptofish/hydra/internal/model"
)

func TestPricingForPrefixMatch(t *testing.T) {
	p := pricingFor(model.AgentClaude, "claude-opus-4-20250514")
	want := pricingTable[model.AgentClaude]["claude-opus"]
	if p != want {
		t.Fatalf("pricingFor matched wrong entry: got %+v, want %+v", p, want)
	}
}

func TestPricingForUnknownModelFallsBackToDefault(t *testing.T) {
	p := pricingFor(model.AgentClaude, "some-future-model")
	want := pricingTable[model.AgentClaude]["default"]
	if p != want {
		t.Fatalf("pricingFor fallback = %+v, want default %+v", p, want)
	}
}

func TestPricingForUnknownAgentIsZero(t *testing.T) {
	p := pricingFor(model.AgentKind("unknown"), "whatever")
	if p != (modelPricing{}) {
		t.Fatalf("pricingFor unknown agent = %+v, want zero value", p)
	}
}

func TestCostUSDComputesWeightedSum(t *testing.T) {
	got := costUSD(model.AgentCodex, "default", 1_000_000, 1_000_000, 0, 0)
	want := pricingTable[model.AgentCodex]["default"].Input*1_000_000 + pricingTable[model.AgentCodex]["default"].Output*1_000_000
	if got != want {
		t.Fatalf("costUSD = %v, want %v", got, want)
	}
}

func TestLoadPricingOverridesAppliesImmediately(t *testing.T) {
	LoadPricingOverrides(model.AgentGemini, map[string]modelPricing{
		"gemini-test-model": {Input: 0.01, Output: 0.02},
	})
	p := pricingFor(model.AgentGemini, "gemini-test-model-v1")
	if p.Input != 0.01 || p.Output != 0.02 {
		t.Fatalf("LoadPricingOverrides did not take effect, got %+v", p)
	}
}
