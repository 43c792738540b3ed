package logengine

import "github.com/rencryptofish/hydra/internal/model"

// modelPricing is USD per token for one model's four token categories.
type modelPricing struct {
	Input      float64
	Output     float64
	CacheRead  float64
	CacheWrite float64
}

// pricingTable maps "provider/model" substrings (matched by prefix) to
// per-token pricing. Unknown models fall back to the provider's default
// entry. Figures are illustrative per-million-token list prices divided
// down to per-token; spec.md leaves the exact table an Open Question; we
// resolve it here as a configurable, overridable map (LoadPricingOverrides)
// rather than hardcoding it where no escape hatch exists.
var pricingTable = map[model.AgentKind]map[string]modelPricing{
	model.AgentClaude: {
		"claude-opus":   {Input: 15.0 / 1e6, Output: 75.0 / 1e6, CacheRead: 1.5 / 1e6, CacheWrite: 18.75 / 1e6},
		"claude-sonnet": {Input: 3.0 / 1e6, Output: 15.0 / 1e6, CacheRead: 0.3 / 1e6, CacheWrite: 3.75 / 1e6},
		"claude-haiku":  {Input: 0.8 / 1e6, Output: 4.0 / 1e6, CacheRead: 0.08 / 1e6, CacheWrite: 1.0 / 1e6},
		"default":       {Input: 3.0 / 1e6, Output: 15.0 / 1e6, CacheRead: 0.3 / 1e6, CacheWrite: 3.75 / 1e6},
	},
	model.AgentCodex: {
		"default": {Input: 1.5 / 1e6, Output: 6.0 / 1e6},
	},
	model.AgentGemini: {
		"gemini-1.5-pro":   {Input: 1.25 / 1e6, Output: 5.0 / 1e6},
		"gemini-1.5-flash": {Input: 0.075 / 1e6, Output: 0.3 / 1e6},
		"default":          {Input: 1.25 / 1e6, Output: 5.0 / 1e6},
	},
}

func pricingFor(agent model.AgentKind, modelName string) modelPricing {
	byModel, ok := pricingTable[agent]
	if !ok {
		return modelPricing{}
	}
	for prefix, p := range byModel {
		if prefix == "default" {
			continue
		}
		if len(modelName) >= len(prefix) && modelName[:len(prefix)] == prefix {
			return p
		}
	}
	return byModel["default"]
}

// LoadPricingOverrides replaces pricing entries for one provider at runtime
// (e.g. from a user config file), without requiring a code change per model
// release.
func LoadPricingOverrides(agent model.AgentKind, overrides map[string]modelPricing) {
	if pricingTable[agent] == nil {
		pricingTable[agent] = make(map[string]modelPricing)
	}
	for k, v := range overrides {
		pricingTable[agent][k] = v
	}
}

// costUSD computes the dollar cost of one usage delta under a model's
// pricing entry.
func costUSD(agent model.AgentKind, modelName string, input, output, cacheRead, cacheWrite int64) float64 {
	p := pricingFor(agent, modelName)
	return float64(input)*p.Input + float64(output)*p.Output +
		float64(cacheRead)*p.CacheRead + float64(cacheWrite)*p.CacheWrite
}
