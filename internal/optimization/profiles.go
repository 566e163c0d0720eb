package optimization

import "github.com/anaysomani05/opti-invest/internal/contracts"

// riskConfig is a fully resolved set of optimization parameters.
type riskConfig struct {
	Objective     contracts.Objective
	TargetReturn  float64
	MinWeight     float64
	MaxWeight     float64
	MaxVolatility float64
}

// riskProfiles maps each preset to its default configuration.
var riskProfiles = map[contracts.RiskProfile]riskConfig{
	contracts.ProfileConservative: {
		Objective:     contracts.ObjectiveMinVolatility,
		TargetReturn:  0.08,
		MinWeight:     0.05,
		MaxWeight:     0.25,
		MaxVolatility: 0.15,
	},
	contracts.ProfileModerate: {
		Objective:     contracts.ObjectiveEfficientReturn,
		TargetReturn:  0.12,
		MinWeight:     0.02,
		MaxWeight:     0.30,
		MaxVolatility: 0.20,
	},
	contracts.ProfileAggressive: {
		Objective:     contracts.ObjectiveMaxSharpe,
		TargetReturn:  0.15,
		MinWeight:     0.01,
		MaxWeight:     0.40,
	},
}

// resolveConfig applies the request's explicit overrides on top of its risk
// profile's defaults. The request must already be validated.
func resolveConfig(req *contracts.OptimizationRequest) riskConfig {
	cfg := riskProfiles[req.RiskProfile]

	if req.Objective != "" {
		cfg.Objective = req.Objective
	}
	if req.TargetReturn > 0 {
		cfg.TargetReturn = req.TargetReturn
	}
	if req.MinWeight > 0 {
		cfg.MinWeight = req.MinWeight
	}
	if req.MaxWeight > 0 {
		cfg.MaxWeight = req.MaxWeight
	}
	return cfg
}

// profileDescriptions is presentation copy for the profiles endpoint.
var profileDescriptions = map[contracts.RiskProfile]struct {
	name, description string
}{
	contracts.ProfileConservative: {
		name:        "Conservative",
		description: "Prioritizes capital preservation with broadly diversified, low-volatility allocations.",
	},
	contracts.ProfileModerate: {
		name:        "Moderate",
		description: "Targets a balanced 12% return with moderate concentration limits.",
	},
	contracts.ProfileAggressive: {
		name:        "Aggressive",
		description: "Maximizes risk-adjusted return and tolerates concentrated positions.",
	},
}

// Profiles lists the available risk presets in a stable order.
func Profiles() []contracts.RiskProfileInfo {
	order := []contracts.RiskProfile{
		contracts.ProfileConservative,
		contracts.ProfileModerate,
		contracts.ProfileAggressive,
	}

	infos := make([]contracts.RiskProfileInfo, 0, len(order))
	for _, id := range order {
		cfg := riskProfiles[id]
		desc := profileDescriptions[id]
		infos = append(infos, contracts.RiskProfileInfo{
			ID:            id,
			Name:          desc.name,
			Description:   desc.description,
			Objective:     cfg.Objective,
			TargetReturn:  cfg.TargetReturn,
			MaxVolatility: cfg.MaxVolatility,
			MinWeight:     cfg.MinWeight,
			MaxWeight:     cfg.MaxWeight,
		})
	}
	return infos
}
