package contracts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimizationRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       OptimizationRequest
		wantField string // empty means valid
	}{
		{
			name: "minimal valid",
			req:  OptimizationRequest{RiskProfile: ProfileModerate},
		},
		{
			name: "full valid",
			req: OptimizationRequest{
				RiskProfile:  ProfileAggressive,
				Objective:    ObjectiveEfficientReturn,
				TargetReturn: 0.12,
				Lookback:     252,
				MinWeight:    0.01,
				MaxWeight:    0.4,
			},
		},
		{
			name:      "unknown profile",
			req:       OptimizationRequest{RiskProfile: "reckless"},
			wantField: "risk_profile",
		},
		{
			name:      "unknown objective",
			req:       OptimizationRequest{RiskProfile: ProfileModerate, Objective: "max_fun"},
			wantField: "objective",
		},
		{
			name:      "efficient_return without target",
			req:       OptimizationRequest{RiskProfile: ProfileModerate, Objective: ObjectiveEfficientReturn},
			wantField: "target_return",
		},
		{
			name:      "lookback too short",
			req:       OptimizationRequest{RiskProfile: ProfileModerate, Lookback: 30},
			wantField: "lookback_period",
		},
		{
			name:      "lookback too long",
			req:       OptimizationRequest{RiskProfile: ProfileModerate, Lookback: 5000},
			wantField: "lookback_period",
		},
		{
			name:      "min above max",
			req:       OptimizationRequest{RiskProfile: ProfileModerate, MinWeight: 0.5, MaxWeight: 0.2},
			wantField: "min_weight",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var invalid *InvalidRequestError
			assert.True(t, errors.As(err, &invalid), "expected InvalidRequestError, got %v", err)
			assert.Equal(t, tt.wantField, invalid.Field)
		})
	}
}

func TestRiskProfile_Valid(t *testing.T) {
	assert.True(t, ProfileConservative.Valid())
	assert.True(t, ProfileModerate.Valid())
	assert.True(t, ProfileAggressive.Valid())
	assert.False(t, RiskProfile("").Valid())
	assert.False(t, RiskProfile("yolo").Valid())
}

func TestDataProviderError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &DataProviderError{Provider: "marketstack", Symbol: "AAPL", Err: inner}

	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "AAPL")
}
