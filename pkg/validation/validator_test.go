package validation

import (
	"testing"
)

// TestValidateAnalysisRequest tests analysis settings validation
func TestValidateAnalysisRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         AnalysisRequest
		expectError bool
	}{
		{
			name: "Valid defaults",
			req: AnalysisRequest{
				Probability: true,
			},
			expectError: false,
		},
		{
			name: "Valid full request",
			req: AnalysisRequest{
				LimitOrder:    10,
				CutOff:        1e-8,
				NumSums:       7,
				NumTrials:     1000,
				MissionTime:   8760,
				Approximation: "rare-event",
				Probability:   true,
				Importance:    true,
				Uncertainty:   true,
			},
			expectError: false,
		},
		{
			name: "Limit order too large - invalid",
			req: AnalysisRequest{
				LimitOrder: 101,
			},
			expectError: true,
		},
		{
			name: "Negative cut-off - invalid",
			req: AnalysisRequest{
				CutOff: -0.1,
			},
			expectError: true,
		},
		{
			name: "Cut-off of one - invalid",
			req: AnalysisRequest{
				CutOff: 1,
			},
			expectError: true,
		},
		{
			name: "Unknown approximation - invalid",
			req: AnalysisRequest{
				Approximation: "exact",
			},
			expectError: true,
		},
		{
			name: "Importance without probability - invalid",
			req: AnalysisRequest{
				Importance: true,
			},
			expectError: true,
		},
		{
			name: "Uncertainty without probability - invalid",
			req: AnalysisRequest{
				Uncertainty: true,
			},
			expectError: true,
		},
		{
			name: "Negative mission time - invalid",
			req: AnalysisRequest{
				MissionTime: -1,
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnalysisRequest(&tt.req)
			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidateAnalysisRequestNil(t *testing.T) {
	if err := ValidateAnalysisRequest(nil); err == nil {
		t.Error("expected error for nil request")
	}
}

// TestValidateStruct covers the tag-check entry point used by the
// resolved settings types.
func TestValidateStruct(t *testing.T) {
	type bounds struct {
		Order  int     `validate:"min=1,max=100"`
		CutOff float64 `validate:"gte=0,lt=1"`
	}

	if err := ValidateStruct(bounds{Order: 20, CutOff: 1e-9}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateStruct(bounds{Order: 0, CutOff: 0}); err == nil {
		t.Error("expected error for order below minimum")
	}
	if err := ValidateStruct(bounds{Order: 20, CutOff: 1}); err == nil {
		t.Error("expected error for cut-off at one")
	}
}

// TestValidateName tests model identifier validation
func TestValidateName(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		expectError bool
	}{
		{"Simple name", "pump_one", false},
		{"Name with dots and dashes", "train-a.pump", false},
		{"Leading underscore", "_internal", false},
		{"Empty - invalid", "", true},
		{"Leading digit - invalid", "1pump", true},
		{"Spaces - invalid", "pump one", true},
		{"Brackets - invalid", "[pump valve]", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.value)
			if tt.expectError && err == nil {
				t.Errorf("ValidateName(%q): expected error, got nil", tt.value)
			}
			if !tt.expectError && err != nil {
				t.Errorf("ValidateName(%q): unexpected error: %v", tt.value, err)
			}
		})
	}
}
