package risk

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-riskgraph/pkg/quant"
	"github.com/dd0wney/cluso-riskgraph/pkg/validation"
)

// Settings are the resolved analysis options.
type Settings struct {
	// LimitOrder is the maximum cut-set size.
	LimitOrder int `validate:"min=1,max=100"`

	// CutOff drops cut-set candidates below this probability.
	CutOff float64 `validate:"gte=0,lt=1"`

	// NumSums is the inclusion-exclusion truncation depth.
	NumSums int `validate:"min=1,max=64"`

	// NumTrials is the Monte Carlo sample count.
	NumTrials int `validate:"min=1,max=10000000"`

	// Seed makes uncertainty analysis reproducible. Zero picks a
	// time-derived seed recorded in the report.
	Seed uint64

	// MissionTime in hours; zero keeps the model's value.
	MissionTime float64 `validate:"gte=0"`

	// Approximation selects the probability method.
	Approximation quant.Approximation

	// Analysis toggles.
	Probability bool
	Importance  bool
	Uncertainty bool
	CCF         bool

	// MaxCandidates bounds the cut-set working set; zero keeps the
	// engine default.
	MaxCandidates int `validate:"gte=0"`

	// Timeout bounds the whole run; zero disables it.
	Timeout time.Duration `validate:"gte=0"`

	// Workers bounds trial parallelism; zero means NumCPU.
	Workers int `validate:"gte=0"`
}

// DefaultSettings returns the conventional defaults.
func DefaultSettings() Settings {
	return Settings{
		LimitOrder: 20,
		NumSums:    7,
		NumTrials:  1000,
	}
}

// Validate runs the struct-tag range checks, then the cross-field
// consistency checks the tags cannot express.
func (s Settings) Validate() error {
	if err := validation.ValidateStruct(s); err != nil {
		return NewError(KindSettings, "%v", err)
	}
	cv := validation.NewConfigValidator("Settings").
		When(s.Importance, func(cv *validation.ConfigValidator) {
			cv.Custom("Importance", func() error {
				if !s.Probability {
					return fmt.Errorf("importance analysis requires probability analysis")
				}
				return nil
			})
		}).
		When(s.Uncertainty, func(cv *validation.ConfigValidator) {
			cv.Custom("Uncertainty", func() error {
				if !s.Probability {
					return fmt.Errorf("uncertainty analysis requires probability analysis")
				}
				return nil
			})
		})
	if err := cv.Validate(); err != nil {
		return NewError(KindSettings, "%v", err)
	}
	return nil
}

// FromRequest resolves externally supplied settings against defaults.
func FromRequest(req *validation.AnalysisRequest) (Settings, error) {
	if err := validation.ValidateAnalysisRequest(req); err != nil {
		return Settings{}, NewError(KindSettings, "%v", err)
	}
	s := DefaultSettings()
	s.LimitOrder = validation.DefaultOrInt(req.LimitOrder, s.LimitOrder)
	s.CutOff = req.CutOff
	s.NumSums = validation.DefaultOrInt(req.NumSums, s.NumSums)
	s.NumTrials = validation.DefaultOrInt(req.NumTrials, s.NumTrials)
	s.MissionTime = req.MissionTime
	s.MaxCandidates = req.MaxCandidates
	s.Seed = req.Seed
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil {
			return Settings{}, NewError(KindSettings, "timeout: %v", err)
		}
		s.Timeout = d
	}
	s.Probability = req.Probability
	s.Importance = req.Importance
	s.Uncertainty = req.Uncertainty
	s.CCF = req.CCF

	switch req.Approximation {
	case "", "none":
		s.Approximation = quant.ApproxNone
	case "rare-event":
		s.Approximation = quant.ApproxRareEvent
	case "mcub":
		s.Approximation = quant.ApproxMCUB
	default:
		return Settings{}, NewError(KindSettings, "unknown approximation %q", req.Approximation)
	}
	return s, s.Validate()
}

// LoadSettings reads a YAML settings file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, NewError(KindSettings, "read settings: %v", err)
	}
	var req validation.AnalysisRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return Settings{}, NewError(KindSettings, "parse settings: %v", err)
	}
	return FromRequest(&req)
}

// quantifier builds the probability evaluator for these settings.
func (s Settings) quantifier() quant.Quantifier {
	return quant.Quantifier{Approx: s.Approximation, NumSums: s.NumSums}
}
