package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxNameLength = 200
	MaxLimitOrder = 100
	MaxNumSums    = 64
	MaxNumTrials  = 10_000_000
	MinNumTrials  = 1

	// Model identifiers: letters, digits, underscore, dash, dot. CCF
	// expansion additionally produces bracketed composite names.
	namePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.\-]*$`)
)

func init() {
	validate = validator.New()
}

// AnalysisRequest carries the externally supplied analysis settings
// before they are turned into risk settings.
type AnalysisRequest struct {
	LimitOrder  int     `json:"limitOrder" yaml:"limit-order" validate:"omitempty,min=1,max=100"`
	CutOff      float64 `json:"cutOff" yaml:"cut-off" validate:"omitempty,gte=0,lt=1"`
	NumSums     int     `json:"numSums" yaml:"num-sums" validate:"omitempty,min=1,max=64"`
	NumTrials   int     `json:"numTrials" yaml:"num-trials" validate:"omitempty,min=1,max=10000000"`
	MissionTime float64 `json:"missionTime" yaml:"mission-time" validate:"omitempty,gte=0"`

	Approximation string `json:"approximation" yaml:"approximation" validate:"omitempty,oneof=none rare-event mcub"`

	// MaxCandidates bounds the cut-set working set; zero keeps the
	// engine default.
	MaxCandidates int `json:"maxCandidates" yaml:"max-candidates" validate:"omitempty,min=1"`

	// Timeout is a wall-clock bound in Go duration syntax ("30s").
	Timeout string `json:"timeout" yaml:"timeout"`

	// Seed fixes the Monte Carlo sample streams; zero picks a
	// time-derived seed.
	Seed uint64 `json:"seed" yaml:"seed"`

	Probability bool `json:"probability" yaml:"probability"`
	Importance  bool `json:"importance" yaml:"importance"`
	Uncertainty bool `json:"uncertainty" yaml:"uncertainty"`
	CCF         bool `json:"ccf" yaml:"ccf"`
}

// ValidateAnalysisRequest validates externally supplied settings
func ValidateAnalysisRequest(req *AnalysisRequest) error {
	if req == nil {
		return errors.New("analysis request cannot be nil")
	}

	// Validate using struct tags
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	// Toggle dependencies not expressible as struct tags
	if req.Importance && !req.Probability {
		return errors.New("Importance: requires probability analysis")
	}
	if req.Uncertainty && !req.Probability {
		return errors.New("Uncertainty: requires probability analysis")
	}

	return nil
}

// ValidateStruct runs the `validate` tag checks on a settings struct.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateName validates a model entity identifier
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name '%s' exceeds maximum length of %d characters", name, MaxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name '%s' is invalid (must start with letter or underscore, followed by alphanumeric, underscore, dash, or dot)", name)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "lt":
			return fmt.Errorf("%s: must be below %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
