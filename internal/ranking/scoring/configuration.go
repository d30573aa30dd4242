package scoring

import (
	"errors"
	"fmt"
	"strings"

	"supplier-ranking/internal/models"

	"github.com/shopspring/decimal"
)

// ErrConfigurationInvalid is returned for weights outside [0,1] or not
// summing to one, and for malformed window or threshold values.
var ErrConfigurationInvalid = errors.New("CONFIGURATION_INVALID")

// WeightTolerance is the accepted deviation of the weight sum from 1.
var WeightTolerance = decimal.RequireFromString("0.001")

const DefaultConfigurationName = "default"

// ValidateWeights checks every weight is within [0,1] and that they sum to 1.
func ValidateWeights(w models.Weights) error {
	named := []struct {
		name  string
		value decimal.Decimal
	}{
		{"price", w.Price},
		{"consistency", w.Consistency},
		{"reliability", w.Reliability},
		{"fill", w.Fill},
	}
	for _, n := range named {
		if n.value.LessThan(decimal.Zero) || n.value.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: %s weight %s outside [0,1]", ErrConfigurationInvalid, n.name, n.value)
		}
	}

	sum := w.Sum()
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(WeightTolerance) {
		return fmt.Errorf("%w: weights sum to %s, want 1", ErrConfigurationInvalid, sum)
	}
	return nil
}

// ValidateConfiguration must pass before a configuration scores anything.
func ValidateConfiguration(cfg *models.RankingConfiguration) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil configuration", ErrConfigurationInvalid)
	}
	if err := ValidateWeights(cfg.Weights); err != nil {
		return err
	}
	if cfg.EvaluationWindowDays <= 0 {
		return fmt.Errorf("%w: evaluation window must be positive, got %d", ErrConfigurationInvalid, cfg.EvaluationWindowDays)
	}
	if cfg.MinSubmissions < 0 {
		return fmt.Errorf("%w: minimum submissions must not be negative", ErrConfigurationInvalid)
	}
	return nil
}

// NewConfiguration builds and validates a configuration.
func NewConfiguration(name string, w models.Weights, windowDays, minSubmissions int) (*models.RankingConfiguration, error) {
	cfg := &models.RankingConfiguration{
		Name:                 name,
		Version:              1,
		Weights:              w,
		EvaluationWindowDays: windowDays,
		MinSubmissions:       minSubmissions,
		Active:               true,
	}
	if err := ValidateConfiguration(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseWeights reads "price:0.4,consistency:0.25,reliability:0.25,fill:0.1".
// All four factors are required.
func ParseWeights(s string) (models.Weights, error) {
	var w models.Weights
	seen := map[string]bool{}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, raw, ok := strings.Cut(pair, ":")
		if !ok {
			return w, fmt.Errorf("%w: malformed weight %q", ErrConfigurationInvalid, pair)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return w, fmt.Errorf("%w: weight %q: %v", ErrConfigurationInvalid, pair, err)
		}

		key = strings.ToLower(strings.TrimSpace(key))
		switch key {
		case "price":
			w.Price = value
		case "consistency":
			w.Consistency = value
		case "reliability":
			w.Reliability = value
		case "fill", "fill_rate":
			key = "fill"
			w.Fill = value
		default:
			return w, fmt.Errorf("%w: unknown weight %q", ErrConfigurationInvalid, key)
		}
		seen[key] = true
	}

	for _, k := range []string{"price", "consistency", "reliability", "fill"} {
		if !seen[k] {
			return w, fmt.Errorf("%w: missing %s weight", ErrConfigurationInvalid, k)
		}
	}
	return w, nil
}

// DefaultConfiguration is used when no configuration is marked active.
func DefaultConfiguration(weights string, windowDays, minSubmissions int) (*models.RankingConfiguration, error) {
	w, err := ParseWeights(weights)
	if err != nil {
		return nil, err
	}
	return NewConfiguration(DefaultConfigurationName, w, windowDays, minSubmissions)
}
