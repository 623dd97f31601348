// Package fixtures loads test data used by the storefront scenarios
package fixtures

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Review is the product review a scenario writes
type Review struct {
	Name   string `yaml:"name" json:"name" validate:"min=3,max=25"`
	Review string `yaml:"review" json:"review" validate:"min=25,max=1000"`
}

// Validate applies the storefront's review form limits
func (r Review) Validate() error {
	return validate.Struct(r)
}

// LoadReview reads a review fixture. JSON files parse as YAML, so both formats work.
func LoadReview(path string) (Review, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Review{}, fmt.Errorf("failed to read fixture: %w", err)
	}

	var r Review
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Review{}, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return Review{}, fmt.Errorf("invalid fixture %s: %w", path, err)
	}
	return r, nil
}
