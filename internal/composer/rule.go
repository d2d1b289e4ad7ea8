package composer

import (
	"fmt"

	"github.com/stemsi/qbank-composer/internal/model"
)

// ValidateRule rejects section rules that must never reach a fetch.
func ValidateRule(r model.SectionRule) error {
	if r.Count != nil && *r.Count <= 0 {
		return fmt.Errorf("section %q: %w", r.Name, ErrInvalidCount)
	}
	if r.Type != "" && !r.Type.Valid() {
		return fmt.Errorf("section %q: %w: %s", r.Name, ErrInvalidType, r.Type)
	}
	if err := ValidateCeilings(r.Ceilings); err != nil {
		return fmt.Errorf("section %q: %w", r.Name, err)
	}
	return nil
}

// ValidateCeilings rejects negative caps. Zero means "no limit".
func ValidateCeilings(c model.Ceilings) error {
	for _, v := range c.All() {
		if v != nil && *v < 0 {
			return ErrInvalidCeiling
		}
	}
	return nil
}

// ValidateRules validates every rule in order and stops at the first failure.
func ValidateRules(rules []model.SectionRule) error {
	for _, r := range rules {
		if err := ValidateRule(r); err != nil {
			return err
		}
	}
	return nil
}
