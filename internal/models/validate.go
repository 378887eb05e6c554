package models

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Patterns are the identifier patterns enforced on entity rows. They are
// compiled once at startup and injected into the Validator instead of
// living as package-level statics.
type Patterns struct {
	EntityID    *regexp.Regexp
	EntityLabel *regexp.Regexp
}

// DefaultPatterns returns the patterns used by the public knowledge graph:
// CURIE-style entity ids (e.g. "DOID:2022", "MESH:C000601183") and
// alphabetic type labels.
func DefaultPatterns() (*Patterns, error) {
	entityID, err := regexp.Compile(`^[A-Za-z0-9\-]+:[a-z0-9A-Z\.\-_]+$`)
	if err != nil {
		return nil, fmt.Errorf("compile entity id pattern: %w", err)
	}
	entityLabel, err := regexp.Compile(`^[A-Za-z]+$`)
	if err != nil {
		return nil, fmt.Errorf("compile entity label pattern: %w", err)
	}
	return &Patterns{EntityID: entityID, EntityLabel: entityLabel}, nil
}

// Validator validates row models against struct tags plus the injected
// identifier patterns.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator with the given patterns registered under
// the entity_id and entity_label tags.
func NewValidator(p *Patterns) (*Validator, error) {
	v := validator.New()

	err := v.RegisterValidation("entity_id", func(fl validator.FieldLevel) bool {
		return p.EntityID.MatchString(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("register entity_id validation: %w", err)
	}

	err = v.RegisterValidation("entity_label", func(fl validator.FieldLevel) bool {
		return p.EntityLabel.MatchString(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("register entity_label validation: %w", err)
	}

	return &Validator{v: v}, nil
}

// Struct validates a row model and returns the first violation found.
func (va *Validator) Struct(s any) error {
	return va.v.Struct(s)
}
