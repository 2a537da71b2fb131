package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg, a pointer to a struct with `env` and `envDefault` tags,
// from the process environment. Every malformed variable is reported, not
// only the first one.
func Load(cfg any) error {
	err := env.Parse(cfg)
	if err == nil {
		return nil
	}

	var agg env.AggregateError
	if !errors.As(err, &agg) || len(agg.Errors) < 2 {
		return fmt.Errorf("parse config: %w", err)
	}
	msgs := make([]string, len(agg.Errors))
	for i, e := range agg.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("parse config: %d invalid settings: %s: %w", len(msgs), strings.Join(msgs, "; "), err)
}
