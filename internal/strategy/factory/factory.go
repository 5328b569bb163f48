// Package factory builds strategies from {type, params} configurations.
package factory

import (
	"go.uber.org/zap"

	"github.com/newthinker/strata/internal/strategy"
	"github.com/newthinker/strata/internal/strategy/composite"
	"github.com/newthinker/strata/internal/strategy/ma_crossover"
	"github.com/newthinker/strata/internal/strategy/macd_cross"
	"github.com/newthinker/strata/internal/strategy/macd_histogram"
	"github.com/newthinker/strata/internal/strategy/rsi_cross"
	"github.com/newthinker/strata/internal/strategy/rsi_extremes"
)

var defaultRegistry = NewRegistry(nil)

// NewRegistry returns a registry with every built-in strategy type,
// including "custom" composites whose children resolve through the same
// registry.
func NewRegistry(logger *zap.Logger) *strategy.Registry {
	r := strategy.NewRegistry(logger)
	r.Register(ma_crossover.Definition())
	r.Register(rsi_cross.Definition())
	r.Register(rsi_extremes.Definition())
	r.Register(macd_cross.Definition())
	r.Register(macd_histogram.Definition())
	r.Register(customDefinition(r))
	return r
}

// Build constructs a strategy from cfg using the built-in types.
func Build(cfg strategy.Config) (strategy.Strategy, error) {
	return defaultRegistry.Build(cfg)
}

// BuildComposite builds every config and combines them under mode.
func BuildComposite(configs []strategy.Config, mode composite.Mode) (*composite.Composite, error) {
	return buildComposite(defaultRegistry, configs, mode)
}

// Catalog lists the built-in strategy types and their parameters.
func Catalog() []strategy.Definition {
	return defaultRegistry.Definitions()
}

func buildComposite(r *strategy.Registry, configs []strategy.Config, mode composite.Mode) (*composite.Composite, error) {
	c, err := composite.New(mode)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		s, err := r.Build(cfg)
		if err != nil {
			return nil, err
		}
		c.Add(s)
	}
	return c, nil
}

func customDefinition(r *strategy.Registry) strategy.Definition {
	return strategy.Definition{
		Type:        composite.Type,
		Label:       "Custom",
		Description: "Combine other strategies; signals fire when all, any, or a majority agree",
		Fields: []strategy.Field{
			{Name: "mode", Label: "Mode", Kind: "select", Options: composite.Modes, Default: string(composite.ModeAll)},
			{Name: "strategies", Label: "Strategies", Kind: "strategies"},
		},
		Build: func(p strategy.Params) (strategy.Strategy, error) {
			name, err := p.String("mode")
			if err != nil {
				return nil, err
			}
			mode, err := composite.ParseMode(name)
			if err != nil {
				return nil, err
			}
			var configs []strategy.Config
			if _, ok := p["strategies"]; ok {
				if configs, err = p.Configs("strategies"); err != nil {
					return nil, err
				}
			}
			return buildComposite(r, configs, mode)
		},
	}
}
