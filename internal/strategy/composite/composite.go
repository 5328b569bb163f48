// Package composite combines the signals of several strategies row by row.
package composite

import (
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/indicator"
	"github.com/newthinker/strata/internal/series"
	"github.com/newthinker/strata/internal/strategy"
)

// Type is the catalog name of a composite built from parameters
const Type = "custom"

// Mode selects how child signals are combined
type Mode string

const (
	ModeAll      Mode = "all"      // every child agrees
	ModeAny      Mode = "any"      // at least one child
	ModeMajority Mode = "majority" // strictly more than half
)

// Modes lists the accepted combination modes.
var Modes = []string{string(ModeAll), string(ModeAny), string(ModeMajority)}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAll, ModeAny, ModeMajority:
		return m, nil
	}
	return "", core.Errorf(core.ErrInvalidConfiguration,
		"mode must be either 'all', 'any', or 'majority', got %q", s)
}

// Composite is an ordered list of strategies whose signals are merged
// under one mode.
type Composite struct {
	mode       Mode
	strategies []strategy.Strategy
}

// New creates a composite. Children may also be added later with Add.
func New(mode Mode, children ...strategy.Strategy) (*Composite, error) {
	m, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	return &Composite{mode: m, strategies: children}, nil
}

// Add appends a child strategy.
func (c *Composite) Add(s strategy.Strategy) {
	c.strategies = append(c.strategies, s)
}

func (c *Composite) Mode() Mode { return c.mode }

// Strategies returns the children in insertion order.
func (c *Composite) Strategies() []strategy.Strategy {
	out := make([]strategy.Strategy, len(c.strategies))
	copy(out, c.strategies)
	return out
}

func (c *Composite) Name() string { return Type }

func (c *Composite) Description() string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Description()
	}
	return fmt.Sprintf("Custom(%s): %s", c.mode, strings.Join(names, " + "))
}

// RequiredIndicators concatenates the children's requirements without
// deduplication; the indicator cache absorbs repeats.
func (c *Composite) RequiredIndicators() []indicator.Indicator {
	var out []indicator.Indicator
	for _, s := range c.strategies {
		out = append(out, s.RequiredIndicators()...)
	}
	return out
}

func (c *Composite) Validate(ds strategy.DataSource) error {
	for _, s := range c.strategies {
		if err := s.Validate(ds); err != nil {
			return err
		}
	}
	return nil
}

// Signals aligns every child's signals on the union of their dates, with
// missing values treated as false, then combines them per mode.
func (c *Composite) Signals(ds strategy.DataSource) (strategy.Signals, error) {
	if len(c.strategies) == 0 {
		return strategy.Signals{}, core.Errorf(core.ErrNoStrategies, "composite has no strategies")
	}
	if _, err := ParseMode(string(c.mode)); err != nil {
		return strategy.Signals{}, err
	}

	children := make([]strategy.Signals, len(c.strategies))
	indices := make([][]time.Time, 0, 2*len(c.strategies))
	for i, s := range c.strategies {
		sig, err := s.Signals(ds)
		if err != nil {
			return strategy.Signals{}, err
		}
		children[i] = sig
		indices = append(indices, sig.Buy.Index, sig.Sell.Index)
	}

	index := series.Union(indices...)
	buys := make([]series.Bool, len(children))
	sells := make([]series.Bool, len(children))
	for i, sig := range children {
		buys[i] = sig.Buy.Reindex(index)
		sells[i] = sig.Sell.Reindex(index)
	}

	return strategy.Signals{
		Buy:  series.NewBool(index, c.combine(buys, len(index))),
		Sell: series.NewBool(index, c.combine(sells, len(index))),
	}, nil
}

func (c *Composite) combine(columns []series.Bool, n int) []bool {
	out := make([]bool, n)
	for row := 0; row < n; row++ {
		votes := 0
		for _, col := range columns {
			if col.Values[row] {
				votes++
			}
		}
		switch c.mode {
		case ModeAll:
			out[row] = votes == len(columns)
		case ModeAny:
			out[row] = votes > 0
		case ModeMajority:
			out[row] = 2*votes > len(columns)
		default:
			panic(fmt.Sprintf("composite: unknown mode %q", c.mode))
		}
	}
	return out
}
