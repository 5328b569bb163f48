package strategy

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/newthinker/strata/internal/core"
)

// Builder constructs a strategy from loosely typed parameters
type Builder func(params Params) (Strategy, error)

// Field describes one parameter in the strategy catalog
type Field struct {
	Name    string   `json:"name" yaml:"name"`
	Label   string   `json:"label" yaml:"label"`
	Kind    string   `json:"kind" yaml:"kind"` // "number", "select" or "strategies"
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
	Default any      `json:"default,omitempty" yaml:"default,omitempty"`
}

// Definition registers a strategy type
type Definition struct {
	Type        string  `json:"type" yaml:"type"`
	Label       string  `json:"label" yaml:"label"`
	Description string  `json:"description" yaml:"description"`
	Fields      []Field `json:"fields" yaml:"fields"`
	Build       Builder `json:"-" yaml:"-"`
}

// Registry maps strategy type names to builders
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
	logger      *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger ...*zap.Logger) *Registry {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Registry{
		definitions: make(map[string]Definition),
		logger:      l,
	}
}

// Register adds or replaces a strategy type
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.Type] = def
}

// Get retrieves a definition by type
func (r *Registry) Get(typ string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.definitions[typ]
	return d, ok
}

// Definitions returns every registered type sorted by name
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Definition, 0, len(r.definitions))
	for _, d := range r.definitions {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// Build constructs the strategy described by cfg
func (r *Registry) Build(cfg Config) (Strategy, error) {
	def, ok := r.Get(cfg.Type)
	if !ok {
		return nil, core.Errorf(core.ErrStrategyNotImplemented, "unknown strategy type %q", cfg.Type)
	}

	params := Params(cfg.Params)
	if params == nil {
		params = Params{}
	}

	s, err := def.Build(params)
	if err != nil {
		r.logger.Debug("strategy build failed",
			zap.String("type", cfg.Type),
			zap.Error(err),
		)
		return nil, err
	}
	return s, nil
}
