package strategy

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/newthinker/strata/internal/core"
)

// Params is a loosely typed parameter map as received from config files or
// JSON requests. Numeric values may arrive as numbers or strings.
type Params map[string]any

func (p Params) lookup(key string) (any, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, core.Errorf(core.ErrMissingParameter, "must include '%s'", key)
	}
	return v, nil
}

// Int returns key coerced to an int.
func (p Params) Int(key string) (int, error) {
	v, err := p.lookup(key)
	if err != nil {
		return 0, err
	}
	n, err := toInt(v)
	if err != nil {
		return 0, core.Errorf(core.ErrInvalidConfiguration, "%s must be an integer, got %v", key, v)
	}
	return n, nil
}

// toInt reads strings as base 10 so "010" is ten, not octal.
func toInt(v any) (int, error) {
	s, ok := v.(string)
	if !ok {
		return cast.ToIntE(v)
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), ".0")
	return strconv.Atoi(s)
}

// Float returns key coerced to a float64.
func (p Params) Float(key string) (float64, error) {
	v, err := p.lookup(key)
	if err != nil {
		return 0, err
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, core.Errorf(core.ErrInvalidConfiguration, "%s must be a number, got %v", key, v)
	}
	return f, nil
}

// String returns key coerced to a string.
func (p Params) String(key string) (string, error) {
	v, err := p.lookup(key)
	if err != nil {
		return "", err
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", core.Errorf(core.ErrInvalidConfiguration, "%s must be a string, got %v", key, v)
	}
	return s, nil
}

// FloatOr is Float with a default for an absent key.
func (p Params) FloatOr(key string, def float64) (float64, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.Float(key)
}

// Configs decodes key as a list of nested strategy configs.
func (p Params) Configs(key string) ([]Config, error) {
	v, err := p.lookup(key)
	if err != nil {
		return nil, err
	}

	var items []any
	switch t := v.(type) {
	case []Config:
		return t, nil
	case []map[string]any:
		for _, m := range t {
			items = append(items, m)
		}
	default:
		items, err = cast.ToSliceE(v)
		if err != nil {
			return nil, core.Errorf(core.ErrInvalidConfiguration, "%s must be a list of strategies", key)
		}
	}

	configs := make([]Config, 0, len(items))
	for i, item := range items {
		if c, ok := item.(Config); ok {
			configs = append(configs, c)
			continue
		}
		m, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, core.Errorf(core.ErrInvalidConfiguration, "%s[%d] must be an object", key, i)
		}
		typ, err := Params(m).String("type")
		if err != nil {
			return nil, err
		}
		var params map[string]any
		if raw, ok := m["params"]; ok && raw != nil {
			params, err = cast.ToStringMapE(raw)
			if err != nil {
				return nil, core.Errorf(core.ErrInvalidConfiguration, "%s[%d].params must be an object", key, i)
			}
		}
		configs = append(configs, Config{Type: typ, Params: params})
	}
	return configs, nil
}
