// Package alert matches backtest metrics against "metric op value" rules.
package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

// Rule defines an alert rule, for example
//
//	name: strong
//	expr: total_return > 0.2
//	message: beat the market
type Rule struct {
	Name     string `mapstructure:"name"`
	Expr     string `mapstructure:"expr"`
	Severity string `mapstructure:"severity"`
	Message  string `mapstructure:"message"`
}

type condition struct {
	metric    string
	op        string
	threshold float64
}

func parse(expr string) (condition, error) {
	matches := exprPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if len(matches) != 4 {
		return condition{}, fmt.Errorf("alert: cannot parse expression %q", expr)
	}
	threshold, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return condition{}, fmt.Errorf("alert: bad threshold in %q: %w", expr, err)
	}
	return condition{metric: matches[1], op: matches[2], threshold: threshold}, nil
}

// Validate reports whether the expression parses.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("alert: rule name is required")
	}
	_, err := parse(r.Expr)
	return err
}

// Evaluate evaluates the rule expression against metrics. Unknown metrics
// and unparsable expressions never match.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	c, err := parse(r.Expr)
	if err != nil {
		return false
	}

	value, exists := metrics[c.metric]
	if !exists {
		return false
	}

	switch c.op {
	case ">":
		return value > c.threshold
	case "<":
		return value < c.threshold
	case ">=":
		return value >= c.threshold
	case "<=":
		return value <= c.threshold
	case "==":
		return value == c.threshold
	case "!=":
		return value != c.threshold
	default:
		return false
	}
}

// FormatMessage formats the alert message.
func (r *Rule) FormatMessage() string {
	severity := r.Severity
	if severity == "" {
		severity = "info"
	}
	msg := r.Message
	if msg == "" {
		msg = r.Expr
	}
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(severity), r.Name, msg)
}

// Matching returns the formatted messages of every rule that matches.
func Matching(rules []Rule, metrics map[string]float64) []string {
	var out []string
	for i := range rules {
		if rules[i].Evaluate(metrics) {
			out = append(out, rules[i].FormatMessage())
		}
	}
	return out
}
