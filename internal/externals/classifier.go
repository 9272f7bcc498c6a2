// Package externals decides, per imported module identifier, whether the
// import is bundled into the output or left as a runtime dependency
// reference. Decisions are driven by an ordered rule list assembled from the
// package manifest: user rules first, then the well-known helper set, then
// external rules derived from the declared dependencies. Classification is a
// pure function of the rule list and the identifier; the only side effects
// are the diagnostics required by the manifest's strict-externals policy.
package externals

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// Decision is the verdict for a single import identifier.
type Decision int

const (
	// DecisionInline merges the imported module into the build output.
	DecisionInline Decision = iota + 1
	// DecisionExternal leaves the import unresolved for the consumer.
	DecisionExternal
)

func (d Decision) String() string {
	switch d {
	case DecisionInline:
		return "inline"
	case DecisionExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Strictness controls what happens when an import externalizes by fallback
// rather than by an explicit rule or declared dependency.
type Strictness string

const (
	StrictAllow Strictness = "allow"
	StrictWarn  Strictness = "warn"
	StrictError Strictness = "error"
)

// ParseStrictness validates a strict-externals value from the manifest.
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(s) {
	case StrictAllow, StrictWarn, StrictError:
		return Strictness(s), nil
	case "":
		return StrictAllow, nil
	}
	return "", fmt.Errorf("invalid strictExternals value %q, expected allow, warn or error", s)
}

// StrictExternalError reports an import that fell through every rule while
// strict externals is set to error.
type StrictExternalError struct {
	ID       string
	Location string
}

func (e *StrictExternalError) Error() string {
	return fmt.Sprintf("import %q is not a declared dependency and no inline rule matches it; declare it or relax %s", e.ID, e.Location)
}

// Config carries the manifest-derived inputs for a Classifier.
type Config struct {
	// Rules are the user-declared rules in declaration order.
	Rules []Rule
	// Dependencies are declared runtime and optional dependency names, in
	// manifest order. Each expands to an external rule covering the package
	// and its subpaths.
	Dependencies []string
	// Strictness is the fallback policy for undeclared externals.
	Strictness Strictness
	// Location names the manifest field controlling Strictness, for
	// diagnostics.
	Location string
}

// Classifier evaluates import identifiers against an immutable rule list.
// Safe for concurrent use.
type Classifier struct {
	rules    []Rule
	strict   Strictness
	location string
	logger   zerolog.Logger
}

// New assembles the classifier rule order: user rules, well-known helpers,
// then dependency-derived external rules.
func New(cfg Config, logger zerolog.Logger) *Classifier {
	rules := slices.Clone(cfg.Rules)
	rules = append(rules, HelperRules()...)
	for _, dep := range cfg.Dependencies {
		rules = append(rules,
			Rule{Op: OpExact, Pattern: dep, Outcome: OutcomeExternal},
			Rule{Op: OpPrefix, Pattern: dep + "/", Outcome: OutcomeExternal},
		)
	}

	strict := cfg.Strictness
	if strict == "" {
		strict = StrictAllow
	}

	return &Classifier{
		rules:    rules,
		strict:   strict,
		location: cfg.Location,
		logger:   logger,
	}
}

// Classify returns the verdict for a single import identifier.
//
// Relative imports are always inline and never consult the rule list. The
// rule list is evaluated in order with first match winning; a matching rule
// with an unset outcome continues to the next rule. Unmatched import-map (#)
// and absolute (/) identifiers are inline. Everything else externalizes
// subject to the strict-externals policy.
func (c *Classifier) Classify(id string) (Decision, error) {
	if strings.HasPrefix(id, ".") {
		return DecisionInline, nil
	}

	for _, rule := range c.rules {
		if !rule.Matches(id) {
			continue
		}
		switch rule.Outcome {
		case OutcomeInline:
			return DecisionInline, nil
		case OutcomeExternal:
			return DecisionExternal, nil
		case OutcomeUnset:
			// explicit opt-out, keep evaluating
		}
	}

	if strings.HasPrefix(id, "#") || strings.HasPrefix(id, "/") {
		return DecisionInline, nil
	}

	switch c.strict {
	case StrictWarn:
		c.logger.Warn().
			Str("import", id).
			Str("controlled_by", c.location).
			Msg("undeclared import treated as external")
		return DecisionExternal, nil
	case StrictError:
		return 0, &StrictExternalError{ID: id, Location: c.location}
	default:
		return DecisionExternal, nil
	}
}
