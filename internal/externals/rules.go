package externals

import "strings"

// Outcome is the classification a rule assigns to imports it matches.
type Outcome int

const (
	// OutcomeUnset marks a rule that matches but defers to later rules.
	OutcomeUnset Outcome = iota
	// OutcomeInline merges the import into the build output.
	OutcomeInline
	// OutcomeExternal leaves the import as a runtime reference.
	OutcomeExternal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInline:
		return "inline"
	case OutcomeExternal:
		return "external"
	default:
		return "unset"
	}
}

// Op selects how a rule pattern is compared against an import identifier.
type Op int

const (
	// OpExact matches only identical identifiers.
	OpExact Op = iota
	// OpPrefix matches identifiers that extend the pattern by one or more
	// package-name characters.
	OpPrefix
)

// Rule maps import identifiers matching a pattern to an outcome. Rules are
// evaluated in declaration order and the first match wins, except for
// OutcomeUnset which continues evaluation.
type Rule struct {
	Op      Op
	Pattern string
	Outcome Outcome
}

// ParseRule builds a Rule from a user pattern. A trailing "*" selects prefix
// matching over the remainder of the pattern; anything else is exact.
func ParseRule(pattern string, outcome Outcome) Rule {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return Rule{Op: OpPrefix, Pattern: prefix, Outcome: outcome}
	}
	return Rule{Op: OpExact, Pattern: pattern, Outcome: outcome}
}

// Matches reports whether the rule applies to the import identifier. Prefix
// rules require at least one trailing character, and the trailing characters
// must all belong to the package-name charset, so "@scope/*" matches
// "@scope/foo" but not "@scope2/foo" or a bare "@scope/".
func (r Rule) Matches(id string) bool {
	switch r.Op {
	case OpExact:
		return id == r.Pattern
	case OpPrefix:
		rest, ok := strings.CutPrefix(id, r.Pattern)
		return ok && validPackageChars(rest)
	}
	return false
}

func validPackageChars(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '@' || c == '.' || c == '_' || c == '-' || c == '/':
		default:
			return false
		}
	}
	return true
}

// wellKnownHelpers are runtime helper libraries that compilers inject into
// emitted code. Published packages should not force consumers to install
// them, so they default to inline unless an earlier user rule says otherwise.
var wellKnownHelpers = []string{
	"tslib",
	"@babel/runtime",
	"@swc/helpers",
	"regenerator-runtime",
}

// HelperRules expands the well-known helper set into rules covering both the
// bare package name and its subpath imports.
func HelperRules() []Rule {
	rules := make([]Rule, 0, len(wellKnownHelpers)*2)
	for _, name := range wellKnownHelpers {
		rules = append(rules,
			Rule{Op: OpExact, Pattern: name, Outcome: OutcomeInline},
			Rule{Op: OpPrefix, Pattern: name + "/", Outcome: OutcomeInline},
		)
	}
	return rules
}
