// Package replace erases compile-time constant expressions from source text
// before bundling, so a later minification pass can drop the branches they
// guard. Replacement is textual and context-blind: tokens are matched as
// whole identifiers via word-boundary guards, and the scan does not attempt
// to skip string literals or comments. The token set is small and
// fixed-format, so occurrences inside literals do not arise in practice.
package replace

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Mode selects which literal values replace the environment-guard tokens.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
	// ModeUnset leaves the mode-dependent tokens untouched for runtime
	// resolution.
	ModeUnset Mode = ""
)

// ParseMode validates a mode value from flags or the environment.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDevelopment, ModeProduction, ModeUnset:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q, expected development or production", s)
}

// Table maps literal source tokens to their replacement text.
type Table map[string]string

// NewTable builds the replacement table for a single build invocation. The
// mode-dependent tokens are omitted entirely when the mode is unset; the
// trace token is always present so trace branches are resolvable either way.
func NewTable(mode Mode, trace bool) Table {
	t := Table{
		"import.meta.env.TRACE": strconv.FormatBool(trace),
	}

	switch mode {
	case ModeDevelopment:
		t["import.meta.env.DEV"] = "true"
		t["import.meta.env.PROD"] = "false"
		t["import.meta.env.MODE"] = `"development"`
		t["process.env.NODE_ENV"] = `"development"`
	case ModeProduction:
		t["import.meta.env.DEV"] = "false"
		t["import.meta.env.PROD"] = "true"
		t["import.meta.env.MODE"] = `"production"`
		t["process.env.NODE_ENV"] = `"production"`
	}

	return t
}

func (t Table) String() string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, t[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MissingReplacementError reports a token matched by the alternation pattern
// with no entry in the table. The pattern is built from the table's own keys,
// so this indicates a construction bug; the full table is echoed to make the
// inconsistency diagnosable.
type MissingReplacementError struct {
	Token string
	Table Table
}

func (e *MissingReplacementError) Error() string {
	return fmt.Sprintf("matched token %q has no replacement, table: %s", e.Token, e.Table)
}

// Result is the outcome of a rewrite that changed the code. Map holds the
// JSON source map back to the original text when map generation is enabled.
type Result struct {
	Code string
	Map  []byte
}

// Rewriter applies a replacement table to source text. Immutable after
// construction and safe for concurrent use across files.
type Rewriter struct {
	table     Table
	pattern   *regexp.Regexp
	sourceMap bool
}

// NewRewriter compiles the table into a single alternation pattern. Keys are
// escaped for literal matching, guarded by word boundaries, and ordered
// longest first so the leftmost match is also the longest.
func NewRewriter(table Table, sourceMap bool) *Rewriter {
	r := &Rewriter{table: table, sourceMap: sourceMap}
	if len(table) == 0 {
		return r
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}
	r.pattern = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
	return r
}

// Rewrite replaces every occurrence of the table's tokens in code. A nil
// result means nothing matched and the caller should pass the file through
// untouched, skipping map generation entirely. The source argument names the
// original file in the emitted map.
func (r *Rewriter) Rewrite(source, code string) (*Result, error) {
	if r.pattern == nil {
		return nil, nil
	}

	locs := r.pattern.FindAllStringIndex(code, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	var out strings.Builder
	out.Grow(len(code))

	var sm *mapBuilder
	if r.sourceMap {
		sm = newMapBuilder(source, code)
	}

	last := 0
	for _, loc := range locs {
		token := code[loc[0]:loc[1]]
		replacement, ok := r.table[token]
		if !ok {
			return nil, &MissingReplacementError{Token: token, Table: r.table}
		}

		out.WriteString(code[last:loc[0]])
		out.WriteString(replacement)
		if sm != nil {
			sm.copy(code[last:loc[0]], last)
			sm.splice(replacement, loc[0])
		}
		last = loc[1]
	}
	out.WriteString(code[last:])
	if sm != nil {
		sm.copy(code[last:], last)
	}

	result := &Result{Code: out.String()}
	if sm != nil {
		encoded, err := sm.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate source map: %w", err)
		}
		result.Map = encoded
	}
	return result, nil
}
