package externals

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testClassifier(cfg Config) *Classifier {
	return New(cfg, zerolog.Nop())
}

func TestClassifyRelativeAlwaysInline(t *testing.T) {
	// Even a rule list that externalizes everything must not be consulted
	// for relative imports.
	c := testClassifier(Config{
		Rules:      []Rule{ParseRule("*", OutcomeExternal)},
		Strictness: StrictError,
	})

	for _, id := range []string{".", "./utils", "../shared/index.js", "./nested/deep"} {
		decision, err := c.Classify(id)
		require.NoError(t, err, id)
		require.Equal(t, DecisionInline, decision, id)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	c := testClassifier(Config{
		Rules: []Rule{
			ParseRule("@scope/*", OutcomeInline),
			ParseRule("@scope/keep-out", OutcomeExternal),
		},
	})

	decision, err := c.Classify("@scope/keep-out")
	require.NoError(t, err)
	require.Equal(t, DecisionInline, decision)
}

func TestClassifyUnsetContinuesEvaluation(t *testing.T) {
	c := testClassifier(Config{
		Rules: []Rule{
			ParseRule("@scope/special", OutcomeUnset),
			ParseRule("@scope/*", OutcomeExternal),
		},
	})

	decision, err := c.Classify("@scope/special")
	require.NoError(t, err)
	require.Equal(t, DecisionExternal, decision)
}

func TestClassifyWildcard(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		expected Decision
	}{
		{
			name:     "scoped package",
			id:       "@scope/foo",
			expected: DecisionInline,
		},
		{
			name:     "scoped package with dash",
			id:       "@scope/foo-bar",
			expected: DecisionInline,
		},
		{
			name:     "scoped package subpath",
			id:       "@scope/foo/dist/index.js",
			expected: DecisionInline,
		},
		{
			name:     "different scope",
			id:       "@scope2/foo",
			expected: DecisionExternal,
		},
		{
			name:     "bare prefix without trailing characters",
			id:       "@scope/",
			expected: DecisionExternal,
		},
	}

	c := testClassifier(Config{
		Rules: []Rule{ParseRule("@scope/*", OutcomeInline)},
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := c.Classify(tt.id)
			require.NoError(t, err)
			require.Equal(t, tt.expected, decision)
		})
	}
}

func TestClassifyImportMapAndAbsoluteInline(t *testing.T) {
	c := testClassifier(Config{Strictness: StrictError})

	for _, id := range []string{"#utils", "#internal/helpers", "/opt/shared/lib.js"} {
		decision, err := c.Classify(id)
		require.NoError(t, err, id)
		require.Equal(t, DecisionInline, decision, id)
	}
}

func TestClassifyRuleOverridesImportMapDefault(t *testing.T) {
	c := testClassifier(Config{
		Rules: []Rule{ParseRule("#utils", OutcomeExternal)},
	})

	decision, err := c.Classify("#utils")
	require.NoError(t, err)
	require.Equal(t, DecisionExternal, decision)
}

func TestClassifyDeclaredDependenciesExternal(t *testing.T) {
	c := testClassifier(Config{
		Dependencies: []string{"react", "@scope/pkg"},
		Strictness:   StrictError,
	})

	for _, id := range []string{"react", "react/jsx-runtime", "@scope/pkg", "@scope/pkg/server"} {
		decision, err := c.Classify(id)
		require.NoError(t, err, id)
		require.Equal(t, DecisionExternal, decision, id)
	}
}

func TestClassifyHelpersInlineByDefault(t *testing.T) {
	c := testClassifier(Config{Strictness: StrictError})

	for _, id := range []string{"tslib", "@babel/runtime/helpers/esm/extends", "@swc/helpers/_/_ts_decorate", "regenerator-runtime"} {
		decision, err := c.Classify(id)
		require.NoError(t, err, id)
		require.Equal(t, DecisionInline, decision, id)
	}
}

func TestClassifyUserRuleSupersedesHelpers(t *testing.T) {
	c := testClassifier(Config{
		Rules: []Rule{ParseRule("tslib", OutcomeExternal)},
	})

	decision, err := c.Classify("tslib")
	require.NoError(t, err)
	require.Equal(t, DecisionExternal, decision)
}

func TestClassifyStrictness(t *testing.T) {
	tests := []struct {
		name       string
		strictness Strictness
		expected   Decision
		wantErr    bool
	}{
		{
			name:       "allow externalizes silently",
			strictness: StrictAllow,
			expected:   DecisionExternal,
		},
		{
			name:       "warn externalizes",
			strictness: StrictWarn,
			expected:   DecisionExternal,
		},
		{
			name:       "error fails classification",
			strictness: StrictError,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClassifier(Config{
				Strictness: tt.strictness,
				Location:   "package.json#jspack.strictExternals",
			})

			decision, err := c.Classify("undeclared-pkg")
			if tt.wantErr {
				require.Error(t, err)
				var strictErr *StrictExternalError
				require.True(t, errors.As(err, &strictErr))
				require.Equal(t, "undeclared-pkg", strictErr.ID)
				require.Equal(t, "package.json#jspack.strictExternals", strictErr.Location)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, decision)
		})
	}
}

func TestClassifyPure(t *testing.T) {
	c := testClassifier(Config{
		Rules:        []Rule{ParseRule("@scope/*", OutcomeInline)},
		Dependencies: []string{"react"},
	})

	for _, id := range []string{"./local", "@scope/foo", "react", "unknown"} {
		first, err1 := c.Classify(id)
		second, err2 := c.Classify(id)
		require.Equal(t, err1, err2)
		require.Equal(t, first, second, id)
	}
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected Rule
	}{
		{
			name:     "exact pattern",
			pattern:  "lodash",
			expected: Rule{Op: OpExact, Pattern: "lodash", Outcome: OutcomeInline},
		},
		{
			name:     "wildcard pattern",
			pattern:  "@scope/*",
			expected: Rule{Op: OpPrefix, Pattern: "@scope/", Outcome: OutcomeInline},
		},
		{
			name:     "bare wildcard",
			pattern:  "*",
			expected: Rule{Op: OpPrefix, Pattern: "", Outcome: OutcomeInline},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ParseRule(tt.pattern, OutcomeInline))
		})
	}
}

func TestParseStrictness(t *testing.T) {
	for _, valid := range []string{"allow", "warn", "error"} {
		s, err := ParseStrictness(valid)
		require.NoError(t, err)
		require.Equal(t, Strictness(valid), s)
	}

	s, err := ParseStrictness("")
	require.NoError(t, err)
	require.Equal(t, StrictAllow, s)

	_, err = ParseStrictness("strict")
	require.Error(t, err)
}
