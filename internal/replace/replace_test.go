package replace

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Mode
		wantErr  bool
	}{
		{
			name:     "development",
			input:    "development",
			expected: ModeDevelopment,
		},
		{
			name:     "production",
			input:    "production",
			expected: ModeProduction,
		},
		{
			name:     "unset",
			input:    "",
			expected: ModeUnset,
		},
		{
			name:    "invalid",
			input:   "staging",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := ParseMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, mode)
		})
	}
}

func TestNewTable(t *testing.T) {
	dev := NewTable(ModeDevelopment, false)
	require.Equal(t, "true", dev["import.meta.env.DEV"])
	require.Equal(t, "false", dev["import.meta.env.PROD"])
	require.Equal(t, `"development"`, dev["import.meta.env.MODE"])
	require.Equal(t, `"development"`, dev["process.env.NODE_ENV"])
	require.Equal(t, "false", dev["import.meta.env.TRACE"])

	prod := NewTable(ModeProduction, true)
	require.Equal(t, "false", prod["import.meta.env.DEV"])
	require.Equal(t, "true", prod["import.meta.env.PROD"])
	require.Equal(t, `"production"`, prod["import.meta.env.MODE"])
	require.Equal(t, `"production"`, prod["process.env.NODE_ENV"])
	require.Equal(t, "true", prod["import.meta.env.TRACE"])

	// Unset mode keeps mode-dependent tokens for runtime resolution.
	unset := NewTable(ModeUnset, false)
	require.NotContains(t, unset, "import.meta.env.DEV")
	require.NotContains(t, unset, "process.env.NODE_ENV")
	require.Contains(t, unset, "import.meta.env.TRACE")
}

func TestRewriteReplacesGuard(t *testing.T) {
	r := NewRewriter(Table{"import.meta.env.DEV": "true"}, false)

	result, err := r.Rewrite("app.js", "if (import.meta.env.DEV) { x() }")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, "if (true) { x() }", result.Code)
	require.Nil(t, result.Map)
}

func TestRewriteNoMatchReturnsNil(t *testing.T) {
	r := NewRewriter(NewTable(ModeProduction, false), true)

	result, err := r.Rewrite("app.js", "const answer = 42")
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestRewriteEmptyTableReturnsNil(t *testing.T) {
	r := NewRewriter(Table{}, true)

	result, err := r.Rewrite("app.js", "if (import.meta.env.DEV) { x() }")
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestRewriteWordBoundary(t *testing.T) {
	r := NewRewriter(Table{"import.meta.env.DEV": "true"}, false)

	tests := []struct {
		name string
		code string
	}{
		{
			name: "similarly named identifier",
			code: "const import_meta_envDEV = 1",
		},
		{
			name: "longer member expression",
			code: "if (import.meta.env.DEVTOOLS) { x() }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := r.Rewrite("app.js", tt.code)
			require.NoError(t, err)
			require.Nil(t, result)
		})
	}
}

func TestRewriteAllOccurrences(t *testing.T) {
	r := NewRewriter(NewTable(ModeProduction, false), false)

	code := "if (import.meta.env.DEV) { a() }\nif (import.meta.env.PROD) { b() }\nconsole.log(process.env.NODE_ENV)\n"
	result, err := r.Rewrite("app.js", code)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, "if (false) { a() }\nif (true) { b() }\nconsole.log(\"production\")\n", result.Code)
}

func TestRewriteIdempotent(t *testing.T) {
	r := NewRewriter(NewTable(ModeDevelopment, true), false)

	code := "export const dev = import.meta.env.DEV && import.meta.env.MODE"
	result, err := r.Rewrite("app.js", code)
	require.NoError(t, err)
	require.NotNil(t, result)

	// Replacements never reintroduce tokens, so a second pass finds nothing.
	again, err := r.Rewrite("app.js", result.Code)
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestRewriteDeterministic(t *testing.T) {
	r := NewRewriter(NewTable(ModeProduction, false), true)

	code := "if (import.meta.env.DEV) {\n  debug()\n}\n"
	first, err := r.Rewrite("app.js", code)
	require.NoError(t, err)
	second, err := r.Rewrite("app.js", code)
	require.NoError(t, err)
	require.Equal(t, first.Code, second.Code)
	require.Equal(t, first.Map, second.Map)
}

func TestRewriteFullTableNeverMissing(t *testing.T) {
	// The alternation is built from the table's own keys, so a correctly
	// constructed rewriter can never hit the missing-replacement path.
	for _, mode := range []Mode{ModeDevelopment, ModeProduction, ModeUnset} {
		table := NewTable(mode, true)
		r := NewRewriter(table, false)

		var code string
		for token := range table {
			code += "f(" + token + ")\n"
		}
		result, err := r.Rewrite("app.js", code)
		require.NoError(t, err)
		require.NotNil(t, result)
		for token := range table {
			require.NotContains(t, result.Code, token)
		}
	}
}

func TestRewriteMissingReplacementDefensive(t *testing.T) {
	// Hand-build an inconsistent rewriter whose pattern recognizes a token
	// absent from the table.
	r := &Rewriter{
		table:   Table{"import.meta.env.DEV": "true"},
		pattern: regexp.MustCompile(`\b(?:import\.meta\.env\.DEV|import\.meta\.env\.PROD)\b`),
	}

	_, err := r.Rewrite("app.js", "if (import.meta.env.PROD) { x() }")
	require.Error(t, err)

	var missing *MissingReplacementError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "import.meta.env.PROD", missing.Token)
	require.Contains(t, err.Error(), "import.meta.env.DEV=true")
}
