package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/wolfeidau/jspack/internal/externals"
)

// RuleDecls holds inline-rule declarations in their declared order. Two
// declaration forms normalize to the same sequence: a flat list of patterns,
// each implicitly inline, or a mapping of pattern to outcome. Plain Go maps
// would lose the order, so both decoders walk the raw document instead.
type RuleDecls struct {
	rules []externals.Rule
}

// Rules returns the normalized rule sequence.
func (r RuleDecls) Rules() []externals.Rule {
	return slices.Clone(r.rules)
}

func (r *RuleDecls) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var patterns []string
		if err := json.Unmarshal(trimmed, &patterns); err != nil {
			return fmt.Errorf("invalid inline rule list: %w", err)
		}
		for _, pattern := range patterns {
			r.rules = append(r.rules, externals.ParseRule(pattern, externals.OutcomeInline))
		}
		return nil
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := dec.Token(); err != nil {
			return err
		}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			pattern, ok := keyTok.(string)
			if !ok {
				return fmt.Errorf("invalid inline rule key %v", keyTok)
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return err
			}
			outcome, err := parseOutcomeJSON(pattern, raw)
			if err != nil {
				return err
			}
			r.rules = append(r.rules, externals.ParseRule(pattern, outcome))
		}
		_, err := dec.Token()
		return err
	}
	return fmt.Errorf("inline rules must be a list of patterns or a pattern to outcome mapping")
}

func (r *RuleDecls) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		for _, item := range node.Content {
			var pattern string
			if err := item.Decode(&pattern); err != nil {
				return fmt.Errorf("invalid inline rule list: %w", err)
			}
			r.rules = append(r.rules, externals.ParseRule(pattern, externals.OutcomeInline))
		}
		return nil
	case yaml.MappingNode:
		// Mapping node content alternates key and value nodes, preserving
		// document order.
		for i := 0; i+1 < len(node.Content); i += 2 {
			pattern := node.Content[i].Value
			outcome, err := parseOutcomeYAML(pattern, node.Content[i+1])
			if err != nil {
				return err
			}
			r.rules = append(r.rules, externals.ParseRule(pattern, outcome))
		}
		return nil
	}
	return fmt.Errorf("inline rules must be a list of patterns or a pattern to outcome mapping")
}

func parseOutcomeJSON(pattern string, raw json.RawMessage) (externals.Outcome, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return externals.OutcomeUnset, nil
	case bytes.Equal(trimmed, []byte("true")):
		return externals.OutcomeInline, nil
	case bytes.Equal(trimmed, []byte("false")):
		return externals.OutcomeExternal, nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return 0, fmt.Errorf("invalid outcome for inline rule %q: %s", pattern, trimmed)
	}
	return parseOutcomeString(pattern, s)
}

func parseOutcomeYAML(pattern string, node *yaml.Node) (externals.Outcome, error) {
	switch node.Tag {
	case "!!null":
		return externals.OutcomeUnset, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return 0, err
		}
		if b {
			return externals.OutcomeInline, nil
		}
		return externals.OutcomeExternal, nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return 0, fmt.Errorf("invalid outcome for inline rule %q: %w", pattern, err)
	}
	return parseOutcomeString(pattern, s)
}

func parseOutcomeString(pattern, s string) (externals.Outcome, error) {
	switch s {
	case "inline":
		return externals.OutcomeInline, nil
	case "external":
		return externals.OutcomeExternal, nil
	case "unset", "":
		return externals.OutcomeUnset, nil
	}
	return 0, fmt.Errorf("invalid outcome %q for inline rule %q, expected inline, external or unset", s, pattern)
}
