// Package manifest loads package metadata for a build: the package.json
// dependency declarations plus the jspack configuration block, with an
// optional .jspack.yaml overlay for settings that do not belong in the
// published manifest. Defaulting and validation happen here so the
// classifier and rewriter receive fully resolved inputs.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wolfeidau/jspack/internal/externals"
)

// OverlayFile is the optional per-project configuration file read alongside
// package.json.
const OverlayFile = ".jspack.yaml"

// Manifest is the resolved package metadata consumed by the build pipeline.
// Immutable once loaded.
type Manifest struct {
	// Root is the package directory the manifest was loaded from.
	Root string
	// Name is the published package name.
	Name string
	// Main is the package entry point declared in package.json.
	Main string
	// Dependencies lists declared runtime, optional and peer dependency
	// names in declaration order.
	Dependencies []string
	// Rules is the normalized inline-rule sequence.
	Rules []externals.Rule
	// Strictness is the resolved strict-externals policy.
	Strictness externals.Strictness
	// StrictLocation names the file and field the policy came from, for
	// diagnostics.
	StrictLocation string

	// Build settings from the overlay file, empty when unset.
	Entry   string
	OutDir  string
	Formats []string
}

// depList preserves the declaration order of a package.json dependency
// object, which encoding/json maps would destroy.
type depList []string

func (d *depList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("dependencies must be an object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("invalid dependency name %v", keyTok)
		}
		var version string
		if err := dec.Decode(&version); err != nil {
			return fmt.Errorf("invalid version for dependency %q: %w", name, err)
		}
		*d = append(*d, name)
	}
	_, err = dec.Token()
	return err
}

type packageJSON struct {
	Name                 string    `json:"name"`
	Main                 string    `json:"main"`
	Module               string    `json:"module"`
	Dependencies         depList   `json:"dependencies"`
	OptionalDependencies depList   `json:"optionalDependencies"`
	PeerDependencies     depList   `json:"peerDependencies"`
	JSPack               *settings `json:"jspack"`
}

type settings struct {
	Inline          RuleDecls `json:"inline"`
	StrictExternals string    `json:"strictExternals"`
}

type overlay struct {
	Inline          *RuleDecls `yaml:"inline"`
	StrictExternals *string    `yaml:"strictExternals"`
	Entry           string     `yaml:"entry"`
	OutDir          string     `yaml:"outDir"`
	Formats         []string   `yaml:"formats"`
}

// Load reads package.json from root, applies the .jspack.yaml overlay when
// present, and returns the resolved manifest. Overlay fields win over the
// package.json jspack block.
func Load(root string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read package.json: %w", err)
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package.json: %w", err)
	}

	m := &Manifest{
		Root:           root,
		Name:           pkg.Name,
		Main:           pkg.Main,
		Strictness:     externals.StrictAllow,
		StrictLocation: "package.json#jspack.strictExternals",
	}
	if m.Main == "" {
		m.Main = pkg.Module
	}

	m.Dependencies = append(m.Dependencies, pkg.Dependencies...)
	m.Dependencies = append(m.Dependencies, pkg.OptionalDependencies...)
	m.Dependencies = append(m.Dependencies, pkg.PeerDependencies...)

	if pkg.JSPack != nil {
		m.Rules = pkg.JSPack.Inline.Rules()
		strict, err := externals.ParseStrictness(pkg.JSPack.StrictExternals)
		if err != nil {
			return nil, fmt.Errorf("package.json#jspack: %w", err)
		}
		m.Strictness = strict
	}

	if err := m.applyOverlay(root); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) applyOverlay(root string) error {
	data, err := os.ReadFile(filepath.Join(root, OverlayFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", OverlayFile, err)
	}

	var ov overlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("failed to parse %s: %w", OverlayFile, err)
	}

	if ov.Inline != nil {
		m.Rules = ov.Inline.Rules()
	}
	if ov.StrictExternals != nil {
		strict, err := externals.ParseStrictness(*ov.StrictExternals)
		if err != nil {
			return fmt.Errorf("%s: %w", OverlayFile, err)
		}
		m.Strictness = strict
		m.StrictLocation = OverlayFile + "#strictExternals"
	}
	m.Entry = ov.Entry
	m.OutDir = ov.OutDir
	m.Formats = ov.Formats
	return nil
}

// ClassifierConfig maps the manifest onto the classifier's inputs.
func (m *Manifest) ClassifierConfig() externals.Config {
	return externals.Config{
		Rules:        m.Rules,
		Dependencies: m.Dependencies,
		Strictness:   m.Strictness,
		Location:     m.StrictLocation,
	}
}
