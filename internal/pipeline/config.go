package pipeline

import (
	"fmt"

	"github.com/wolfeidau/jspack/internal/replace"
)

// Format is an output module format.
type Format string

const (
	FormatESM Format = "esm"
	FormatCJS Format = "cjs"
)

// ParseFormat validates a format value from flags or the overlay file.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatESM, FormatCJS:
		return Format(s), nil
	}
	return "", fmt.Errorf("invalid format %q, expected esm or cjs", s)
}

// outExtension returns the published file extension for a format.
func outExtension(f Format) string {
	if f == FormatCJS {
		return ".cjs"
	}
	return ".mjs"
}

type Config struct {
	// Package directory
	Root string
	// Entry point file or glob, relative to Root; falls back to the
	// manifest main field when empty
	Entry string
	// Output directory for built files, relative to Root; falls back to
	// the overlay outDir and then dist when empty
	OutDir string
	// Output formats to build
	Formats []Format
	// Build mode driving the literal replacement table
	Mode replace.Mode
	// Whether trace guards are kept live
	Trace bool
	// Whether to minify output
	Minify bool
	// Whether to emit source maps
	SourceMap bool
	// Whether to write the esbuild metafile per format
	Metafile bool
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		Root:      ".",
		Formats:   []Format{FormatESM},
		Mode:      replace.ModeDevelopment,
		Minify:    true,
		SourceMap: true,
		Metafile:  true,
	}
}
