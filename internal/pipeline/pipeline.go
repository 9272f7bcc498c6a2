// Package pipeline orchestrates a package build: it resolves entry points,
// wires the externals classifier and literal rewriter into the bundler as
// plugins, runs one bundler invocation per output format, and stages the
// publish files alongside the built output.
package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/jspack/internal/externals"
	"github.com/wolfeidau/jspack/internal/manifest"
	"github.com/wolfeidau/jspack/internal/replace"
)

// publishFiles are copied verbatim into the output directory when present,
// so the directory can be published as-is.
var publishFiles = []string{"package.json", "README.md", "CHANGELOG.md", "LICENSE"}

// Pipeline runs bundler invocations for a single package. Immutable after
// construction; rule sets and replacement tables are built once per
// invocation and never shared across builds.
type Pipeline struct {
	config     Config
	man        *manifest.Manifest
	classifier *externals.Classifier
	rewriter   *replace.Rewriter
	logger     zerolog.Logger
}

// New constructs the classifier and rewriter for this build invocation.
func New(config Config, man *manifest.Manifest, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		config:     config,
		man:        man,
		classifier: externals.New(man.ClassifierConfig(), logger),
		rewriter:   replace.NewRewriter(replace.NewTable(config.Mode, config.Trace), config.SourceMap),
		logger:     logger,
	}
}

// Build runs one bundler invocation per configured format and stages the
// publish files. A classification or rewrite failure aborts the build and is
// returned typed for the caller to inspect.
func (p *Pipeline) Build() error {
	log := p.logger.With().
		Str("build_id", uuid.New().String()).
		Str("package", p.man.Name).
		Logger()

	entryPoints, err := p.entryPoints()
	if err != nil {
		return err
	}

	root, err := filepath.Abs(p.config.Root)
	if err != nil {
		return err
	}

	tsconfig, target := tsconfigSettings(root, log)
	outDir := filepath.Join(root, p.outDir())

	log.Info().
		Strs("entrypoints", entryPoints).
		Str("mode", string(p.config.Mode)).
		Str("out_dir", outDir).
		Msg("Building package")

	for _, format := range p.config.Formats {
		if err := p.buildFormat(log, root, outDir, tsconfig, target, entryPoints, format); err != nil {
			return err
		}
	}

	return p.stagePublishFiles(log, root, outDir)
}

func (p *Pipeline) buildFormat(log zerolog.Logger, root, outDir, tsconfig string, target api.Target, entryPoints []string, format Format) error {
	capture := &errCapture{}

	result := api.Build(api.BuildOptions{
		AbsWorkingDir:     root,
		EntryPoints:       entryPoints,
		Bundle:            true,
		Write:             true,
		Outdir:            outDir,
		OutExtension:      map[string]string{".js": outExtension(format)},
		Format:            esbuildFormat(format),
		Platform:          api.PlatformNeutral,
		Target:            target,
		Tsconfig:          tsconfig,
		MinifyWhitespace:  p.config.Minify,
		MinifyIdentifiers: p.config.Minify,
		MinifySyntax:      p.config.Minify,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         cond(p.config.SourceMap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:          p.config.Metafile,
		LogLevel:          api.LogLevelSilent,
		Plugins: []api.Plugin{
			hookPlugin("jspack-externals", &externalsHook{classifier: p.classifier}, nil, capture),
			hookPlugin("jspack-replace", nil, &rewriteHook{rewriter: p.rewriter, root: root}, capture),
		},
	})

	// Prefer the typed error a hook raised over the bundler's flattened
	// message for it.
	if err := capture.get(); err != nil {
		return fmt.Errorf("build failed for format %s: %w", format, err)
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", msg.Text).Str("format", string(format)).Msg("Build error")
		}
		return fmt.Errorf("bundler failed with %d errors for format %s", len(result.Errors), format)
	}

	for _, file := range result.OutputFiles {
		log.Info().Str("file", file.Path).Str("format", string(format)).Msg("Built file")
	}

	if p.config.Metafile {
		metaPath := filepath.Join(outDir, fmt.Sprintf("metafile.%s.json", format))
		if err := os.WriteFile(metaPath, []byte(result.Metafile), 0600); err != nil {
			return fmt.Errorf("failed to write metafile: %w", err)
		}
	}

	return nil
}

// outDir resolves the output directory with the same fallback chain entry
// points use: explicit config, then the overlay file, then dist.
func (p *Pipeline) outDir() string {
	if p.config.OutDir != "" {
		return p.config.OutDir
	}
	if p.man.OutDir != "" {
		return p.man.OutDir
	}
	return "dist"
}

// entryPoints resolves the configured entry, falling back to the overlay
// file and then the manifest main field. Glob patterns expand against the
// package root.
func (p *Pipeline) entryPoints() ([]string, error) {
	entry := p.config.Entry
	if entry == "" {
		entry = p.man.Entry
	}
	if entry == "" {
		entry = p.man.Main
	}
	if entry == "" {
		return nil, errors.New("no entry point configured, set main in package.json or entry in " + manifest.OverlayFile)
	}

	if !strings.ContainsAny(entry, "*?[") {
		return []string{entry}, nil
	}

	matches, err := filepath.Glob(filepath.Join(p.config.Root, entry))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no entry points found for %q", entry)
	}

	entryPoints := make([]string, 0, len(matches))
	for _, match := range matches {
		rel, err := filepath.Rel(p.config.Root, match)
		if err != nil {
			return nil, err
		}
		entryPoints = append(entryPoints, filepath.ToSlash(rel))
	}
	return entryPoints, nil
}

func (p *Pipeline) stagePublishFiles(log zerolog.Logger, root, outDir string) error {
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return err
	}
	for _, name := range publishFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0600); err != nil {
			return fmt.Errorf("failed to stage %s: %w", name, err)
		}
		log.Info().Str("file", name).Msg("Staged publish file")
	}
	return nil
}

func esbuildFormat(f Format) api.Format {
	if f == FormatCJS {
		return api.FormatCommonJS
	}
	return api.FormatESModule
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
