package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/jspack/internal/logger"
	"github.com/wolfeidau/jspack/internal/manifest"
	"github.com/wolfeidau/jspack/internal/pipeline"
)

type BuildCmd struct {
	Dir       string   `help:"Package directory" default:"." type:"existingdir"`
	Entry     string   `help:"Entry point file or glob, overrides the manifest" default:""`
	OutDir    string   `help:"Output directory, overrides the overlay (default dist)" default:""`
	Format    []string `help:"Output formats (esm, cjs), overrides the overlay (default esm)"`
	Mode      string   `help:"Build mode (development or production)" default:""`
	Trace     bool     `help:"Keep trace guards enabled in output" default:"false"`
	Minify    bool     `help:"Minify output" default:"true" negatable:""`
	Sourcemap bool     `help:"Emit source maps" default:"true" negatable:""`
	Metafile  bool     `help:"Write the bundler metafile per format" default:"true" negatable:""`
}

func (b *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	mode, err := resolveMode(b.Mode)
	if err != nil {
		return err
	}

	man, err := manifest.Load(b.Dir)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	cfg := pipeline.DefaultConfig()
	cfg.Root = b.Dir
	cfg.Entry = b.Entry
	cfg.OutDir = b.OutDir
	cfg.Mode = mode
	cfg.Trace = b.Trace
	cfg.Minify = b.Minify
	cfg.SourceMap = b.Sourcemap
	cfg.Metafile = b.Metafile

	formats, err := resolveFormats(b.Format, man)
	if err != nil {
		return err
	}
	cfg.Formats = formats

	return pipeline.New(cfg, man, log).Build()
}

// resolveFormats applies the format fallback chain: explicit flags, then the
// overlay file, then esm. The flag carries no kong default so an explicit
// --format esm is distinguishable from an unset flag.
func resolveFormats(flags []string, man *manifest.Manifest) ([]pipeline.Format, error) {
	values := flags
	if len(values) == 0 {
		values = man.Formats
	}
	if len(values) == 0 {
		values = []string{"esm"}
	}

	formats := make([]pipeline.Format, 0, len(values))
	for _, v := range values {
		format, err := pipeline.ParseFormat(v)
		if err != nil {
			return nil, err
		}
		formats = append(formats, format)
	}
	return formats, nil
}
