package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/jspack/cmd/jspack/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build    commands.BuildCmd    `cmd:"" help:"Build the package for publishing"`
		Classify commands.ClassifyCmd `cmd:"" help:"Explain how import identifiers would be classified"`
		Debug    bool                 `help:"Enable debug mode."`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
