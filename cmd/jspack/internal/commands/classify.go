package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/jspack/internal/externals"
	"github.com/wolfeidau/jspack/internal/logger"
	"github.com/wolfeidau/jspack/internal/manifest"
)

type ClassifyCmd struct {
	Dir string   `help:"Package directory" default:"." type:"existingdir"`
	IDs []string `arg:"" name:"id" help:"Import identifiers to classify"`
}

func (c *ClassifyCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	man, err := manifest.Load(c.Dir)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	classifier := externals.New(man.ClassifierConfig(), log)
	for _, id := range c.IDs {
		decision, err := classifier.Classify(id)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", id, decision)
	}
	return nil
}
