package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

type tsconfigJSON struct {
	CompilerOptions struct {
		Target string `json:"target"`
	} `json:"compilerOptions"`
}

// tsconfigSettings locates the package tsconfig and maps its target onto the
// bundler's. The file path is handed to the bundler as well, which merges the
// remaining compiler options itself. tsconfig files often carry comments the
// JSON parser rejects; the target mapping is best effort in that case.
func tsconfigSettings(root string, logger zerolog.Logger) (string, api.Target) {
	path := filepath.Join(root, "tsconfig.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", api.DefaultTarget
	}

	var cfg tsconfigJSON
	if err := json.Unmarshal(data, &cfg); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("tsconfig not plain JSON, using default target")
		return path, api.DefaultTarget
	}
	return path, parseTarget(cfg.CompilerOptions.Target)
}

func parseTarget(target string) api.Target {
	switch strings.ToLower(target) {
	case "es5":
		return api.ES5
	case "es6", "es2015":
		return api.ES2015
	case "es2016":
		return api.ES2016
	case "es2017":
		return api.ES2017
	case "es2018":
		return api.ES2018
	case "es2019":
		return api.ES2019
	case "es2020":
		return api.ES2020
	case "es2021":
		return api.ES2021
	case "es2022":
		return api.ES2022
	case "esnext":
		return api.ESNext
	default:
		return api.DefaultTarget
	}
}
