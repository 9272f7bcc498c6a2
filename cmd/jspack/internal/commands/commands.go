package commands

import (
	"os"

	"github.com/wolfeidau/jspack/internal/replace"
)

type Globals struct {
	Debug   bool
	Version string
}

// resolveMode applies the mode defaulting chain once, at the command
// boundary: explicit flag, then the JSPACK_MODE environment variable, then
// development. Nothing below this layer reads the environment.
func resolveMode(explicit string) (replace.Mode, error) {
	if explicit != "" {
		return replace.ParseMode(explicit)
	}
	if env := os.Getenv("JSPACK_MODE"); env != "" {
		return replace.ParseMode(env)
	}
	return replace.ModeDevelopment, nil
}
