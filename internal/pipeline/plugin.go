package pipeline

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/wolfeidau/jspack/internal/externals"
	"github.com/wolfeidau/jspack/internal/replace"
)

// ResolveResult is the tagged outcome of a resolve hook. Handled false means
// the hook passes the import through to default resolution.
type ResolveResult struct {
	Handled  bool
	Path     string
	External bool
}

// LoadResult is the tagged outcome of a load hook. Handled false means the
// bundler loads the file itself.
type LoadResult struct {
	Handled  bool
	Contents string
	Loader   api.Loader
}

// ResolveHook intercepts import resolution.
type ResolveHook interface {
	Resolve(path, importer string, kind api.ResolveKind) (ResolveResult, error)
}

// LoadHook intercepts file loading.
type LoadHook interface {
	Load(path string) (LoadResult, error)
}

// externalsHook adapts the classifier onto the resolve surface. Inline
// verdicts pass through so the bundler's own resolution merges the module.
type externalsHook struct {
	classifier *externals.Classifier
}

func (h *externalsHook) Resolve(path, importer string, kind api.ResolveKind) (ResolveResult, error) {
	if kind == api.ResolveEntryPoint {
		return ResolveResult{}, nil
	}

	decision, err := h.classifier.Classify(path)
	if err != nil {
		return ResolveResult{}, err
	}
	if decision == externals.DecisionExternal {
		return ResolveResult{Handled: true, Path: path, External: true}, nil
	}
	return ResolveResult{}, nil
}

// rewriteHook applies the literal-token rewriter before the bundler parses a
// file. Untouched files pass through so the bundler loads them without the
// cost of a generated map.
type rewriteHook struct {
	rewriter *replace.Rewriter
	root     string
}

func (h *rewriteHook) Load(path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, err
	}

	source := path
	if rel, err := filepath.Rel(h.root, path); err == nil {
		source = filepath.ToSlash(rel)
	}

	result, err := h.rewriter.Rewrite(source, string(data))
	if err != nil {
		return LoadResult{}, err
	}
	if result == nil {
		return LoadResult{}, nil
	}

	contents := result.Code
	if result.Map != nil {
		// Inline the map so the minification pass downstream composes it
		// with its own.
		contents += "\n//# sourceMappingURL=data:application/json;base64," +
			base64.StdEncoding.EncodeToString(result.Map) + "\n"
	}
	return LoadResult{Handled: true, Contents: contents, Loader: loaderFor(path)}, nil
}

func loaderFor(path string) api.Loader {
	switch filepath.Ext(path) {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}

// errCapture keeps the first typed error raised by a hook. Plugin errors come
// back from the bundler as flattened messages, so the original error is held
// here for the caller to inspect.
type errCapture struct {
	mu  sync.Mutex
	err error
}

func (c *errCapture) set(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *errCapture) get() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// hookPlugin adapts resolve and load hooks onto the bundler plugin surface.
func hookPlugin(name string, resolve ResolveHook, load LoadHook, capture *errCapture) api.Plugin {
	return api.Plugin{
		Name: name,
		Setup: func(build api.PluginBuild) {
			if resolve != nil {
				build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					result, err := resolve.Resolve(args.Path, args.Importer, args.Kind)
					if err != nil {
						capture.set(err)
						return api.OnResolveResult{}, err
					}
					if !result.Handled {
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{Path: result.Path, External: result.External}, nil
				})
			}
			if load != nil {
				build.OnLoad(api.OnLoadOptions{Filter: `\.(js|jsx|ts|tsx|mjs|cjs|mts|cts)$`}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					result, err := load.Load(args.Path)
					if err != nil {
						capture.set(err)
						return api.OnLoadResult{}, err
					}
					if !result.Handled {
						return api.OnLoadResult{}, nil
					}
					return api.OnLoadResult{Contents: &result.Contents, Loader: result.Loader}, nil
				})
			}
		},
	}
}
