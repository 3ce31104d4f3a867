// Package config loads cascade.toml, the single configuration file at
// the workspace root. Every table is optional; a missing file yields
// the defaults.
//
//	[strategy]
//	mode = "independent"
//	propagate_dependents = "patch"
//
//	[changesets]
//	dir = ".cascade/changesets"
//
//	[registry]
//	url = "https://registry.npmjs.org"
//	cache_ttl = "6h"
//
//	[[classifier.type_rule]]
//	pattern = "src/**"
//	kind = "source"
package config

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/cascade/pkg/changeset"
	"github.com/matzehuels/cascade/pkg/classify"
	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/fsio"
	"github.com/matzehuels/cascade/pkg/plan"
	"github.com/matzehuels/cascade/pkg/registry"
)

// Filename is the configuration file looked up at the workspace root.
const Filename = "cascade.toml"

// Duration decodes TOML strings like "6h" or "90s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// File is the decoded cascade.toml.
type File struct {
	Strategy   plan.Strategy   `toml:"strategy"`
	Classifier classify.Config `toml:"classifier"`
	Changesets Changesets      `toml:"changesets"`
	Registry   Registry        `toml:"registry"`
}

// Changesets configures where authored changesets live.
type Changesets struct {
	// Dir is relative to the workspace root.
	Dir string `toml:"dir"`
}

// Registry configures the npm registry client used by upgrade checks.
type Registry struct {
	URL      string   `toml:"url"`
	CacheDir string   `toml:"cache_dir"`
	CacheTTL Duration `toml:"cache_ttl"`
	// Redis, when set to "host:port", replaces the file cache with a
	// shared Redis cache.
	Redis string `toml:"redis"`
}

// Default returns the configuration used when no cascade.toml exists.
func Default() *File {
	return &File{
		Strategy:   plan.DefaultStrategy(),
		Changesets: Changesets{Dir: changeset.DefaultDir},
		Registry: Registry{
			URL:      registry.DefaultURL,
			CacheTTL: Duration(registry.DefaultTTL),
		},
	}
}

// Load reads cascade.toml from the workspace root. A missing file is
// not an error; the defaults come back. Unknown keys are rejected so
// typos surface instead of silently doing nothing.
func Load(ctx context.Context, fs fsio.FS, root string) (*File, error) {
	f := Default()

	path := filepath.Join(root, Filename)
	raw, err := fs.Read(ctx, path)
	if stderrors.Is(err, fsio.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "read config").WithSubject(path)
	}

	meta, err := toml.Decode(string(raw), f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "decode config").WithSubject(path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeParse,
			"unknown config key %q", undecoded[0].String()).WithSubject(path)
	}

	if f.Changesets.Dir == "" {
		f.Changesets.Dir = changeset.DefaultDir
	}
	if f.Registry.URL == "" {
		f.Registry.URL = registry.DefaultURL
	}
	if f.Registry.CacheTTL == 0 {
		f.Registry.CacheTTL = Duration(registry.DefaultTTL)
	}
	if err := f.Strategy.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Rules compiles the classifier configuration, or returns the built-in
// rules when none is configured.
func (f *File) Rules(logger *log.Logger) *classify.Rules {
	c := f.Classifier
	if len(c.TypeRules) == 0 && len(c.SignificanceRules) == 0 && len(c.Thresholds) == 0 && len(c.Bumps) == 0 {
		return classify.DefaultRules()
	}
	return classify.Compile(c, logger)
}

// ChangesetDir resolves the changeset directory against the root.
func (f *File) ChangesetDir(root string) string {
	return filepath.Join(root, f.Changesets.Dir)
}
