package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/cascade/pkg/semver"
)

// DefaultURL is the public npm registry.
const DefaultURL = "https://registry.npmjs.org"

// abbreviatedHeader asks npm for the abbreviated packument, which omits
// readmes and per-version metadata we never use.
const abbreviatedHeader = "application/vnd.npm.install-v1+json"

// packument is the subset of the npm registry response we consume.
type packument struct {
	Name     string `json:"name"`
	DistTags struct {
		Latest string `json:"latest"`
	} `json:"dist-tags"`
	Versions map[string]struct {
		Deprecated string `json:"deprecated,omitempty"`
	} `json:"versions"`
}

// PackageInfo summarizes what the registry knows about a package.
type PackageInfo struct {
	Name     string
	Latest   semver.Version
	Versions []semver.Version // published versions, ascending
}

// Package fetches version information for a single package.
// Returns [ErrNotFound] for unpublished names.
func (c *Client) Package(ctx context.Context, name string) (*PackageInfo, error) {
	var resp packument
	key := "npm:" + name
	err := c.cached(ctx, key, &resp, func() ([]byte, error) {
		u := c.baseURL + "/" + url.PathEscape(name)
		return c.get(ctx, u, map[string]string{"Accept": abbreviatedHeader})
	})
	if err != nil {
		return nil, err
	}

	info := &PackageInfo{Name: resp.Name}
	if info.Name == "" {
		info.Name = name
	}
	if resp.DistTags.Latest != "" {
		latest, err := semver.Parse(resp.DistTags.Latest)
		if err != nil {
			return nil, fmt.Errorf("registry latest for %s: %w", name, err)
		}
		info.Latest = latest
	}
	for raw, meta := range resp.Versions {
		if meta.Deprecated != "" {
			continue
		}
		v, err := semver.Parse(raw)
		if err != nil {
			// Registries hold legacy versions that predate strict semver.
			continue
		}
		info.Versions = append(info.Versions, v)
	}
	sort.Slice(info.Versions, func(i, j int) bool {
		return info.Versions[i].Compare(info.Versions[j]) < 0
	})
	return info, nil
}

// latestFanout caps concurrent registry requests.
const latestFanout = 8

// LatestVersions resolves the latest published version for each name
// concurrently. Names the registry does not know are omitted from the
// result rather than failing the batch.
func (c *Client) LatestVersions(ctx context.Context, names []string) (map[string]semver.Version, error) {
	var mu sync.Mutex
	out := make(map[string]semver.Version, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(latestFanout)
	for _, name := range names {
		g.Go(func() error {
			info, err := c.Package(ctx, name)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("lookup %s: %w", name, err)
			}
			if info.Latest.IsZero() {
				return nil
			}
			mu.Lock()
			out[name] = info.Latest
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
