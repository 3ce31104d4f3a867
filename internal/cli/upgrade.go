package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cascade/pkg/cache"
	"github.com/matzehuels/cascade/pkg/registry"
)

// newUpgradeCmd creates the upgrade command, which reports external
// dependencies lagging behind their registry.
func newUpgradeCmd(rootDir *string) *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Report outdated external dependencies",
		Long: `Check every external dependency against the npm registry and report
the ones whose declared range lags behind the latest release.

This is purely informational: findings never feed the version plan.
Registry responses are cached; configure [registry] in cascade.toml to
point at a private registry or a shared Redis cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := loadRuntime(ctx, *rootDir)
			if err != nil {
				return err
			}

			store, err := buildCache(cmd, rt, noCache)
			if err != nil {
				return err
			}
			defer store.Close()

			client := registry.NewClient(registry.Config{
				BaseURL: rt.cfg.Registry.URL,
				Cache:   store,
				TTL:     time.Duration(rt.cfg.Registry.CacheTTL),
			})
			ups, err := registry.NewDetector(rt.ws, client).Detect(ctx)
			if err != nil {
				return err
			}

			if len(ups) == 0 {
				printSuccess("all external dependencies are current")
				return nil
			}
			fmt.Println(styleTitle.Render(fmt.Sprintf("Outdated dependencies (%d)", len(ups))))
			for _, u := range ups {
				marker := styleIconWarning.Render(iconWarning)
				if u.InRange {
					marker = styleIconInfo.Render(iconInfo)
				}
				fmt.Printf("  %s %s: %s %s %s %s\n",
					marker, styleValue.Render(u.Package), u.Dependency,
					styleDim.Render(u.Specifier), iconArrow, styleValue.Render(u.Latest.String()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the registry cache")

	return cmd
}

// buildCache picks the cache backend: none, Redis when configured, a
// local file cache otherwise.
func buildCache(cmd *cobra.Command, rt *runtime, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NullCache{}, nil
	}
	if addr := rt.cfg.Registry.Redis; addr != "" {
		c, err := cache.NewRedisCache(cmd.Context(), addr)
		if err != nil {
			rt.logger.Warn("redis cache unavailable, falling back to file cache", "err", err)
		} else {
			return c, nil
		}
	}
	return cache.NewFileCache(rt.cfg.Registry.CacheDir)
}
