package pricing

import (
	"context"

	"go.uber.org/zap"
)

// Setup loads the reference tables and builds a resolver over catalog.
// A missing fallback table only disables the fallback; a missing spec
// table falls back to the built-in one.
func Setup(ctx context.Context, cfg Config, catalog Catalog, getter ObjectGetter, defaultBucket string, logger *zap.Logger) (*Resolver, *SpecTable) {
	log := logger.Named("pricing")

	var fallback FallbackSource
	location := cfg.FallbackPath
	if location == "" {
		location = FallbackObjectKey
	}
	table, err := LoadFallbackTable(ctx, getter, defaultBucket, location)
	if err != nil {
		log.Warn("fallback price table unavailable", zap.String("location", location), zap.Error(err))
	} else {
		log.Debug("loaded fallback price table", zap.String("location", location), zap.Int("rows", table.Len()))
		fallback = table
	}

	specs := DefaultSpecTable()
	if cfg.SpecsPath != "" {
		loaded, err := LoadSpecs(ctx, getter, defaultBucket, cfg.SpecsPath)
		if err != nil {
			log.Warn("instance specifications unavailable, using built-in table",
				zap.String("location", cfg.SpecsPath), zap.Error(err))
		} else {
			specs = loaded
		}
	}

	return NewResolver(catalog, fallback, cfg.Region, cfg.CacheTTL, logger), specs
}
