package storage_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"hairsim/internal/config"
	"hairsim/pkg/objectstore"
)

const memoryObjectsPath = "/objects"

var Module = fx.Provide(provideObjectStore)

func provideObjectStore(cfg *config.Config, log *zap.Logger) (objectstore.Store, error) {
	if cfg.SupabaseURL == "" {
		log.Warn("SUPABASE_URL not set, images are kept in memory")
		return objectstore.NewMemory(memoryObjectsPath), nil
	}
	return objectstore.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
}
