package objectstore

import (
	"go.uber.org/fx"

	"github.com/tecelana/fichas/internal/config"
)

// Module exposes the object store signer to the fx graph.
var Module = fx.Provide(newSigner)

func newSigner(cfg *config.Config) (Signer, error) {
	return New(cfg.StorageEndpoint, cfg.StorageRegion, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StorageBucket, cfg.StorageUseSSL)
}
