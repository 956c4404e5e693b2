package bootstrap

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/fx"
)

var CacheModule = fx.Module("cache",
	fx.Provide(
		NewCache,
	),
)

// NewCache backs both the snapshot response cache and the device key lookup
// cache. Default expiration covers device keys; snapshot entries carry their
// own TTL.
func NewCache() *gocache.Cache {
	return gocache.New(time.Minute, 5*time.Minute)
}
