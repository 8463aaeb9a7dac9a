package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fafadexs1/chatflow/config"
)

// NewStore builds the configured provider. Configuration errors (missing
// connection string, unknown provider) fail fast here instead of surfacing
// mid-conversation.
func NewStore(ctx context.Context, conf config.MemoryConfig) (Store, error) {
	switch conf.Provider {
	case config.MEMORY_PROVIDER_INMEM, "":
		return NewInMemStore(), nil
	case config.MEMORY_PROVIDER_POSTGRES:
		return NewPostgresStore(ctx, conf.ConnectionString)
	case config.MEMORY_PROVIDER_SQLITE:
		return NewSQLiteStore(conf.ConnectionString)
	case config.MEMORY_PROVIDER_REDIS:
		if conf.ConnectionString == "" {
			return nil, fmt.Errorf("memory: redis provider requires a connection string")
		}
		return NewRedisStore(strings.Split(conf.ConnectionString, ","), "chatflow",
			conf.MaxItems, time.Duration(conf.CacheTTLSeconds)*time.Second), nil
	case config.MEMORY_PROVIDER_HYBRID:
		if conf.CacheConnectionString == "" {
			return nil, fmt.Errorf("memory: hybrid provider requires a cache connection string")
		}
		durable, err := NewPostgresStore(ctx, conf.ConnectionString)
		if err != nil {
			return nil, err
		}
		cache := NewRedisStore(strings.Split(conf.CacheConnectionString, ","), "chatflow",
			conf.MaxItems, time.Duration(conf.CacheTTLSeconds)*time.Second)
		return NewHybridStore(cache, durable, conf.CacheWriteThrough), nil
	default:
		return nil, fmt.Errorf("memory: unknown provider %q", conf.Provider)
	}
}
