package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jrsteele09/go-tokenkeeper/credential"
	"github.com/jrsteele09/go-tokenkeeper/internal/config"
	"github.com/jrsteele09/go-tokenkeeper/securestore"
	"github.com/jrsteele09/go-tokenkeeper/securestore/diskv"
	"github.com/jrsteele09/go-tokenkeeper/securestore/keyring"
	"github.com/jrsteele09/go-tokenkeeper/securestore/memory"
	"github.com/jrsteele09/go-tokenkeeper/securestore/redis"
	"github.com/jrsteele09/go-tokenkeeper/token"
	"github.com/rs/zerolog/log"
)

// openBackend builds the storage backend selected by STORAGE_BACKEND. The
// returned close function is always safe to call.
func openBackend(ctx context.Context, c config.StorageConfig) (securestore.Backend, func(), error) {
	noop := func() {}

	switch backend := c.GetStorageBackend(); backend {
	case config.MemoryStorage:
		log.Warn().Msg("Using in-memory storage, the credential will not survive a restart")
		return memory.New(), noop, nil
	case config.FileStorage:
		log.Info().Str("dir", c.GetStorageDir()).Msg("Using file storage")
		return diskv.New(c.GetStorageDir()), noop, nil
	case config.KeyringStorage:
		b, err := keyring.Open(c.GetKeyringService())
		if err != nil {
			return nil, noop, err
		}
		log.Info().Str("service", c.GetKeyringService()).Msg("Using OS keyring storage")
		return b, noop, nil
	case config.RedisStorage:
		b, err := redis.Dial(ctx, c.GetRedisAddr(), c.GetRedisDB())
		if err != nil {
			return nil, noop, err
		}
		log.Info().Str("addr", c.GetRedisAddr()).Msg("Using Redis storage")
		return b, func() {
			if err := b.Close(); err != nil {
				log.Err(err).Msg("Failed to close Redis client")
			}
		}, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func newHTTPClient(c config.OAuthConfig) *http.Client {
	return &http.Client{Timeout: c.GetHTTPTimeout()}
}

// importInitialCredential seeds the manager from a JSON file, typically the
// output of an authorization-code login performed elsewhere.
func importInitialCredential(ctx context.Context, manager *token.Manager, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cred, err := credential.Parse(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	manager.SetCurrent(ctx, cred)
	log.Info().Str("file", path).Msg("Imported initial credential")
	return nil
}
