// Command rotate forces one rotation and retirement pass against the
// configured store and prints the resulting public key set. The server does
// the same work lazily on reads; this command exists for operators who want
// to trigger it explicitly, for example right after shortening the key
// lifetime.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/creatorhub/signet/internal/audit"
	"github.com/creatorhub/signet/internal/config"
	"github.com/creatorhub/signet/internal/keys"
	"github.com/creatorhub/signet/internal/observability/logger"
	"github.com/creatorhub/signet/internal/sealer"
	"github.com/creatorhub/signet/internal/store"
	"github.com/creatorhub/signet/internal/store/memory"
	storepg "github.com/creatorhub/signet/internal/store/postgres"
	storeredis "github.com/creatorhub/signet/internal/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	ctx := context.Background()

	keyStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open key store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	sl, err := sealer.New(cfg.Sealer.MasterKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize sealer: %v\n", err)
		os.Exit(1)
	}

	policy := keys.Policy{
		Lifetime:        cfg.Keys.Lifetime,
		RotationBuffer:  cfg.Keys.RotationBuffer,
		MinRetainedKeys: cfg.Keys.MinRetainedKeys,
	}
	manager := keys.NewManager(keys.NewRegistry(keyStore, sl), keys.NewFactory(), policy, audit.NewSlogLogger())

	// Asking for the signing key runs the rotation check; publishing the
	// set runs retirement.
	current, err := manager.CurrentSigningKey(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Rotation pass failed: %v\n", err)
		os.Exit(1)
	}

	set, err := manager.PublicKeySet(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retirement pass failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Current signing key: %s (created %s)\n", current.KID, current.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Published key set (%d keys):\n", len(set.Keys))
	out, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode key set: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		client, err := storeredis.New(ctx, storeredis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			EnableTLS:    cfg.Redis.EnableTLS,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil

	case "postgres":
		db, err := storepg.New(ctx, storepg.Config{
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			User:         cfg.Database.User,
			Password:     cfg.Database.Password,
			Database:     cfg.Database.Database,
			SSLMode:      cfg.Database.SSLMode,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return storepg.NewKeyStore(db), db.Close, nil

	case "memory":
		// Pointless for this command but allowed, so a fresh environment
		// can still exercise the flow end to end.
		return memory.New(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
