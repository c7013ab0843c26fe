package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vbonduro/homealarm/internal/assetstore"
	"github.com/vbonduro/homealarm/internal/assetstore/local"
	"github.com/vbonduro/homealarm/internal/assetstore/s3"
	"github.com/vbonduro/homealarm/internal/config"
	"github.com/vbonduro/homealarm/internal/db"
	"github.com/vbonduro/homealarm/internal/logging"
	"github.com/vbonduro/homealarm/internal/reconcile"
	"github.com/vbonduro/homealarm/internal/service"
	"github.com/vbonduro/homealarm/internal/store"
	"github.com/vbonduro/homealarm/internal/web"
)

func main() {
	cfg := config.Load()

	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(runToken(cfg, os.Args[2:]))
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reporter, err := reconcile.NewReporter(logger, reg)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		return
	}

	backend, reader, err := newAssetBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize asset store", "error", err)
		return
	}
	assets := assetstore.New(backend, logger)

	auth, err := web.NewAuthenticator(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		logger.Error("SESSION_SECRET is required", "error", err)
		return
	}

	repos := service.NewRepositories(
		store.NewHouseStore(database),
		store.NewHostStore(database),
		store.NewAlarmStore(database),
	)
	server := web.NewServer(web.Deps{
		Houses:  service.NewHouseService(repos, assets, reporter, logger),
		Hosts:   service.NewHostService(repos, reporter, logger),
		Alarms:  service.NewAlarmService(repos, assets, reporter, logger),
		Auth:    auth,
		Assets:  reader,
		Metrics: reg,
		DB:      database,
	}, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

// newAssetBackend returns the configured backend, plus a reader when blobs
// must be served by this process.
func newAssetBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (assetstore.Backend, web.AssetReader, error) {
	switch cfg.AssetBackend {
	case "s3":
		logger.Info("using S3 asset backend", "bucket", cfg.S3.Bucket, "endpoint", cfg.S3.Endpoint)
		st, err := s3.New(ctx, s3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
			PublicURL:       cfg.AssetPublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	case "local", "":
		publicURL := cfg.AssetPublicURL
		if publicURL == "" {
			publicURL = "/assets"
		}
		logger.Info("using local asset backend", "path", cfg.AssetLocalPath)
		st, err := local.New(cfg.AssetLocalPath, publicURL)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("unknown ASSET_BACKEND %q", cfg.AssetBackend)
	}
}

// runToken prints a session token for operators and scripts.
func runToken(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	user := fs.String("user", "", "user id placed in the token subject")
	admin := fs.Bool("admin", false, "grant house administration")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *user == "" {
		fmt.Fprintln(os.Stderr, "token: -user is required")
		return 2
	}

	auth, err := web.NewAuthenticator(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		return 1
	}
	tok, err := auth.Issue(*user, *admin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		return 1
	}
	fmt.Println(tok)
	return 0
}
