// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/selfreg/selfreg/internal/auth"
	"github.com/selfreg/selfreg/internal/blob"
	blobs3 "github.com/selfreg/selfreg/internal/blob/s3"
	"github.com/selfreg/selfreg/internal/config"
	"github.com/selfreg/selfreg/internal/httpapi"
	"github.com/selfreg/selfreg/internal/logging"
	"github.com/selfreg/selfreg/internal/member"
	memberpg "github.com/selfreg/selfreg/internal/member/postgres"
	"github.com/selfreg/selfreg/internal/observability"
	"github.com/selfreg/selfreg/internal/store"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 10 * time.Second

// newServeCmd creates the serve subcommand.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registration API server",
		Long: `Start the registration API server: signup, login, member directory,
and the observability endpoints (metrics and health probes).`,
		RunE: runServe,
	}

	cmd.Flags().String("http-addr", "", "API listen address")
	cmd.Flags().String("observability-addr", "", "metrics/health listen address")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.Flags().String("log-format", "", "log format: json or text")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("selfreg", version, cfg.LogFormat)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	members := memberpg.NewMemberRepository(pool)
	if err := members.EnsureSchema(ctx); err != nil {
		return err
	}

	validator, err := member.NewValidator(members)
	if err != nil {
		return err
	}

	secret := []byte(cfg.SessionSecret)
	tokens, err := auth.NewTokenIssuer(secret, members)
	if err != nil {
		return err
	}
	sessions := auth.NewSessionManager(cfg.SessionTTL)

	authSvc, err := auth.NewService(members, validator, auth.NewArgon2idHasher(), tokens, sessions, logger)
	if err != nil {
		return err
	}

	photos, err := newPhotoStore(ctx, cfg.Blob)
	if err != nil {
		return err
	}

	formTokens, err := httpapi.NewFormTokens(secret)
	if err != nil {
		return err
	}

	// Readiness flips once both servers are listening.
	var ready atomic.Bool
	obsServer := observability.NewServer(cfg.ObservabilityAddr, ready.Load)
	obsServer.RegisterSessionGauge(sessions.Len)

	apiServer, err := httpapi.NewServer(httpapi.Options{
		Addr:        cfg.HTTPAddr,
		Auth:        authSvc,
		Members:     members,
		Photos:      photos,
		FormTokens:  formTokens,
		Metrics:     obsServer.Metrics(),
		Logger:      logger,
		PageSize:    cfg.PageSize,
		RememberFor: cfg.RememberFor,
	})
	if err != nil {
		return err
	}

	obsErrCh, err := obsServer.Start()
	if err != nil {
		return err
	}
	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopServers(obsServer, nil)
		return err
	}
	ready.Store(true)

	// Expired-session janitor.
	go sessions.Run(ctx)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-apiErrCh:
		if err != nil {
			stopServers(obsServer, nil)
			return oops.With("component", "api").Wrap(err)
		}
	case err := <-obsErrCh:
		if err != nil {
			stopServers(nil, apiServer)
			return oops.With("component", "observability").Wrap(err)
		}
	}

	ready.Store(false)
	stopServers(obsServer, apiServer)
	return nil
}

func stopServers(obs *observability.Server, api *httpapi.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if api != nil {
		if err := api.Stop(ctx); err != nil {
			slog.Error("failed to stop api server", "error", err)
		}
	}
	if obs != nil {
		if err := obs.Stop(ctx); err != nil {
			slog.Error("failed to stop observability server", "error", err)
		}
	}
}

// newPhotoStore builds the photo store for the configured driver.
func newPhotoStore(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return blob.NewMemoryStore(), nil
	case "s3":
		return blobs3.New(ctx, blobs3.Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("driver", cfg.Driver).
			Errorf("unknown blob driver")
	}
}
