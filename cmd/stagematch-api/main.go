package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stagematch/backend/internal/auth"
	"github.com/stagematch/backend/internal/blob"
	"github.com/stagematch/backend/internal/config"
	"github.com/stagematch/backend/internal/database"
	"github.com/stagematch/backend/internal/logging"
	"github.com/stagematch/backend/internal/profiles"
	"github.com/stagematch/backend/internal/server"
	"github.com/stagematch/backend/internal/sharing"
	"github.com/stagematch/backend/internal/tracks"
	"github.com/stagematch/backend/internal/users"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stagematch-api",
		Short: "StageMatch marketplace backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("auth-jwks-url", defaults.GetString("auth.jwks_url"), "Identity provider JWKS URL")
	cmd.PersistentFlags().String("auth-audience", defaults.GetString("auth.audience"), "Expected token audience")
	cmd.PersistentFlags().String("auth-issuer", defaults.GetString("auth.issuer"), "Expected token issuer")
	cmd.PersistentFlags().String("storage-bucket", defaults.GetString("storage.bucket"), "Object storage bucket for audio tracks")
	cmd.PersistentFlags().String("storage-api-host", defaults.GetString("storage.api_host"), "Object storage API host")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.jwks_url", "auth-jwks-url")
	bindFlag(cmd, "auth.audience", "auth-audience")
	bindFlag(cmd, "auth.issuer", "auth-issuer")
	bindFlag(cmd, "storage.bucket", "storage-bucket")
	bindFlag(cmd, "storage.api_host", "storage-api-host")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	verifier, err := auth.NewIdentityVerifier(auth.IdentityVerifierConfig{
		Audience: appConfig.AuthAudience,
		Issuer:   appConfig.AuthIssuer,
		JWKSURL:  appConfig.AuthJWKSURL,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	storageClient, err := gcs.NewClient(ctx)
	if err != nil {
		return err
	}
	defer storageClient.Close()

	blobStore, err := blob.NewStore(storageClient, appConfig.StorageBucket, appConfig.StorageAPIHost)
	if err != nil {
		return err
	}

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: users.NewUUIDProvider(),
	})
	if err != nil {
		return err
	}

	profilesService, err := profiles.NewService(profiles.ServiceConfig{
		Database:   db,
		Users:      usersService,
		IDProvider: users.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	sharingService, err := sharing.NewService(sharing.ServiceConfig{
		Database:   db,
		Users:      usersService,
		Profiles:   profilesService,
		IDProvider: users.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	tracksService, err := tracks.NewService(tracks.ServiceConfig{
		Blobs:    blobStore,
		Profiles: profilesService,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Verifier: verifier,
		Profiles: profilesService,
		Sharing:  sharingService,
		Tracks:   tracksService,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
