// Command filestore runs the blob storage service.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/filecove/filecove/internal/api/middleware"
	"github.com/filecove/filecove/internal/auth"
	"github.com/filecove/filecove/internal/filestore"
	"github.com/filecove/filecove/internal/infrastructure/config"
	"github.com/filecove/filecove/internal/infrastructure/transport"
	"github.com/filecove/filecove/internal/server"
	"github.com/filecove/filecove/pkg/logger"
)

const serviceName = "filestore"

func main() {
	var (
		port       int
		configPath string
	)

	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "File storage service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "cfg/filestore.toml", "path to config file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	cfg, err := config.LoadFilestore(configPath)
	if err != nil {
		return err
	}
	if portOverride != 0 {
		cfg.General.Port = portOverride
	}

	log := logger.Init(logger.Options{Level: cfg.General.LogLevel, Pretty: cfg.General.LogPretty}).
		With().Str("service", serviceName).Logger()

	store, err := filestore.NewStore(cfg.FileStore.Path)
	if err != nil {
		return err
	}

	client, err := transport.NewClient(cfg.General.TLSDir, serviceName)
	if err != nil {
		return err
	}
	roles := auth.NewRoleClient(client, cfg.AuthServer.Authority(), log)

	verifier, err := middleware.NewVerifier(cfg.General.AuthPublicKey, cfg.General.ExternalURL, log)
	if err != nil {
		return err
	}

	h := filestore.NewHandler(store, roles, cfg.FileStore.ReadRole, cfg.FileStore.WriteRole, log)
	e := filestore.NewRouter(filestore.RouterConfig{
		Handler:        h,
		Verifier:       verifier,
		TrustedAddress: cfg.FileStore.AddressIsService,
		AllowedOrigin:  cfg.General.AllowedOrigin,
		Log:            log,
	})

	certFile, keyFile := transport.CertificatePaths(cfg.General.TLSDir, serviceName)
	log.Info().Int("port", cfg.General.Port).Msg("starting filestore")
	return server.Run(e, cfg.General.Port, certFile, keyFile, log)
}
