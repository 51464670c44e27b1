// Command authserver runs the fleet's authority: it owns the credential
// store, issues session tokens, and answers role membership queries.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/filecove/filecove/internal/api"
	"github.com/filecove/filecove/internal/api/middleware"
	"github.com/filecove/filecove/internal/auth"
	"github.com/filecove/filecove/internal/core/service"
	"github.com/filecove/filecove/internal/infrastructure/config"
	"github.com/filecove/filecove/internal/infrastructure/db/jsonfile"
	"github.com/filecove/filecove/internal/infrastructure/transport"
	"github.com/filecove/filecove/internal/server"
	"github.com/filecove/filecove/pkg/logger"
)

const serviceName = "authserver"

func main() {
	var (
		port       int
		configPath string
	)

	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Authentication and authorization authority",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "cfg/authserver.toml", "path to config file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	cfg, err := config.LoadAuthServer(configPath)
	if err != nil {
		return err
	}
	if portOverride != 0 {
		cfg.General.Port = portOverride
	}

	log := logger.Init(logger.Options{Level: cfg.General.LogLevel, Pretty: cfg.General.LogPretty}).
		With().Str("service", serviceName).Logger()

	signingKey, err := auth.LoadSigningKey(cfg.Authenticator.PrivateKey, cfg.General.AuthPublicKey, log)
	if err != nil {
		return err
	}

	store, err := jsonfile.OpenCredentialStore(cfg.Authenticator.DBPath, log)
	if err != nil {
		return err
	}

	accounts := service.NewAccountService(store, auth.NewIssuer(signingKey), &cfg.Authenticator, log)

	verifyKey, err := auth.ParsePublicKeyPEM(signingKey.PublicPEM)
	if err != nil {
		return err
	}
	verifier := middleware.NewVerifierFromKey(verifyKey, cfg.General.ExternalURL, log)

	e := api.NewRouter(api.RouterConfig{
		Accounts:       accounts,
		Verifier:       verifier,
		TrustedAddress: cfg.Authenticator.AddressIsService,
		AllowedOrigin:  cfg.General.AllowedOrigin,
		Log:            log,
	})

	certFile, keyFile := transport.CertificatePaths(cfg.General.TLSDir, serviceName)
	log.Info().Int("port", cfg.General.Port).Msg("starting authserver")
	return server.Run(e, cfg.General.Port, certFile, keyFile, log)
}
