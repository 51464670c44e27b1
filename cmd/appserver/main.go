// Command appserver runs the browser-facing gateway: static front end plus
// a reverse proxy to the filestore and fileshare services.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/filecove/filecove/internal/gateway"
	"github.com/filecove/filecove/internal/infrastructure/config"
	"github.com/filecove/filecove/internal/infrastructure/transport"
	"github.com/filecove/filecove/internal/server"
	"github.com/filecove/filecove/pkg/logger"
)

const serviceName = "appserver"

func main() {
	var (
		port       int
		configPath string
	)

	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Gateway and static front end",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "cfg/appserver.toml", "path to config file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	cfg, err := config.LoadAppServer(configPath)
	if err != nil {
		return err
	}
	if portOverride != 0 {
		cfg.General.Port = portOverride
	}

	log := logger.Init(logger.Options{Level: cfg.General.LogLevel, Pretty: cfg.General.LogPretty}).
		With().Str("service", serviceName).Logger()

	client, err := transport.NewClient(cfg.General.TLSDir, serviceName)
	if err != nil {
		return err
	}

	e := gateway.NewRouter(gateway.RouterConfig{
		Proxy:              gateway.NewProxy(client, log),
		FilestoreAuthority: cfg.FilestoreServer.Authority(),
		FileshareAuthority: cfg.FileshareServer.Authority(),
		WWWDir:             cfg.WWWDir,
		Log:                log,
	})

	certFile, keyFile := transport.CertificatePaths(cfg.General.TLSDir, serviceName)
	log.Info().Int("port", cfg.General.Port).Msg("starting appserver")
	return server.Run(e, cfg.General.Port, certFile, keyFile, log)
}
