package main

import (
	"os"
	"os/signal"
	"syscall"

	"regdemo/go-backend/internal/composition/registerdemo"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeMockCmd(root *rootOptions) *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Serve the mock registrar over HTTP with /healthz and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.Mock.ListenAddr = listenAddr
			}
			logger, err := registerdemo.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			registrar, err := registerdemo.NewMockRegistrar(cfg, logger)
			if err != nil {
				return err
			}
			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			server, err := registerdemo.NewMockServer(cfg.Mock.ListenAddr, cfg.AppKey, registrar, registry, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address override for the mock registrar")
	return cmd
}
