package main

import (
	"strings"

	"regdemo/go-backend/internal/bootstrap/clientconfig"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	transport  string
	endpoint   string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "register-demo",
		Short:         "Drive the registration request lifecycle against a real or mock registrar",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to register-demo.yaml (optional)")
	cmd.PersistentFlags().StringVar(&opts.transport, "transport", "", "Registration transport override: http | mock")
	cmd.PersistentFlags().StringVar(&opts.endpoint, "endpoint", "", "Registration endpoint override for the http transport")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override: debug | info | warn | error")

	cmd.AddCommand(newSubmitCmd(opts), newServeMockCmd(opts), newVersionCmd())
	return cmd
}

// loadConfig reads the config file and env, then applies command line
// overrides on top.
func (o *rootOptions) loadConfig() (clientconfig.Config, error) {
	cfg, err := clientconfig.LoadFromPath(o.configPath)
	if err != nil {
		return clientconfig.Config{}, err
	}
	if v := strings.TrimSpace(o.transport); v != "" {
		cfg.Transport = v
	}
	if v := strings.TrimSpace(o.endpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(o.logLevel); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return clientconfig.Config{}, err
	}
	return cfg, nil
}
