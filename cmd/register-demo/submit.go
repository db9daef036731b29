package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"regdemo/go-backend/internal/composition/registerdemo"
	"regdemo/go-backend/internal/domains/registration"
	"regdemo/go-backend/pkg/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const closeTimeout = 5 * time.Second

var errDismissed = errors.New("registration dismissed before completion")

type submitOptions struct {
	form          models.RegistrationForm
	dismissAfter  time.Duration
	dismissPolicy string
}

func newSubmitCmd(root *rootOptions) *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one registration and wait for its outcome",
		Long: `Submit one registration through the configured transport and print the
created account. Ctrl-C dismisses the form under the configured dismiss policy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if v := strings.TrimSpace(opts.dismissPolicy); v != "" {
				cfg.DismissPolicy = v
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			form := opts.form
			if form.Password == "" {
				form.Password = os.Getenv("REGDEMO_PASSWORD")
			}
			if form.PasswordConfirmation == "" {
				form.PasswordConfirmation = form.Password
			}

			logger, err := registerdemo.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			registry := prometheus.NewRegistry()
			client, err := registerdemo.NewClient(cfg, logger)
			if err != nil {
				return err
			}
			screen, err := registerdemo.NewScreen(cfg, client, logger, registry)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
				defer cancel()
				if err := screen.Close(closeCtx); err != nil {
					logger.Warn("screen close timed out", "component", "cli", "operation", "submit", "error", err.Error())
				}
			}()

			signalCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if cfg.MetricsAddr != "" {
				metricsCtx, cancelMetrics := context.WithCancel(cmd.Context())
				defer cancelMetrics()
				go func() {
					if err := registerdemo.Serve(metricsCtx, registerdemo.NewMetricsServer(cfg.MetricsAddr, registry)); err != nil {
						logger.Warn("metrics listener failed", "component", "cli", "operation", "submit", "error", err.Error())
					}
				}()
			}

			return runSubmission(cmd.Context(), signalCtx, screen, form, opts.dismissAfter, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.form.Username, "username", "", "Account username")
	flags.StringVar(&opts.form.Email, "email", "", "Account email")
	flags.StringVar(&opts.form.Password, "password", "", "Account password (default $REGDEMO_PASSWORD)")
	flags.StringVar(&opts.form.PasswordConfirmation, "password-confirmation", "", "Password confirmation (default: same as --password)")
	flags.StringVar(&opts.form.FirstName, "first-name", "", "First name")
	flags.StringVar(&opts.form.LastName, "last-name", "", "Last name")
	flags.DurationVar(&opts.dismissAfter, "dismiss-after", 0, "Dismiss the form after this long if no outcome arrived (0 waits)")
	flags.StringVar(&opts.dismissPolicy, "dismiss-policy", "", "Dismiss policy override: cancel | detach")
	return cmd
}

// runSubmission submits form on requestCtx and waits for its outcome. When
// dismissCtx ends or dismissAfter elapses first the screen is dismissed.
func runSubmission(requestCtx, dismissCtx context.Context, screen *registration.Screen, form models.RegistrationForm, dismissAfter time.Duration, out io.Writer) error {
	_, events, stop := screen.Events(0)
	defer stop()

	id, err := screen.Submit(requestCtx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "submission %s started\n", id)

	var dismissTimer <-chan time.Time
	if dismissAfter > 0 {
		timer := time.NewTimer(dismissAfter)
		defer timer.Stop()
		dismissTimer = timer.C
	}

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return errors.New("registration event stream closed")
			}
			switch event.Method {
			case registration.EventSucceeded:
				outcome, _ := screen.LastResult()
				printResult(out, outcome.Result)
				return nil
			case registration.EventFailed:
				outcome, _ := screen.LastResult()
				return fmt.Errorf("registration failed: %w", outcome.Err)
			}
		case <-dismissTimer:
			return dismiss(screen, out)
		case <-dismissCtx.Done():
			return dismiss(screen, out)
		}
	}
}

func dismiss(screen *registration.Screen, out io.Writer) error {
	if screen.Dismiss() {
		fmt.Fprintln(out, "registration dismissed while in flight")
	}
	return errDismissed
}

func printResult(out io.Writer, result models.RegistrationResult) {
	fmt.Fprintf(out, "user_id: %s\n", result.UserID)
	fmt.Fprintf(out, "username: %s\n", result.Username)
	fmt.Fprintf(out, "email: %s\n", result.Email)
	fmt.Fprintf(out, "created_at: %s\n", result.CreatedAt.Format(time.RFC3339))
	if result.RecoveryPhrase != "" {
		fmt.Fprintf(out, "recovery_phrase: %s\n", result.RecoveryPhrase)
	}
}
