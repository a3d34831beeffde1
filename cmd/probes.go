package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/t-voip/gwcheck/internal/config"
	"github.com/t-voip/gwcheck/internal/db"
	"github.com/t-voip/gwcheck/internal/diafaan"
	"github.com/t-voip/gwcheck/internal/license"
	"github.com/t-voip/gwcheck/internal/logging"
	"github.com/t-voip/gwcheck/internal/notify"
	"github.com/t-voip/gwcheck/internal/probe"
	"github.com/t-voip/gwcheck/internal/probes"
	"github.com/t-voip/gwcheck/internal/probes/gatewayerrors"
	"github.com/t-voip/gwcheck/internal/probes/gatewayqueues"
	"github.com/t-voip/gwcheck/internal/probes/gatewaystatus"
	"github.com/t-voip/gwcheck/internal/probes/latency"
	"github.com/t-voip/gwcheck/internal/probes/priorityqueue"
	"github.com/t-voip/gwcheck/internal/probes/sendqueue"
	"github.com/t-voip/gwcheck/internal/probes/tps"
	"github.com/t-voip/gwcheck/internal/state"
)

// now is replaced in tests.
var now = time.Now

// tps probe
var tpsCmd = &cobra.Command{
	Use:   tps.Name + " <gateway>",
	Short: "Check messages per second sent through a gateway",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		warning, _ := cmd.Flags().GetFloat64("warning")
		critical, _ := cmd.Flags().GetFloat64("critical")
		window, _ := cmd.Flags().GetDuration("window")
		if window < time.Second {
			return fmt.Errorf("%w: --window %s is shorter than one second", probe.ErrConfiguration, window)
		}

		return runProbe(cmd, func(ctx context.Context, cfg *config.Config) (*probe.Result, error) {
			dialect, dsn, err := cfg.RequireMessageLog()
			if err != nil {
				return nil, err
			}
			return tps.Run(ctx, db.NewMessageLog(dialect, dsn), args[0], warning, critical, window), nil
		})
	},
}

// gateway-errors probe
var gatewayErrorsCmd = &cobra.Command{
	Use:   gatewayerrors.Name + " <gateway_id> <error_code>",
	Short: "Check failed messages of a gateway by status code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		warning, _ := cmd.Flags().GetInt64("error_threshold")
		critical, _ := cmd.Flags().GetInt64("critical_threshold")

		return runProbe(cmd, func(ctx context.Context, cfg *config.Config) (*probe.Result, error) {
			src := db.NewSQLiteSource(cfg.ErrorLog.Path, cfg.ErrorLog.BusyTimeout)
			return gatewayerrors.Run(ctx, src, args[0], args[1], warning, critical), nil
		})
	},
}

// priority-queue probe
var priorityQueueCmd = &cobra.Command{
	Use:   priorityqueue.Name + " <priority>",
	Short: "Alert when messages of a priority are queued",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(cmd, func(ctx context.Context, cfg *config.Config) (*probe.Result, error) {
			queue, err := cfg.RequireSendQueueDB()
			if err != nil {
				return nil, err
			}
			src := db.NewSQLiteSource(queue.Path, queue.BusyTimeout)
			return priorityqueue.Run(ctx, src, args[0]), nil
		})
	},
}

// gateway-queues probe
var gatewayQueuesCmd = &cobra.Command{
	Use:   gatewayqueues.Name,
	Short: "Check the send queue depth of each active gateway",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gatewayList, _ := cmd.Flags().GetString("gateways")
		warning, _ := cmd.Flags().GetInt64("warning")
		critical, _ := cmd.Flags().GetInt64("critical")

		return runProbe(cmd, func(ctx context.Context, cfg *config.Config) (*probe.Result, error) {
			queue, err := cfg.RequireSendQueueDB()
			if err != nil {
				return nil, err
			}
			ids := queue.ActiveGateways
			if gatewayList != "" {
				if ids, err = config.ParseGatewayIDs(gatewayList); err != nil {
					return nil, err
				}
			}
			if len(ids) == 0 {
				return nil, fmt.Errorf("%w: no gateways given and [BDSQLite] active_gateways is not set", probe.ErrConfiguration)
			}
			src := db.NewSQLiteSource(queue.Path, queue.BusyTimeout)
			return gatewayqueues.Run(ctx, src, ids, warning, critical), nil
		})
	},
}

// send-queue probe
var sendQueueCmd = &cobra.Command{
	Use:   sendqueue.Name,
	Short: "Check the Diafaan send queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		warning, _ := cmd.Flags().GetInt64("warning")
		critical, _ := cmd.Flags().GetInt64("critical")

		return runProbe(cmd, func(ctx context.Context, cfg *config.Config) (*probe.Result, error) {
			url, err := cfg.RequireAPIURL()
			if err != nil {
				return nil, err
			}
			return sendqueue.Run(ctx, diafaan.NewClient(url), warning, critical), nil
		})
	},
}

// latency probe
var latencyCmd = &cobra.Command{
	Use:   latency.Name + " <ip> <port>",
	Short: "Measure the TCP connect time to a host",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		warning, _ := cmd.Flags().GetFloat64("warning")
		critical, _ := cmd.Flags().GetFloat64("critical")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		port, err := strconv.Atoi(args[1])
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid port %q", args[1])
		}

		return runProbe(cmd, func(ctx context.Context, cfg *config.Config) (*probe.Result, error) {
			return latency.Run(ctx, &net.Dialer{}, args[0], port, warning, critical, timeout), nil
		})
	},
}

// gateway-status probe
var gatewayStatusCmd = &cobra.Command{
	Use:   gatewaystatus.Name + " <gateway>",
	Short: "Check that a gateway is active and notify on changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(cmd, func(ctx context.Context, cfg *config.Config) (*probe.Result, error) {
			url, err := cfg.RequireStatusURL()
			if err != nil {
				return nil, err
			}

			deps := gatewaystatus.Deps{
				Fetcher:  diafaan.NewClient(url),
				Notifier: newDispatcher(cfg),
			}
			if store, err := state.Load(cfg.State.StatusFile); err != nil {
				slog.Warn("gateway state unavailable, changes will not be tracked", "path", cfg.State.StatusFile, "error", err)
			} else {
				deps.State = store
			}
			events, err := logging.OpenEventLog(cfg.State.EventLog)
			if err != nil {
				slog.Warn("event log unavailable", "path", cfg.State.EventLog, "error", err)
			} else {
				defer events.Close()
				deps.Events = events.Logger
			}

			return gatewaystatus.Run(ctx, deps, args[0]), nil
		})
	},
}

func init() {
	// Add flags to root
	rootCmd.Flags().BoolP("version", "v", false, "Print version and exit")
	rootCmd.Flags().Bool("describe", false, "Output built-in probe descriptions as JSON array")

	// Override Run to handle flags
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "gwcheck version %s\n", Version)
			return
		}
		if describe, _ := cmd.Flags().GetBool("describe"); describe {
			printDescriptions(cmd)
			return
		}
		cmd.Help()
	}

	for _, c := range []*cobra.Command{
		tpsCmd,
		gatewayErrorsCmd,
		priorityQueueCmd,
		gatewayQueuesCmd,
		sendQueueCmd,
		latencyCmd,
		gatewayStatusCmd,
	} {
		c.GroupID = probeGroupID
		rootCmd.AddCommand(c)
	}

	// tps flags
	tpsCmd.Flags().Float64("warning", tps.DefaultWarning, "Warn when TPS falls below this value")
	tpsCmd.Flags().Float64("critical", tps.DefaultCritical, "Critical when TPS falls below this value")
	tpsCmd.Flags().Duration("window", tps.DefaultWindow, "Trailing time window")

	// gateway-errors flags
	gatewayErrorsCmd.Flags().Int64("error_threshold", gatewayerrors.DefaultWarning, "Warn above this many errors")
	gatewayErrorsCmd.Flags().Int64("critical_threshold", gatewayerrors.DefaultCritical, "Critical above this many errors")

	// gateway-queues flags
	gatewayQueuesCmd.Flags().String("gateways", "", "Comma-separated gateway ids (default [BDSQLite] active_gateways)")
	gatewayQueuesCmd.Flags().Int64("warning", gatewayqueues.DefaultWarning, "Warn above this many queued messages per gateway")
	gatewayQueuesCmd.Flags().Int64("critical", gatewayqueues.DefaultCritical, "Critical above this many queued messages per gateway")

	// send-queue flags
	sendQueueCmd.Flags().Int64("warning", sendqueue.DefaultWarning, "Warn above this many queued messages")
	sendQueueCmd.Flags().Int64("critical", sendqueue.DefaultCritical, "Critical above this many queued messages")

	// latency flags
	latencyCmd.Flags().Float64("warning", latency.DefaultWarning, "Warn above this connect time (ms)")
	latencyCmd.Flags().Float64("critical", latency.DefaultCritical, "Critical above this connect time (ms)")
	latencyCmd.Flags().Duration("timeout", latency.DefaultTimeout, "Connect timeout")
}

// runProbe loads the settings, applies the license gate and prints the
// result of fn. Returned errors are configuration or usage errors.
func runProbe(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config) (*probe.Result, error)) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	gate, err := license.New(cfg.License.Expiration)
	if err != nil {
		return err
	}
	if err := gate.Check(now()); err != nil {
		outputResult(cmd, &probe.Result{Status: probe.StatusCritical, Message: err.Error()})
		return nil
	}

	result, err := fn(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	slog.Debug("probe finished", "probe", cmd.Name(), "status", result.Status, "data", result.Data)
	outputResult(cmd, result)
	return nil
}

func newDispatcher(cfg *config.Config) *notify.Dispatcher {
	var channels []notify.Channel
	if cfg.EmailEnabled() {
		channels = append(channels, notify.NewEmailChannel(notify.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		}))
	}
	if cfg.NtfyEnabled() {
		channels = append(channels, notify.NewNtfyChannel(notify.NtfyConfig{
			ServerURL: cfg.Ntfy.ServerURL,
			Topic:     cfg.Ntfy.Topic,
			Token:     cfg.Ntfy.Token,
		}))
	}
	return notify.NewDispatcher(channels...)
}

func printDescriptions(cmd *cobra.Command) {
	descs := probes.GetAllDescriptions()
	json.NewEncoder(cmd.OutOrStdout()).Encode(descs)
}

func outputResult(cmd *cobra.Command, result *probe.Result) {
	fmt.Fprintln(cmd.OutOrStdout(), result.String())
	exitCode = result.ExitCode()
}
