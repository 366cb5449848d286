package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/tigra-astronomy/skycondition"
	"github.com/tigra-astronomy/skycondition/internal/adapters/fs"
	logAdapter "github.com/tigra-astronomy/skycondition/internal/adapters/log"
	"github.com/tigra-astronomy/skycondition/internal/cliconfig"
	"github.com/tigra-astronomy/skycondition/pkg/skyclient"
	"github.com/tigra-astronomy/skycondition/pkg/skyserver"
	"github.com/tigra-astronomy/skycondition/plugins/endpointwatch"
)

const longHelp = `Expose the sky condition reported by an external sensor over a local endpoint.

A sensor connects to the endpoint and writes one integer from 0 to 3 per
line. Until the first valid value arrives the condition reads as 1.

One sensor is served at a time. Invalid lines are logged and ignored.
Configure via ~/.skycondition/config.toml, SKYCONDITION_* variables, or flags.`

var exampleUsage = strings.TrimSpace(`
  skycondition serve --status-file /run/skycondition/status.json
  skycondition send 2
  echo 3 | skycondition send --stdin
  skycondition status --status-file /run/skycondition/status.json
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "skycondition",
		Short:         "Serve the sky condition from an external sensor",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// load applies file, env and flag layers to cfg and builds the logger.
	load := func(cmd *cobra.Command) (zerolog.Logger, error) {
		cfgFile := cfgPath
		if cfgFile == "" {
			cfgFile = cliconfig.DefaultConfigPath()
		}

		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		if cfgFile != "" && cliconfig.FileExists(cfgFile) {
			fc, err := cliconfig.LoadFileConfig(cfgFile)
			if err != nil {
				return zerolog.Nop(), fmt.Errorf("load config: %w", err)
			}
			if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
				return zerolog.Nop(), err
			}
		}
		if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
			return zerolog.Nop(), err
		}
		if err := cfg.Validate(); err != nil {
			return zerolog.Nop(), err
		}
		return cliconfig.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	}

	serve := func(cmd *cobra.Command, args []string) error {
		log, err := load(cmd)
		if err != nil {
			return err
		}
		log.Info().Interface("config", cfg).Msg("configuration")

		opts := []skyserver.Option{
			skyserver.WithLogger(logAdapter.NewZerologAdapterWithLogger(log)),
			skyserver.WithStatusFile(cfg.StatusFile),
		}
		if cfg.WatchEndpoint {
			opts = append(opts, endpointwatch.WithEndpointWatch(endpointwatch.DefaultConfig()))
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srvCfg := skycondition.Config{
			EndpointName:   cfg.Endpoint,
			BackoffInitial: cfg.BackoffInitial,
			BackoffMax:     cfg.BackoffMax,
			MaxLineBytes:   cfg.MaxLineBytes,
		}
		if err := skycondition.Run(ctx, srvCfg, opts...); err != nil {
			return err
		}
		log.Info().Msg("stopped")
		return nil
	}
	root.RunE = serve

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.skycondition/config.toml)")
	root.PersistentFlags().StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "endpoint name, or a socket path on Unix")
	root.PersistentFlags().StringVar(&cfg.StatusFile, "status-file", cfg.StatusFile, "JSON file the current state is published to (optional)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console, json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept sensor connections and publish the sky condition (default)",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	// serve flags live on both root and serve since serve is the default.
	for _, flags := range []*pflag.FlagSet{root.Flags(), serveCmd.Flags()} {
		flags.DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "first retry delay after an endpoint failure")
		flags.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "maximum retry delay")
		flags.IntVar(&cfg.MaxLineBytes, "max-line-bytes", cfg.MaxLineBytes, "longest accepted protocol line")
		flags.BoolVar(&cfg.WatchEndpoint, "watch-endpoint", cfg.WatchEndpoint, "recreate the socket if its file is deleted")
	}

	root.AddCommand(serveCmd, newSendCmd(load, &cfg), newStatusCmd(load, &cfg))

	if err := root.Execute(); err != nil {
		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
		log.Error().Err(err).Msg("skycondition")
		os.Exit(1)
	}
}

type loader func(cmd *cobra.Command) (zerolog.Logger, error)

func newSendCmd(load loader, cfg *cliconfig.Config) *cobra.Command {
	var (
		fromStdin bool
		interval  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "send [value...]",
		Short: "Act as a sensor: connect and write values, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(cmd); err != nil {
				return err
			}
			if len(args) == 0 && !fromStdin {
				return fmt.Errorf("nothing to send: pass values or --stdin")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := skyclient.Dial(ctx, cfg.Endpoint)
			if err != nil {
				return err
			}
			defer c.Close()

			for i, a := range args {
				if i > 0 && interval > 0 {
					select {
					case <-time.After(interval):
					case <-ctx.Done():
						return nil
					}
				}
				if err := c.SendLine(a); err != nil {
					return err
				}
			}
			if !fromStdin {
				return nil
			}

			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				if ctx.Err() != nil {
					return nil
				}
				if err := c.SendLine(sc.Text()); err != nil {
					return err
				}
			}
			return sc.Err()
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "send lines read from standard input after any arguments")
	cmd.Flags().DurationVar(&interval, "interval", 0, "delay between argument values")
	return cmd
}

func newStatusCmd(load loader, cfg *cliconfig.Config) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the state published by a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(cmd); err != nil {
				return err
			}
			if cfg.StatusFile == "" {
				return fmt.Errorf("no status file configured: pass --status-file")
			}
			snap, err := fs.ReadStatusFile(cfg.StatusFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Fprintf(out, "condition:   %s\n", snap.Condition)
			fmt.Fprintf(out, "available:   %t\n", snap.Available)
			fmt.Fprintf(out, "serving:     %t\n", snap.Serving)
			fmt.Fprintf(out, "accepted:    %d\n", snap.Accepted)
			fmt.Fprintf(out, "rejected:    %d\n", snap.Rejected)
			fmt.Fprintf(out, "connections: %d\n", snap.Connections)
			if !snap.UpdatedAt.IsZero() {
				fmt.Fprintf(out, "updated:     %s\n", snap.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON snapshot")
	return cmd
}
