// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package cli binds the server flags with spf13/cobra and their
// environment-variable equivalents with spf13/viper.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/app"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/appconsts"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/logging"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/mcpserver"
)

// envPrefix prefixes every flag's environment-variable binding, so
// --log-level is also DB2I_MCP_LOG_LEVEL. DB2i_HOST/USER/PASS/PORT are
// interpolated directly inside YAML documents by pkg/config and are
// deliberately not flags here.
const envPrefix = "DB2I_MCP"

// appRunner is package-level so tests can substitute a fake.
var appRunner Runner = runnerFunc(runApp)

// RunOptions carries the flags runApp needs beyond app.Config.
type RunOptions struct {
	Transport       mcpserver.Transport
	ListenAddress   string
	ShutdownTimeout time.Duration
}

// Runner runs the fully wired server for the lifetime of ctx.
type Runner interface {
	Run(ctx context.Context, cfg app.Config, opts RunOptions) error
}

type runnerFunc func(ctx context.Context, cfg app.Config, opts RunOptions) error

func (f runnerFunc) Run(ctx context.Context, cfg app.Config, opts RunOptions) error {
	return f(ctx, cfg, opts)
}

// NewRootCmd builds the server's root command.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           appconsts.Name,
		Short:         "Declarative, database-backed MCP tool-dispatch server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("tools", nil, "file, directory, or glob of YAML tool documents (repeatable)")
	flags.StringSlice("toolsets", nil, "comma-separated toolset names to enable (default: all)")
	// The two-letter toolsets alias is accepted as --ts and normalized to
	// --toolsets. pflag shorthands are limited to a single rune, so a
	// single-dash -ts is not an alias: pflag parses it as -t (the
	// --transport shorthand) with the value "s".
	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "ts" {
			name = "toolsets"
		}
		return pflag.NormalizedName(name)
	})
	flags.Bool("list-toolsets", false, "print available toolsets and exit")
	flags.StringP("transport", "t", string(mcpserver.TransportStdio), "dispatch transport: stdio|http")
	flags.String("listen-address", ":8080", "address the http transport and health/metrics endpoints bind to")
	flags.String("log-level", "info", "log level: debug|info|warn|error")
	flags.Bool("validate", false, "load and validate configuration, print diagnostics, and exit")
	flags.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	flags.Bool("merge-arrays", true, "merge array fields (toolset.tools, etc.) across documents instead of overriding")
	flags.Bool("allow-duplicate-tools", false, "allow the same tool name to appear in more than one document")
	flags.Bool("allow-duplicate-sources", false, "allow the same source name to appear in more than one document")
	flags.Bool("skip-merge-validate", false, "skip cross-reference validation of the merged configuration")

	flags.Bool("auth-enabled", false, "enable the POST /api/v1/auth authenticated-session endpoints")
	flags.Bool("auth-allow-http", false, "allow the auth envelope endpoint over plain HTTP (testing only)")
	flags.String("auth-key-id", "", "key ID advertised at GET /api/v1/auth/public-key")
	flags.String("auth-private-key-path", "", "path to the RSA private key decrypting auth envelopes")
	flags.Int("auth-max-sessions", 100, "maximum concurrent authenticated sessions")
	flags.Duration("auth-cleanup-interval", time.Minute, "interval between expired-session reaper sweeps")

	for _, name := range []string{
		"tools", "toolsets", "list-toolsets", "transport", "listen-address", "log-level", "validate",
		"shutdown-timeout", "merge-arrays", "allow-duplicate-tools", "allow-duplicate-sources",
		"skip-merge-validate", "auth-enabled", "auth-allow-http", "auth-key-id", "auth-private-key-path",
		"auth-max-sessions", "auth-cleanup-interval",
	} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appconsts.Name, appconsts.Version)
			return nil
		},
	}
}

func runRoot(cmd *cobra.Command, v *viper.Viper) error {
	level, ok := logging.ParseLevel(v.GetString("log-level"))
	if !ok {
		level = slog.LevelInfo
	}
	logging.Init(level, os.Stderr)

	specifiers := specifiersFromPaths(v.GetStringSlice("tools"))
	mergeOpts := config.MergeOptions{
		MergeArrays:           v.GetBool("merge-arrays"),
		AllowDuplicateTools:   v.GetBool("allow-duplicate-tools"),
		AllowDuplicateSources: v.GetBool("allow-duplicate-sources"),
		ValidateMerged:        !v.GetBool("skip-merge-validate"),
	}

	cfg := app.Config{
		Specifiers:   specifiers,
		ToolsetNames: v.GetStringSlice("toolsets"),
		MergeOptions: mergeOpts,
		ServerName:   appconsts.Name,
		ServerVer:    appconsts.Version,
		Auth: app.AuthConfig{
			Enabled:               v.GetBool("auth-enabled"),
			AllowHTTP:             v.GetBool("auth-allow-http"),
			KeyID:                 v.GetString("auth-key-id"),
			PrivateKeyPath:        v.GetString("auth-private-key-path"),
			MaxConcurrentSessions: v.GetInt("auth-max-sessions"),
			CleanupInterval:       v.GetDuration("auth-cleanup-interval"),
		},
	}

	if v.GetBool("list-toolsets") || v.GetBool("validate") {
		return loadOnly(cmd, cfg, v.GetBool("list-toolsets"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	transport := mcpserver.Transport(v.GetString("transport"))
	if transport != mcpserver.TransportStdio && transport != mcpserver.TransportHTTP {
		return errs.New(errs.KindConfig, "unknown --transport: "+string(transport))
	}

	return appRunner.Run(ctx, cfg, RunOptions{
		Transport:       transport,
		ListenAddress:   v.GetString("listen-address"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	})
}

// loadOnly serves --validate and --list-toolsets: both need a fully loaded
// and compiled configuration but never start a listener.
func loadOnly(cmd *cobra.Command, cfg app.Config, listToolsets bool) error {
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if listToolsets {
		for _, name := range a.ToolsetIndex().Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
	return nil
}

// runApp is the default Runner: it wires the app and serves until ctx is
// canceled.
func runApp(ctx context.Context, cfg app.Config, opts RunOptions) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Shutdown()
	a.MarkReady()

	if opts.Transport == mcpserver.TransportStdio {
		return a.MCPServer().RunStdio(ctx)
	}
	return serveHTTP(ctx, a, opts.ListenAddress, opts.ShutdownTimeout)
}

// specifiersFromPaths classifies each --tools value as a glob (contains a
// glob metacharacter), a directory, or a file; every specifier is
// required.
func specifiersFromPaths(paths []string) []config.Specifier {
	specs := make([]config.Specifier, 0, len(paths))
	for _, p := range paths {
		kind := config.KindFile
		switch {
		case strings.ContainsAny(p, "*?["):
			kind = config.KindGlob
		default:
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				kind = config.KindDirectory
			}
		}
		specs = append(specs, config.Specifier{Kind: kind, Path: p, Required: true})
	}
	return specs
}

// ExitCode maps a command error to a process exit code: 0 on success, 2
// when the configured tools path could not be resolved, 1 for invalid
// arguments and every other fatal startup failure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errs.Is(err, errs.KindToolsPath):
		return 2
	default:
		return 1
	}
}
