package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/msgwebhook/internal/api"
	"github.com/mattjoyce/msgwebhook/internal/config"
	"github.com/mattjoyce/msgwebhook/internal/log"
	"github.com/mattjoyce/msgwebhook/internal/metrics"
	"github.com/mattjoyce/msgwebhook/internal/store"
	"github.com/mattjoyce/msgwebhook/internal/webhook"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const defaultEnvFile = ".env"

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configOptions are shared by every command that resolves configuration.
type configOptions struct {
	configPath string
	envFile    string
}

func (o *configOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.configPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&o.envFile, "env-file", defaultEnvFile, "dotenv file loaded before the environment is read")
}

// load reads the dotenv file then resolves the config. A missing default
// .env is not an error; a missing explicit one is.
func (o *configOptions) load(cmd *cobra.Command) (*config.Config, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			explicit := cmd.Flags().Changed("env-file")
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load env file %s: %w", o.envFile, err)
			}
		}
	}
	return config.Load(o.configPath)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "msgwebhook",
		Short:         "Signed message webhook ingestion service",
		Long:          "Accepts HMAC-signed message deliveries, stores them idempotently and serves list, stats and metrics endpoints.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newSignCommand())
	cmd.AddCommand(newConfigCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newServeCommand() *cobra.Command {
	opts := &configOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, opts *configOptions) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	if cfg.Webhook.Secret == "" {
		logger.Warn("WEBHOOK_SECRET not set; every delivery will be rejected and readiness reports 503")
	}

	srv := api.New(api.Config{
		Listen: cfg.API.Listen,
		Webhook: webhook.Config{
			Secret:          cfg.Webhook.Secret,
			SignatureHeader: cfg.Webhook.SignatureHeader,
			MaxBodySize:     cfg.MaxBodyBytes(),
		},
	}, st, metrics.NewCollector(), log.WithComponent("api"))

	logger.Info("msgwebhook running (press Ctrl+C to stop)", "version", currentVersionInfo().Version)

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("api: %w", err)
	}
	logger.Info("msgwebhook stopped")
	return nil
}

type signOptions struct {
	secret string
	file   string
	prefix bool
}

func newSignCommand() *cobra.Command {
	opts := &signOptions{}
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the signature header value for a payload",
		Long: `Compute the hex HMAC-SHA256 of a payload, exactly as the webhook
verifies it. The payload is read from --file, or stdin when omitted.
The secret defaults to $WEBHOOK_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSign(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.secret, "secret", "", "HMAC secret (default $WEBHOOK_SECRET)")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "payload file (default stdin)")
	cmd.Flags().BoolVar(&opts.prefix, "prefix", false, `prepend "sha256="`)
	return cmd
}

func runSign(cmd *cobra.Command, opts *signOptions) error {
	secret := opts.secret
	if secret == "" {
		secret = os.Getenv("WEBHOOK_SECRET")
	}
	if secret == "" {
		return errors.New("no secret: pass --secret or set WEBHOOK_SECRET")
	}

	var (
		body []byte
		err  error
	)
	if opts.file != "" {
		body, err = os.ReadFile(opts.file)
	} else {
		body, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	sig := webhook.Sign(secret, body)
	if opts.prefix {
		sig = "sha256=" + sig
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), sig)
	return err
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(newConfigShowCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	opts := &configOptions{}
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			redacted := cfg.Redacted()

			var data []byte
			if jsonOut {
				data, err = json.MarshalIndent(redacted, "", "  ")
				data = append(data, '\n')
			} else {
				data, err = yaml.Marshal(redacted)
			}
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON instead of YAML")
	return cmd
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func newVersionCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := currentVersionInfo()
			out := cmd.OutOrStdout()
			if jsonOut {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("render version: %w", err)
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			fmt.Fprintf(out, "msgwebhook %s\n", info.Version)
			fmt.Fprintf(out, "commit: %s\n", info.Commit)
			fmt.Fprintf(out, "built_at: %s\n", info.BuildTime)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output version metadata as JSON")
	return cmd
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = readBuildSetting("vcs.revision")
	}
	if commit != "" {
		info.Commit = shortenCommit(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = readBuildSetting("vcs.time")
	}
	if t, err := time.Parse(time.RFC3339Nano, built); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}
	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return strings.TrimSpace(setting.Value)
		}
	}
	return ""
}
