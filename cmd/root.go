// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domq/internal/config"
	"github.com/xkilldash9x/domq/internal/engine"
	"github.com/xkilldash9x/domq/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

var (
	cfgFile string

	// launchEngine starts the browser backend. Tests swap it for a fake.
	launchEngine engine.Launcher = engine.New
)

// flagBindings maps persistent flags to their configuration keys.
var flagBindings = map[string]string{
	"engine":      "browser.engine",
	"headless":    "browser.headless",
	"stealth":     "browser.stealth",
	"exec-path":   "browser.exec_path",
	"timeout":     "query.timeout",
	"concurrency": "query.concurrency",
	"log-level":   "logger.level",
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domq",
		Short: "domq runs lazy DOM queries against pages in a headless browser.",
		// Version is dynamically set at build time. See cmd/version.go.
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting domq",
				zap.String("version", Version),
				zap.String("engine", cfg.Browser().Engine))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, config.Interface(cfg)))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml or $HOME/.domq/config.yaml)")
	flags.String("engine", config.EngineChromedp, "browser engine: chromedp or playwright")
	flags.Bool("headless", true, "run the browser without a window")
	flags.Bool("stealth", true, "apply the configured browser persona")
	flags.String("exec-path", "", "path to the Chrome or Chromium binary")
	flags.Duration("timeout", 0, "per-query timeout (default from config)")
	flags.Int("concurrency", 0, "parallel evaluations for bulk queries (default from config)")
	flags.String("log-level", "", "log level (default from config)")
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(
		newExistsCmd(),
		newVisibleCmd(),
		newAttrCmd(),
		newTextCmd(),
		newHTMLCmd(),
		newPropCmd(),
		newAttrsCmd(),
		newFillCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command with a signal-aware context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initializeConfig layers .env, the config file, DOMQ_* variables and the
// flags that were set explicitly, in increasing precedence.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".domq"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DOMQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	for name, key := range flagBindings {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// configFromContext returns the configuration stored by PersistentPreRunE.
func configFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}
