// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mraidhost/internal/config"
	"github.com/xkilldash9x/mraidhost/internal/observability"
)

// rootOptions carries state shared by every subcommand. Each command tree
// owns its viper instance, so trees built for tests do not leak into each
// other.
type rootOptions struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "mraidhost",
		Short: "Hosts MRAID ad creatives in a simulated mobile device.",
		Long: `mraidhost loads an MRAID creative into a simulated device, drives it
through scripted host actions, and prints what an embedding app would observe.`,
		// Version is set at build time. See cmd/version.go.
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.mraidhost/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = opts.v.BindPFlag("logger.level", rootCmd.PersistentFlags().Lookup("log-level"))
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newSimulateCmd(opts), newPreviewCmd(opts), newVersionCmd())
	return rootCmd
}

// Execute runs the command line against ctx. Failures are logged before they
// are returned.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed.", zap.Error(err))
	}
	observability.Sync()
	return err
}

// load resolves configuration from defaults, the config file, the
// environment and flags, in rising precedence, then starts logging.
func (o *rootOptions) load() error {
	config.SetDefaults(o.v)
	config.BindEnv(o.v)
	if err := o.readConfigFile(); err != nil {
		observability.InitializeLogger(config.NewDefaultConfig().Logger())
		return err
	}

	cfg, err := config.NewConfigFromViper(o.v)
	if err != nil {
		observability.InitializeLogger(config.NewDefaultConfig().Logger())
		return err
	}
	o.cfg = cfg

	observability.InitializeLogger(cfg.Logger())
	observability.GetLogger().Debug("Configuration loaded.",
		zap.String("version", Version),
		zap.String("config_file", o.v.ConfigFileUsed()))
	return nil
}

func (o *rootOptions) readConfigFile() error {
	if o.cfgFile != "" {
		path, err := homedir.Expand(o.cfgFile)
		if err != nil {
			return fmt.Errorf("expanding config path: %w", err)
		}
		o.v.SetConfigFile(path)
	} else {
		o.v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			o.v.AddConfigPath(home + "/.mraidhost")
		}
		o.v.SetConfigName("config")
		o.v.SetConfigType("yaml")
	}

	if err := o.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile == "" && errors.As(err, &notFound) {
			// No config file; defaults and the environment apply.
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}
