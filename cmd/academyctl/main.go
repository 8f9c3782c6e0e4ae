// Command academyctl is a single-user client for the academy stores. It keeps the
// signed-in token and the last resolved profile in a local SQLite file, so a new
// invocation starts from the snapshot before the profile store answers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/techfemme/academy/backend/go-services/internal/app"
	"github.com/techfemme/academy/backend/go-services/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(app.Open).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// opener opens the shared stores; tests swap it for pre-opened in-memory stores.
type opener = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app.Stores, error)

func newRootCmd(open opener) *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "academyctl",
		Short:         "Sign in and manage your academy profile from the terminal",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfigFile(v, cfgFile)
		},
	}

	config.ApplyDefaults(v)
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("SESSION_SNAPSHOT_BACKEND", config.SnapshotSQLite)

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.String("db", v.GetString("SESSION_SQLITE_PATH"), "Local SQLite file for the token and profile snapshot")
	flags.String("mongo-uri", "", "MongoDB URI of the profile store")
	flags.String("log-level", v.GetString("LOG_LEVEL"), "Log level (debug, info, warn, error)")
	flags.String("jwt-secret", "", "Token signing secret (overrides env)")
	bindFlag(v, root, "SESSION_SQLITE_PATH", "db")
	bindFlag(v, root, "MONGODB_URI", "mongo-uri")
	bindFlag(v, root, "LOG_LEVEL", "log-level")
	bindFlag(v, root, "JWT_SECRET", "jwt-secret")

	env := &cliEnv{v: v, open: open}
	root.AddCommand(
		newSignUpCmd(env),
		newSignInCmd(env),
		newWhoAmICmd(env),
		newProfileCmd(env),
		newSignOutCmd(env),
	)
	return root
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func readConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}
