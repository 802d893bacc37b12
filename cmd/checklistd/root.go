package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/facility-checklists/internal/config"
	"github.com/example/facility-checklists/internal/logging"
)

const serviceName = "checklistd"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          serviceName,
	Short:        "Checklist tracker for facilities maintenance teams",
	SilenceUsage: true,
}

// Execute runs the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: ./checklistd.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug | info | warn | error")
	rootCmd.PersistentFlags().String("data-dir", "data", "directory holding the records")
	rootCmd.PersistentFlags().String("storage-driver", config.StorageJSONFile, "storage backend: jsonfile | sqlite")
	bindFlag("log_level", rootCmd.PersistentFlags(), "log-level")
	bindFlag("data_dir", rootCmd.PersistentFlags(), "data-dir")
	bindFlag("storage_driver", rootCmd.PersistentFlags(), "storage-driver")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(agendaCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(newInitCmd(serviceName, defaultConfigYAML))
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "error reading .env:", err)
		os.Exit(1)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		viper.SetConfigName(serviceName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join(home, ".checklistd"))
		viper.AddConfigPath("/etc/checklistd")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "error reading config file:", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintln(os.Stderr, "config:", viper.ConfigFileUsed())
	}
}

// loadRuntime validates the configuration and builds the process logger
// writing to out. The closer releases the log file.
func loadRuntime(out io.Writer) (config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger, closer := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Service: serviceName,
		Output:  out,
	})
	return cfg, logger, closer, nil
}

func bindFlag(viperKey string, fs *pflag.FlagSet, flagName string) {
	if err := viper.BindPFlag(viperKey, fs.Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("bindFlag %q → %q: %v", flagName, viperKey, err))
	}
}
