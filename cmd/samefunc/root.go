package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	clihandler "github.com/apex/log/handlers/cli"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/StanHash/samefunc/internal/funcs"
)

// app carries the configuration shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "samefunc",
		Short: "Find structurally identical functions in ARM ELF objects",
		Long: `samefunc groups functions of 32-bit ARM ELF images whose code is identical
once relocation sites (and, with --lax, Thumb immediate operands) are masked.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/samefunc/config.yaml)")
	root.PersistentFlags().BoolP("verbose", "V", false, "verbose output")
	root.PersistentFlags().Bool("color", false, "colorize output")
	a.v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	a.v.BindPFlag("color", root.PersistentFlags().Lookup("color"))

	root.AddCommand(a.matchCmd(), a.showCmd(), a.graphCmd())
	root.CompletionOptions.HiddenDefaultCmd = true
	return root
}

// init reads the config file and environment, then applies the logging
// and color settings.
func (a *app) init(cmd *cobra.Command, args []string) error {
	log.SetHandler(clihandler.New(cmd.ErrOrStderr()))

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(filepath.Join(home, ".config", "samefunc"))
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("config")
	}

	a.v.SetEnvPrefix("samefunc")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	} else {
		log.WithField("file", a.v.ConfigFileUsed()).Debug("using config file")
	}

	log.SetLevel(log.InfoLevel)
	if a.v.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}
	if a.v.GetBool("color") {
		color.NoColor = false
	}
	return nil
}

// bindFlags binds every local flag of cmd to "<cmd>.<flag>".
func (a *app) bindFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		a.v.BindPFlag(cmd.Name()+"."+name, cmd.Flags().Lookup(name))
	}
}

func (a *app) options(cmd *cobra.Command) funcs.Options {
	return funcs.Options{
		Lax: a.v.GetBool(cmd.Name() + ".lax"),
		Log: log.Log,
	}
}

// extractAll folds every file into one registry. Names are qualified with
// the file path when more than one file is given.
func extractAll(paths []string, opts funcs.Options) (*funcs.Registry, error) {
	r := funcs.NewRegistry()
	multi := len(paths) > 1
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		qualifier := ""
		if multi {
			qualifier = path
		}
		st, err := funcs.Extract(r, qualifier, data, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		log.WithFields(log.Fields{
			"file":      path,
			"functions": st.Functions,
			"new":       st.New,
		}).Info("extracted")
	}
	return r, nil
}
