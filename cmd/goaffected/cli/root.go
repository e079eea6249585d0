// Package cli implements the goaffected commands.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/kolkov/goaffected/internal/affected/config"
	"github.com/spf13/cobra"
)

// state is shared by the commands of one invocation.
type state struct {
	configPath string
	verbose    bool

	cfg *config.Config
	log *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:   "goaffected",
		Short: "Execution footprint tooling for Go tests",
		Long: `goaffected instruments Go source files so every function entry reports
its file to the footprint tracer, and fingerprints the files a traced
test touched.

Configuration is read from --config, AFFECTED_CONFIG, or the nearest
.affected.yaml above the working directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&st.configPath, "config", "", "configuration file (default: discover .affected.yaml)")
	root.PersistentFlags().BoolVarP(&st.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newInstrumentCmd(st),
		newHashCmd(st),
		newConfigCmd(st),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (st *state) load(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if st.configPath != "" {
		cfg, err = config.Load(st.configPath)
		if err == nil {
			cfg.ApplyEnv()
			err = cfg.Validate()
		}
	} else {
		cfg, err = config.Discover()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if st.verbose {
		cfg.LogLevel = "debug"
	}

	st.cfg = cfg
	st.log = cfg.Logger(cmd.ErrOrStderr())
	return nil
}
