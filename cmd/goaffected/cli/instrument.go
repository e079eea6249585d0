package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kolkov/goaffected/internal/affected/hostrt"
	"github.com/kolkov/goaffected/internal/affected/instrument"
	"github.com/spf13/cobra"
)

func newInstrumentCmd(st *state) *cobra.Command {
	var (
		write  bool
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "instrument [flags] file.go...",
		Short: "Insert footprint entry calls into Go source files",
		Long: `Instrument rewrites each file so every function body begins with
affected.Enter(<unit>), where <unit> records the file's absolute path.

Without -w or -o the result of a single file is printed to stdout.
Generated and already instrumented files are left unchanged; functions
marked //affected:skip are not instrumented.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if write && outDir != "" {
				return errors.New("-w and -o are mutually exclusive")
			}
			if !write && outDir == "" && len(args) > 1 {
				return errors.New("printing to stdout takes a single file; use -w or -o")
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("creating output directory: %w", err)
				}
			}

			var total instrument.InstrumentStats
			checked := make(map[string]bool)
			for _, path := range args {
				result, err := instrument.InstrumentFile(path, nil)
				if err != nil {
					return err
				}
				st.checkRuntimeRequired(checked, result.Unit)
				st.log.Debug("instrumented file",
					"file", result.Unit,
					"functions", result.Stats.FunctionsInstrumented,
					"literals", result.Stats.LiteralsInstrumented,
					"skipped", result.Stats.TotalSkipped(),
					"generated", result.Stats.Generated,
					"already_instrumented", result.Stats.AlreadyInstrumented)
				addStats(&total, result.Stats)

				switch {
				case write:
					err = writeFile(path, result.Code)
				case outDir != "":
					err = writeFile(filepath.Join(outDir, filepath.Base(path)), result.Code)
				default:
					_, err = fmt.Fprint(cmd.OutOrStdout(), result.Code)
				}
				if err != nil {
					return err
				}
			}

			if write || outDir != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "instrumented %d files: %d functions, %d literals, %d skipped\n",
					len(args), total.FunctionsInstrumented, total.LiteralsInstrumented, total.TotalSkipped())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite files in place")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "write instrumented files into this directory")
	return cmd
}

// checkRuntimeRequired warns once per module when the go.mod enclosing
// unit cannot resolve the runtime import.
func (st *state) checkRuntimeRequired(checked map[string]bool, unit string) {
	goMod := hostrt.FindGoMod(filepath.Dir(filepath.FromSlash(unit)))
	if goMod == "" || checked[goMod] {
		return
	}
	checked[goMod] = true

	ok, err := instrument.RequiresRuntime(goMod)
	switch {
	case err != nil:
		st.log.Warn("cannot check go.mod for the runtime module", "go_mod", goMod, "error", err)
	case !ok:
		st.log.Warn("module does not require the runtime module; instrumented files will not build",
			"go_mod", goMod, "require", instrument.RuntimeModule)
	}
}

func addStats(total *instrument.InstrumentStats, s instrument.InstrumentStats) {
	total.FunctionsInstrumented += s.FunctionsInstrumented
	total.LiteralsInstrumented += s.LiteralsInstrumented
	total.DirectiveSkipped += s.DirectiveSkipped
	total.BodilessSkipped += s.BodilessSkipped
}

// writeFile replaces path, keeping the mode of an existing file.
func writeFile(path, code string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(code), mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
