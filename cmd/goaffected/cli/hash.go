package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kolkov/goaffected/internal/affected/fingerprint"
	"github.com/spf13/cobra"
)

func newHashCmd(st *state) *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "hash [flags] [file...]",
		Short: "Print the content fingerprint of files",
		Long: `Hash prints "<fingerprint>  <path>" for every file, hashing them
concurrently with hash_workers workers.

--from reads one path per line (a saved footprint); "-" reads stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if fromFile != "" {
				listed, err := readPathList(cmd.InOrStdin(), fromFile)
				if err != nil {
					return err
				}
				paths = append(paths, listed...)
			}
			if len(paths) == 0 {
				return fmt.Errorf("no files to hash")
			}

			cache := fingerprint.New(fingerprint.WithWorkers(st.cfg.HashWorkers))
			m, err := cache.Manifest(cmd.Context(), paths)
			if err != nil {
				return err
			}
			st.log.Debug("hashed files", "files", len(m.Entries), "reads", cache.Reads())

			out := cmd.OutOrStdout()
			for _, e := range m.Entries {
				fmt.Fprintf(out, "%016x  %s\n", e.Hash, e.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFile, "from", "", "read paths from this file, one per line")
	return cmd
}

// readPathList reads non-empty lines of name ("-" is stdin).
func readPathList(stdin io.Reader, name string) ([]string, error) {
	r := stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var paths []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return paths, nil
}
