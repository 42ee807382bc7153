package main

import (
	"fmt"
	"os"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	poseidon "github.com/vocdoni/poseidon-gens"
	"github.com/vocdoni/poseidon-gens/generators"
)

func newGenerateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Derive a generator set and write it to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := v.GetString("out")
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			enc := generators.Compressed
			if v.GetBool("raw") {
				enc = generators.Raw
			}
			g, err := deriveWithProgress(cmd, v.GetInt("capacity"), v.GetString("label"))
			if err != nil {
				return err
			}
			blob, err := generators.Encode(g, enc)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, blob, 0o644); err != nil {
				return err
			}
			log := logger.Logger()
			log.Info().
				Str("file", out).
				Int("count", g.Len()).
				Stringer("encoding", enc).
				Int("bytes", len(blob)).
				Msg("generators written")
			return nil
		},
	}
	cmd.Flags().Int("capacity", poseidon.DefaultCapacity, "Number of generators to derive.")
	cmd.Flags().String("label", poseidon.DefaultLabel, "Domain label the generators are derived from.")
	cmd.Flags().Bool("raw", false, "Store uncompressed points (larger file, faster load).")
	cmd.Flags().String("out", "", "Output file.")
	return cmd
}

// deriveWithProgress derives n generators, drawing a progress bar on stderr.
func deriveWithProgress(cmd *cobra.Command, n int, label string) (*generators.GeneratorSet, error) {
	if err := generators.CheckShape(n, []byte(label)); err != nil {
		return nil, err
	}
	bar := progressbar.NewOptions(n,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("deriving generators"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	g, err := generators.Generate(n, []byte(label), generators.WithProgress(func() { _ = bar.Add(1) }))
	if err != nil {
		return nil, err
	}
	_ = bar.Finish()
	return g, nil
}
