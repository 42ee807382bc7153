package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	poseidon "github.com/vocdoni/poseidon-gens"
)

func newHashCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash [values...]",
		Short: "Hash decimal field elements with a hasher built from cached generators",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := make([]fr.Element, len(args))
			for i, arg := range args {
				if _, err := inputs[i].SetString(arg); err != nil {
					return fmt.Errorf("value %d: %w", i, err)
				}
			}

			opts := poseidon.NewHasherOptions(
				poseidon.WithCapacity(v.GetInt("capacity")),
				poseidon.WithLabel(v.GetString("label")),
				poseidon.WithDomain(poseidon.DomainFromLEBytes([]byte(v.GetString("domain")))),
			)
			if err := loadGenerators(cmd, opts, v.GetString("gens")); err != nil {
				return err
			}
			h, err := poseidon.NewHasher(opts)
			if err != nil {
				return err
			}
			out, err := h.Hash(inputs...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return nil
		},
	}
	cmd.Flags().String("gens", "", "Generator cache file; derived and written when missing.")
	cmd.Flags().Int("capacity", poseidon.DefaultCapacity, "Number of generators.")
	cmd.Flags().String("label", poseidon.DefaultLabel, "Domain label of the generators.")
	cmd.Flags().String("domain", "", "Hash domain separator, read as little-endian bytes.")
	return cmd
}

// loadGenerators fills opts from the cache file. A missing file is derived and
// written back so the next run takes the cached path.
func loadGenerators(cmd *cobra.Command, opts *poseidon.HasherOptions, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return opts.SetGenerators(data)
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	log := logger.Logger()
	log.Warn().Str("file", path).Msg("generator cache missing, deriving")
	g, err := deriveWithProgress(cmd, opts.Capacity(), string(opts.Label()))
	if err != nil {
		return err
	}
	if err := opts.SetGeneratorSet(g); err != nil {
		return err
	}
	blob, err := g.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o644)
}
