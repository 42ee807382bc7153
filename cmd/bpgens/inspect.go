package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vocdoni/poseidon-gens/generators"
)

func newInspectCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Validate a generator file and print its shape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := v.GetString("in")
			if in == "" {
				return fmt.Errorf("--in is required")
			}
			data, err := os.ReadFile(in)
			if err != nil {
				return err
			}
			g, err := generators.Decode(data)
			if err != nil {
				return err
			}
			enc, err := generators.EncodingOf(data)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "label:    %s\n", g.Label())
			fmt.Fprintf(w, "count:    %d\n", g.Len())
			fmt.Fprintf(w, "encoding: %s\n", enc)
			fmt.Fprintf(w, "bytes:    %d\n", len(data))
			return nil
		},
	}
	cmd.Flags().String("in", "", "Generator file to inspect.")
	return cmd
}
