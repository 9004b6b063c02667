package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cogniva-docs/internal/app"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the current index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.DocQA.Ask(cmd.Context(), strings.Join(args, " "))
			if errors.Is(err, app.ErrIndexNotFound) {
				return errors.New("no index yet, run `cogniva ingest` first")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Answer)
			if showSources {
				for _, m := range result.Sources {
					fmt.Fprintf(out, "\n[chunk %d, score %.3f]\n%s\n", m.Position, m.Score, m.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "print the retrieved chunks")
	return cmd
}
