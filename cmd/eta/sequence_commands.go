package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"eta/internal/sequence"
)

type sequenceSummary struct {
	Pattern    string   `json:"pattern"`
	Extension  string   `json:"extension"`
	Immutable  bool     `json:"immutable_bounds"`
	LowerBound int      `json:"lower_bound"`
	UpperBound int      `json:"upper_bound"`
	Count      int      `json:"count"`
	Paths      []string `json:"paths,omitempty"`
}

func newSequenceCommand(ctx *commandContext) *cobra.Command {
	seqCmd := &cobra.Command{
		Use:     "seq",
		Aliases: []string{"sequence"},
		Short:   "Inspect numbered file sequences",
	}
	seqCmd.AddCommand(newSequenceShowCommand(ctx))
	seqCmd.AddCommand(newSequenceDetectCommand(ctx))
	return seqCmd
}

func newSequenceShowCommand(ctx *commandContext) *cobra.Command {
	var (
		mutable    bool
		listPaths  bool
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "show <pattern>",
		Short: "Resolve the bounds of a printf-style file pattern such as frames/%06d.png",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []sequence.Option{sequence.WithLogger(ctx.loggerFor(cmd))}
			if mutable {
				opts = append(opts, sequence.WithMutableBounds())
			}
			seq, err := sequence.Open(args[0], opts...)
			if err != nil {
				return err
			}
			return printSequence(cmd, seq, listPaths, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&mutable, "mutable", false, "Allow indices outside the discovered bounds")
	cmd.Flags().BoolVar(&listPaths, "paths", false, "List every path in the sequence")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the summary as JSON")
	return cmd
}

func newSequenceDetectCommand(ctx *commandContext) *cobra.Command {
	var (
		listPaths  bool
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "detect <dir>",
		Short: "Find the numbered file sequence in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := sequence.OpenDir(args[0], sequence.WithLogger(ctx.loggerFor(cmd)))
			if err != nil {
				return err
			}
			return printSequence(cmd, seq, listPaths, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&listPaths, "paths", false, "List every path in the sequence")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the summary as JSON")
	return cmd
}

func printSequence(cmd *cobra.Command, seq *sequence.FileSequence, listPaths, jsonOutput bool) error {
	summary := sequenceSummary{
		Pattern:    seq.Pattern(),
		Extension:  seq.Extension(),
		Immutable:  seq.Immutable(),
		LowerBound: seq.LowerBound(),
		UpperBound: seq.UpperBound(),
		Count:      seq.Len(),
	}
	if listPaths {
		for p := range seq.Paths() {
			summary.Paths = append(summary.Paths, p)
		}
	}
	if jsonOutput {
		return writeJSON(cmd, summary)
	}

	out := cmd.OutOrStdout()
	rows := [][]string{
		{"Pattern", summary.Pattern},
		{"Extension", valueOrDash(summary.Extension)},
		{"Immutable bounds", yesNo(summary.Immutable)},
		{"Lower bound", strconv.Itoa(summary.LowerBound)},
		{"Upper bound", strconv.Itoa(summary.UpperBound)},
		{"Count", strconv.Itoa(summary.Count)},
	}
	fmt.Fprintln(out, renderTable([]string{"Property", "Value"}, rows, nil))
	if listPaths {
		printPaths(out, seq)
	}
	return nil
}

func printPaths(out io.Writer, seq *sequence.FileSequence) {
	for i, p := range seq.All() {
		fmt.Fprintf(out, "%d\t%s\n", i, p)
	}
}
