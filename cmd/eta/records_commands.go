package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"eta/internal/data"
	"eta/internal/logging"
	"eta/internal/serial"
)

type recordsFlags struct {
	field       string
	recordClass string
	jsonOutput  bool
}

func (f *recordsFlags) bind(cmd *cobra.Command, needField bool) {
	cmd.Flags().StringVar(&f.recordClass, "record-class", "", "Record class to decode with (default: the file's record tag)")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Emit the result as JSON")
	if needField {
		cmd.Flags().StringVarP(&f.field, "field", "f", "", "Record field to query")
		_ = cmd.MarkFlagRequired("field")
	}
}

func (f *recordsFlags) read(path string) (*data.Records, error) {
	var rt *data.ElementType
	if f.recordClass != "" {
		var err error
		if rt, err = data.LookupElement(f.recordClass); err != nil {
			return nil, err
		}
	}
	return data.ReadRecords(path, rt)
}

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Query and reshape DataRecords files",
	}

	recordsCmd.AddCommand(newRecordsUniqueCommand())
	recordsCmd.AddCommand(newRecordsIndexCommand())
	recordsCmd.AddCommand(newRecordsValuesCommand())
	recordsCmd.AddCommand(newRecordsFilterCommand(ctx))
	recordsCmd.AddCommand(newRecordsSubsetCommand(ctx))
	return recordsCmd
}

func newRecordsUniqueCommand() *cobra.Command {
	var flags recordsFlags
	cmd := &cobra.Command{
		Use:   "unique <file>",
		Short: "List the distinct values of a field in first-seen order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := flags.read(args[0])
			if err != nil {
				return err
			}
			values, err := recs.UniqueValues(flags.field)
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return writeJSON(cmd, values)
			}
			out := cmd.OutOrStdout()
			for _, v := range values {
				fmt.Fprintln(out, formatCell(v))
			}
			return nil
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newRecordsIndexCommand() *cobra.Command {
	var flags recordsFlags
	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Group record positions by the value of a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := flags.read(args[0])
			if err != nil {
				return err
			}
			index, err := recs.IndexBy(flags.field)
			if err != nil {
				return err
			}
			// Unique values give a stable first-seen ordering for the map keys.
			values, err := recs.UniqueValues(flags.field)
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				grouped := make(map[string][]int, len(index))
				for _, v := range values {
					grouped[formatCell(v)] = index[v]
				}
				return writeJSON(cmd, grouped)
			}
			rows := make([][]string, 0, len(values))
			for _, v := range values {
				rows = append(rows, []string{formatCell(v), strconv.Itoa(len(index[v])), joinInts(index[v])})
			}
			headers := []string{columnTitle(flags.field), "Count", "Indices"}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newRecordsValuesCommand() *cobra.Command {
	var flags recordsFlags
	cmd := &cobra.Command{
		Use:   "values <file>",
		Short: "Print the value of a field for every record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := flags.read(args[0])
			if err != nil {
				return err
			}
			values, err := recs.ValuesOf(flags.field)
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return writeJSON(cmd, values)
			}
			out := cmd.OutOrStdout()
			for i, v := range values {
				fmt.Fprintf(out, "%d\t%s\n", i, formatCell(v))
			}
			return nil
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newRecordsFilterCommand(ctx *commandContext) *cobra.Command {
	var (
		flags  recordsFlags
		keep   []string
		drop   []string
		output string
	)
	cmd := &cobra.Command{
		Use:   "filter <file>",
		Short: "Keep or drop records by the value of a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := flags.read(args[0])
			if err != nil {
				return err
			}
			before := recs.Len()
			keepValues, err := resolveValues(recs, flags.field, keep)
			if err != nil {
				return err
			}
			dropValues, err := resolveValues(recs, flags.field, drop)
			if err != nil {
				return err
			}
			if err := recs.Filter(flags.field, keepValues, dropValues); err != nil {
				return err
			}
			ctx.loggerFor(cmd).Info("records filtered",
				logging.String(logging.FieldPath, args[0]),
				logging.String("field", flags.field),
				logging.Int("before", before),
				logging.Int(logging.FieldCount, recs.Len()),
			)
			return emitRecords(cmd, ctx, recs, output)
		},
	}
	flags.bind(cmd, true)
	cmd.Flags().StringSliceVar(&keep, "keep", nil, "Values to keep")
	cmd.Flags().StringSliceVar(&drop, "drop", nil, "Values to drop")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file instead of stdout")
	cmd.MarkFlagsMutuallyExclusive("keep", "drop")
	cmd.MarkFlagsOneRequired("keep", "drop")
	return cmd
}

func newRecordsSubsetCommand(ctx *commandContext) *cobra.Command {
	var (
		flags   recordsFlags
		indices []int
		output  string
	)
	cmd := &cobra.Command{
		Use:   "subset <file>",
		Short: "Select records by position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := flags.read(args[0])
			if err != nil {
				return err
			}
			subset, err := recs.Subset(indices)
			if err != nil {
				return err
			}
			return emitRecords(cmd, ctx, subset, output)
		},
	}
	flags.bind(cmd, false)
	cmd.Flags().IntSliceVar(&indices, "indices", nil, "Comma-separated record positions")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file instead of stdout")
	_ = cmd.MarkFlagRequired("indices")
	return cmd
}

// resolveValues maps command-line strings onto the typed values the field
// actually holds, so "3" matches an integer field. Strings matching no value
// are passed through unchanged.
func resolveValues(recs *data.Records, field string, raw []string) ([]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	unique, err := recs.UniqueValues(field)
	if err != nil {
		return nil, err
	}
	byText := make(map[string]any, len(unique))
	for _, v := range unique {
		byText[formatCell(v)] = v
	}
	out := make([]any, 0, len(raw))
	for _, s := range raw {
		if v, ok := byText[s]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// emitRecords writes recs to path, indexing the file in the catalog when it
// is enabled, or prints the records as JSON when path is empty. A directory
// path receives the configured default records file name.
func emitRecords(cmd *cobra.Command, ctx *commandContext, recs *data.Records, path string) error {
	if strings.TrimSpace(path) == "" {
		m, err := recs.ToMap()
		if err != nil {
			return err
		}
		encoded, err := serial.Marshal(m, serial.FormatJSON)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(encoded)
		return err
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		path = cfg.RecordsPath(path)
	}
	if err := data.Write(path, recs); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", recs.Len(), path)

	if !cfg.Catalog.Enabled {
		return nil
	}
	store, err := ctx.openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	_, err = store.Record(cmd.Context(), path, recs)
	return err
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
