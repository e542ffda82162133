package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"eta/internal/data"
	"eta/internal/logging"
	"eta/internal/serial"
)

type inspectSummary struct {
	Path           string       `json:"path"`
	SizeBytes      int64        `json:"size_bytes"`
	ContainerClass string       `json:"container_class"`
	ElementClass   string       `json:"element_class,omitempty"`
	Count          int          `json:"count"`
	Elements       []serial.Map `json:"elements"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput     bool
		limit          int
		containerClass string
		elementClass   string
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Load a container file by its class tags and summarize it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.loggerFor(cmd)
			path := args[0]

			var opts []data.LoadOption
			if containerClass != "" {
				opts = append(opts, data.WithContainerClass(containerClass))
			}
			if elementClass != "" {
				opts = append(opts, data.WithElementClass(elementClass))
			}
			c, err := data.Read(path, opts...)
			if err != nil {
				return err
			}
			summary, err := summarize(path, c)
			if err != nil {
				return err
			}
			logger.Debug("container inspected",
				logging.String(logging.FieldPath, path),
				logging.String(logging.FieldClass, summary.ContainerClass),
				logging.Int(logging.FieldCount, summary.Count),
			)

			if jsonOutput {
				return writeJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path:            %s\n", summary.Path)
			fmt.Fprintf(out, "Size:            %s\n", humanize.Bytes(uint64(max(summary.SizeBytes, 0))))
			fmt.Fprintf(out, "Container class: %s\n", summary.ContainerClass)
			fmt.Fprintf(out, "Element class:   %s\n", valueOrDash(summary.ElementClass))
			fmt.Fprintf(out, "Elements:        %d\n", summary.Count)
			if summary.Count == 0 {
				return nil
			}

			shown := summary.Elements
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}
			keys := elementKeys(shown, c.Layout().ElementClassField)
			headers := make([]string, 0, len(keys)+1)
			headers = append(headers, "#")
			for _, k := range keys {
				headers = append(headers, columnTitle(k))
			}
			rows := make([][]string, 0, len(shown))
			for i, e := range shown {
				row := []string{strconv.Itoa(i)}
				for _, k := range keys {
					row = append(row, formatCell(e[k]))
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignRight}))
			if len(shown) < summary.Count {
				fmt.Fprintf(out, "... %d more\n", summary.Count-len(shown))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the summary as JSON")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of elements to tabulate (0 for all)")
	cmd.Flags().StringVar(&containerClass, "container-class", "", "Container class to use when the file has no class tag")
	cmd.Flags().StringVar(&elementClass, "element-class", "", "Element class to use when the file has no element tag")
	return cmd
}

func summarize(path string, c data.AnyContainer) (inspectSummary, error) {
	summary := inspectSummary{
		Path:           path,
		ContainerClass: c.ClassName(),
		ElementClass:   c.ElementClass(),
		Count:          c.Len(),
		Elements:       []serial.Map{},
	}
	if info, err := os.Stat(path); err == nil {
		summary.SizeBytes = info.Size()
	}
	m, err := c.ToMap()
	if err != nil {
		return summary, err
	}
	raw, _ := serial.Slice(m, c.Layout().ElementAttr)
	for _, item := range raw {
		if em, ok := serial.AsMap(item); ok {
			summary.Elements = append(summary.Elements, em)
		}
	}
	return summary, nil
}

// elementKeys lists the keys seen across elements, in first-seen order,
// leaving out the per-element class tag.
func elementKeys(elements []serial.Map, classField string) []string {
	var keys []string
	for _, e := range elements {
		local := make([]string, 0, len(e))
		for k := range e {
			if k != classField && !slices.Contains(keys, k) {
				local = append(local, k)
			}
		}
		slices.Sort(local)
		keys = append(keys, local...)
	}
	return keys
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return yesNo(t)
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(encoded)
	}
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
