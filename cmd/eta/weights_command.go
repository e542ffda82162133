package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"eta/internal/serial"
	"eta/internal/weights"
)

func newWeightsCommand(ctx *commandContext) *cobra.Command {
	weightsCmd := &cobra.Command{
		Use:   "weights",
		Short: "Manage the model weights cache",
	}
	weightsCmd.AddCommand(newWeightsFetchCommand(ctx))
	weightsCmd.AddCommand(newWeightsPathCommand(ctx))
	return weightsCmd
}

type weightsFlags struct {
	url         string
	filename    string
	cache       string
	largeGDrive bool
}

func (f *weightsFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "Download URL of the weights file")
	cmd.Flags().StringVar(&f.filename, "file", "", "File name of the weights inside the cache")
	cmd.Flags().StringVar(&f.cache, "cache", "", "Cache directory (default: weights.cache_dir from config)")
	cmd.Flags().BoolVar(&f.largeGDrive, "large-gdrive", false, "The URL is a Google Drive file too large for its virus scan")
}

// resolve builds the weights config from an optional module config file,
// then applies any flags that were set.
func (f *weightsFlags) resolve(cmd *cobra.Command, ctx *commandContext, args []string) (weights.Config, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return weights.Config{}, err
	}
	m := serial.Map{}
	if len(args) == 1 {
		if m, err = serial.ReadFile(args[0]); err != nil {
			return weights.Config{}, err
		}
	}
	if cmd.Flags().Changed("file") {
		m["weights_filename"] = f.filename
	}
	if cmd.Flags().Changed("url") {
		m["weights_url"] = f.url
	}
	if cmd.Flags().Changed("cache") {
		m["weights_cache"] = f.cache
	}
	if cmd.Flags().Changed("large-gdrive") {
		m["weights_large_google_drive_file_flag"] = f.largeGDrive
	}
	return weights.ConfigFromMap(m, cfg.Weights.CacheDir)
}

func newWeightsFetchCommand(ctx *commandContext) *cobra.Command {
	var flags weightsFlags
	cmd := &cobra.Command{
		Use:   "fetch [module-config]",
		Short: "Download a weights file into the cache unless it is already there",
		Long: "Download a weights file into the cache unless it is already there.\n\n" +
			"The optional module config is a JSON or YAML file with weights_filename,\n" +
			"weights_url, weights_cache and weights_large_google_drive_file_flag keys.\n" +
			"Flags override its values.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wcfg, err := flags.resolve(cmd, ctx, args)
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()

			opts := []weights.Option{
				weights.WithLogger(ctx.loggerFor(cmd)),
				weights.WithTimeout(time.Duration(cfg.Weights.TimeoutSeconds) * time.Second),
			}
			var bar *progressbar.ProgressBar
			if isTerminal(os.Stderr) {
				opts = append(opts, weights.WithProgress(func(written, total int64) {
					if bar == nil {
						bar = progressbar.DefaultBytes(total, "downloading "+wcfg.Filename)
					}
					_ = bar.Set64(written)
				}))
			}

			path, downloaded, err := weights.NewFetcher(opts...).Ensure(cmd.Context(), wcfg)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			size := "unknown size"
			if info, statErr := os.Stat(path); statErr == nil {
				size = humanize.Bytes(uint64(info.Size()))
			}
			if downloaded {
				fmt.Fprintf(out, "Downloaded %s (%s)\n", path, size)
			} else {
				fmt.Fprintf(out, "Already cached: %s (%s)\n", path, size)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newWeightsPathCommand(ctx *commandContext) *cobra.Command {
	var flags weightsFlags
	cmd := &cobra.Command{
		Use:   "path [module-config]",
		Short: "Print where a weights file lives in the cache and whether it is present",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wcfg, err := flags.resolve(cmd, ctx, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tcached=%s\n", wcfg.Path(), yesNo(weights.Cached(wcfg)))
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}
