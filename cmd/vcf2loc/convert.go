package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vcf2loc/internal/convert"
	"github.com/inodb/vcf2loc/internal/duckdb"
	"github.com/inodb/vcf2loc/internal/vcf"
)

var (
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func newConvertCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "convert [flags] [input.vcf]",
		Short: "Convert a VCF file to a Relpair .loc file",
		Long: `Convert a VCF file to a Relpair .loc file.

Every data line becomes one marker block. Alleles come from the ALT column
and frequencies from INFO/AF, paired in order. Gzip and BGZF input is read
transparently; an output path ending in .gz is written BGZF compressed.
Use '-' for stdin or stdout.

The output file is written to a temporary file and only moved into place
once every record converted, so a failed run leaves no partial output.`,
		Example: `  vcf2loc convert -i panel.vcf -o panel.loc
  vcf2loc convert panel.vcf.gz -o panel.loc --workers 4
  vcf2loc convert -i panel.vcf --mismatch truncate --on-error skip
  vcf2loc convert -i panel.vcf --catalog ~/.vcf2loc/markers.duckdb
  zcat panel.vcf.gz | vcf2loc convert -i - -o -`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"convert.output":   "output",
				"convert.mismatch": "mismatch",
				"convert.on_error": "on-error",
				"convert.workers":  "workers",
				"catalog.path":     "catalog",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if inputPath != "" {
					return &usageError{command: cmd.Name(), err: errors.New("input given both as --input and argument")}
				}
				inputPath = args[0]
			}
			if inputPath == "" {
				return &usageError{command: cmd.Name(), err: errors.New("--input is required")}
			}
			return runConvert(cmd, inputPath)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input VCF file, plain or gzipped ('-' for stdin)")
	cmd.Flags().StringP("output", "o", "output.loc", "Output .loc file ('-' for stdout)")
	cmd.Flags().String("mismatch", "reject", "ALT/AF count mismatch policy: reject or truncate")
	cmd.Flags().String("on-error", "halt", "Bad record policy: halt or skip")
	cmd.Flags().Int("workers", 1, "Number of conversion workers (output order is preserved)")
	cmd.Flags().String("catalog", "", "Record the run and its markers in this DuckDB catalog")

	return cmd
}

// bindFlags binds command flags to config keys. Binding happens when the
// command runs so commands sharing a key do not override each other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		if err := viper.BindPFlag(key, cmd.Flag(name)); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func runConvert(cmd *cobra.Command, inputPath string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	mismatch, err := vcf.ParseMismatchPolicy(viper.GetString("convert.mismatch"))
	if err != nil {
		return &usageError{command: cmd.Name(), err: err}
	}
	onError, err := convert.ParseErrorPolicy(viper.GetString("convert.on_error"))
	if err != nil {
		return &usageError{command: cmd.Name(), err: err}
	}
	outputPath := viper.GetString("convert.output")

	conv := convert.NewConverter(convert.Options{
		Mismatch: mismatch,
		OnError:  onError,
		Workers:  viper.GetInt("convert.workers"),
	})
	conv.SetLogger(logger)

	var run *duckdb.Run
	if catalogPath := viper.GetString("catalog.path"); catalogPath != "" {
		store, err := duckdb.Open(catalogPath)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer store.Close()
		logger.Debug("catalog opened", zap.String("path", store.Path()))

		fp := inputFingerprint(inputPath)
		if prev, err := store.LatestRunFor(fp); err != nil {
			logger.Warn("could not query catalog", zap.Error(err))
		} else if prev != nil && inputPath != convert.StdStream {
			logger.Info("input unchanged since an earlier run",
				zap.String("run", prev.ID),
				zap.String("output", prev.Output))
		}

		run, err = store.BeginRun(fp, outputPath)
		if err != nil {
			return fmt.Errorf("begin catalog run: %w", err)
		}
		conv.OnRecord(run.Add)
	}

	logger.Debug("converting",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("mismatch", string(mismatch)),
		zap.String("on_error", string(onError)))

	stats, err := conv.ConvertFile(cmd.Context(), afero.NewOsFs(), inputPath, outputPath)
	if err != nil {
		if run != nil {
			if aerr := run.Abort(); aerr != nil {
				logger.Warn("could not discard catalog run", zap.String("run", run.ID), zap.Error(aerr))
			}
		}
		return err
	}

	if run != nil {
		if err := run.Finish(stats); err != nil {
			return fmt.Errorf("record catalog run: %w", err)
		}
		logger.Debug("catalog run recorded", zap.String("run", run.ID))
	}

	printSummary(cmd.ErrOrStderr(), stats, outputPath)
	return nil
}

// inputFingerprint identifies the input for the catalog. Standard input
// has no stat identity.
func inputFingerprint(path string) duckdb.FileFingerprint {
	if path == convert.StdStream {
		return duckdb.FileFingerprint{Path: path}
	}
	fp, err := duckdb.StatFile(path)
	if err != nil {
		return duckdb.FileFingerprint{Path: path}
	}
	return fp
}

func printSummary(w io.Writer, stats convert.Stats, outputPath string) {
	if outputPath == convert.StdStream {
		outputPath = "stdout"
	}
	fmt.Fprintf(w, "Done! Wrote %d markers to %s\n", stats.Emitted, cyan(outputPath))
	if stats.Skipped > 0 {
		fmt.Fprintf(w, "  %s %d malformed records skipped\n", yellow("Warning:"), stats.Skipped)
	}
	if stats.Mismatched > 0 {
		fmt.Fprintf(w, "  %s %d records had more ALT alleles than AF values or the reverse\n", yellow("Warning:"), stats.Mismatched)
	}
}
