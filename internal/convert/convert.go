// Package convert turns a VCF stream into a Relpair .loc stream.
package convert

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vcf2loc/internal/locus"
	"github.com/inodb/vcf2loc/internal/vcf"
)

// ErrorPolicy decides what happens after a record fails to convert.
type ErrorPolicy string

const (
	// Halt stops at the first bad record and returns its error.
	Halt ErrorPolicy = "halt"
	// Skip logs the bad record, counts it and continues.
	Skip ErrorPolicy = "skip"
)

// ParseErrorPolicy converts a policy name; the empty string selects Halt.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(strings.ToLower(s)) {
	case "", Halt:
		return Halt, nil
	case Skip:
		return Skip, nil
	default:
		return "", fmt.Errorf("unknown error policy %q (want halt or skip)", s)
	}
}

// Options configures a Converter.
type Options struct {
	Mismatch vcf.MismatchPolicy
	OnError  ErrorPolicy
	// Workers > 1 converts records on a worker pool. Output order and
	// bytes are the same as the sequential path.
	Workers int
}

// Stats summarizes a conversion run.
type Stats struct {
	DataLines     int // data lines read
	MetadataLines int // metadata lines discarded
	Emitted       int // marker blocks written
	Skipped       int // records dropped under the Skip policy
	Mismatched    int // records emitted with ALT/AF length differences
}

// Converter reads VCF data lines and writes marker blocks.
type Converter struct {
	opts     Options
	onRecord func(*locus.Record) error
	logger   *zap.Logger
}

// NewConverter creates a new converter with the given options.
func NewConverter(opts Options) *Converter {
	if opts.Mismatch == "" {
		opts.Mismatch = vcf.MismatchReject
	}
	if opts.OnError == "" {
		opts.OnError = Halt
	}
	return &Converter{
		opts:   opts,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (c *Converter) SetLogger(l *zap.Logger) {
	c.logger = l
}

// OnRecord registers fn to be called with each marker block after it is
// written. An error from fn stops the conversion.
func (c *Converter) OnRecord(fn func(*locus.Record) error) {
	c.onRecord = fn
}

// result is the outcome of converting one data line.
type result struct {
	Seq        int
	Line       vcf.Line
	Record     *locus.Record
	Mismatched bool
	Err        error
}

// convertLine parses a data line and builds its marker block.
func (c *Converter) convertLine(line vcf.Line) result {
	rec, err := vcf.Parse(line)
	if err != nil {
		return result{Line: line, Err: err}
	}
	lr, mismatched, err := locus.FromVariant(rec, c.opts.Mismatch)
	return result{Line: line, Record: lr, Mismatched: mismatched, Err: err}
}

// Run converts every data line of r and writes marker blocks to w in
// source order. On error, w holds the blocks of all records before the
// failing one.
func (c *Converter) Run(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	src := vcf.NewReader(r)
	out := locus.NewWriter(w)

	var stats Stats
	handle := func(res result) error {
		stats.DataLines++
		if res.Err != nil {
			if c.opts.OnError != Skip {
				return res.Err
			}
			c.logger.Warn("skipping record",
				zap.Int("line", res.Line.Number),
				zap.Error(res.Err))
			stats.Skipped++
			return nil
		}

		if res.Mismatched {
			c.logger.Warn("allele and frequency counts differ, pairing up to the shorter list",
				zap.Int("line", res.Line.Number),
				zap.String("marker", res.Record.MarkerID),
				zap.Int("alleles", res.Record.AlleleCount()))
			stats.Mismatched++
		}

		if err := out.Write(res.Record); err != nil {
			return fmt.Errorf("write marker %s: %w", res.Record.MarkerID, err)
		}
		stats.Emitted++

		if c.onRecord != nil {
			if err := c.onRecord(res.Record); err != nil {
				return fmt.Errorf("record hook for marker %s: %w", res.Record.MarkerID, err)
			}
		}
		return nil
	}

	var err error
	if c.opts.Workers > 1 {
		err = c.runParallel(ctx, src, handle)
	} else {
		err = c.runSequential(ctx, src, handle)
	}
	stats.MetadataLines = src.MetadataLines()

	if ferr := out.Flush(); err == nil && ferr != nil {
		err = fmt.Errorf("flush output: %w", ferr)
	}
	if err != nil {
		return stats, err
	}

	if stats.Emitted == 0 {
		c.logger.Info("0 markers written")
	}
	c.logger.Debug("conversion finished",
		zap.Int("data_lines", stats.DataLines),
		zap.Int("metadata_lines", stats.MetadataLines),
		zap.Int("emitted", stats.Emitted),
		zap.Int("skipped", stats.Skipped),
		zap.Int("mismatched", stats.Mismatched))

	return stats, nil
}

// runSequential converts one line at a time.
func (c *Converter) runSequential(ctx context.Context, src vcf.LineSource, handle func(result) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return readError(src, err)
		}
		if err := handle(c.convertLine(line)); err != nil {
			return err
		}
	}
}

// readError reports where reading stopped.
func readError(src vcf.LineSource, err error) error {
	return fmt.Errorf("read input after line %d: %w", src.LineNumber(), err)
}
