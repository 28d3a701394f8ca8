package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	filetype "gopkg.in/h2non/filetype.v1"
)

// StdStream names standard input or output in place of a file path.
const StdStream = "-"

// sniffSize is the number of leading bytes used for content detection.
const sniffSize = 262

// Stdin and Stdout back StdStream; tests may replace them.
var (
	Stdin  io.Reader = os.Stdin
	Stdout io.Writer = os.Stdout
)

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var err error
	for i := len(m.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, m.closers[i].Close())
	}
	return err
}

// OpenInput opens a VCF file for reading. Gzip and BGZF input is detected by
// content and decompressed transparently. StdStream reads standard input.
func OpenInput(fs afero.Fs, path string) (io.ReadCloser, error) {
	if path == StdStream {
		return decompress(Stdin, nil)
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}
	rc, err := decompress(f, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return rc, nil
}

// decompress wraps r in a gzip reader when its content is gzip compressed.
// BGZF is a series of gzip members and reads the same way.
func decompress(r io.Reader, c io.Closer) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	rc := &multiCloser{Reader: br}
	if c != nil {
		rc.closers = append(rc.closers, c)
	}

	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read vcf header: %w", err)
	}
	if !isGzip(head) {
		return rc, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	rc.Reader = gz
	rc.closers = append(rc.closers, gz)
	return rc, nil
}

func isGzip(head []byte) bool {
	kind, err := filetype.Match(head)
	return err == nil && kind.Extension == "gz"
}

// output is a .loc destination. File output is staged in a temporary file
// next to the target and only renamed into place by Commit.
type output struct {
	fs   afero.Fs
	path string
	tmp  afero.File
	bgz  *bgzf.Writer
	w    io.Writer
}

// createOutput prepares path for writing. A ".gz" suffix selects BGZF
// compressed output.
func createOutput(fs afero.Fs, path string) (*output, error) {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temporary output: %w", err)
	}

	o := &output{fs: fs, path: path, tmp: tmp, w: tmp}
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		o.bgz = bgzf.NewWriter(tmp, 1)
		o.w = o.bgz
	}
	return o, nil
}

func (o *output) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

// Commit finishes the output and moves it to its final path.
func (o *output) Commit() error {
	var err error
	if o.bgz != nil {
		err = multierr.Append(err, o.bgz.Close())
	}
	err = multierr.Append(err, o.tmp.Close())
	if err != nil {
		o.fs.Remove(o.tmp.Name())
		return fmt.Errorf("finish output: %w", err)
	}

	if err := o.fs.Chmod(o.tmp.Name(), 0o644); err != nil {
		o.fs.Remove(o.tmp.Name())
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := o.fs.Rename(o.tmp.Name(), o.path); err != nil {
		o.fs.Remove(o.tmp.Name())
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Abort discards the staged output.
func (o *output) Abort() error {
	if o.bgz != nil {
		o.bgz.Close()
	}
	return multierr.Append(o.tmp.Close(), o.fs.Remove(o.tmp.Name()))
}

// ConvertFile converts the VCF file at inPath into a .loc file at outPath.
// The output file only appears once conversion succeeded; on error no
// partial file is left behind. StdStream as outPath writes to standard
// output, where partial output may remain on error.
func (c *Converter) ConvertFile(ctx context.Context, fs afero.Fs, inPath, outPath string) (stats Stats, err error) {
	in, err := OpenInput(fs, inPath)
	if err != nil {
		return stats, err
	}
	defer func() {
		err = multierr.Append(err, in.Close())
	}()

	if outPath == StdStream {
		return c.Run(ctx, in, Stdout)
	}

	out, err := createOutput(fs, outPath)
	if err != nil {
		return stats, err
	}

	stats, err = c.Run(ctx, in, out)
	if err != nil {
		return stats, multierr.Append(err, out.Abort())
	}
	return stats, out.Commit()
}
