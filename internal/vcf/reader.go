package vcf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// MetadataPrefix starts every meta-information and header line.
const MetadataPrefix = "#"

// maxLineSize bounds a single VCF line; INFO blocks can be long.
const maxLineSize = 10 * 1024 * 1024

// Line is a VCF data line together with its 1-based position in the source.
type Line struct {
	Number int
	Text   string
}

// Reader yields the data lines of a VCF stream in source order, dropping
// meta-information and header lines. The header is not validated; column
// positions are fixed by Parse.
type Reader struct {
	scanner    *bufio.Scanner
	lineNumber int
	metadata   int
}

// NewReader creates a Reader over r. The stream is consumed once.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the next data line, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Line, error) {
	for r.scanner.Scan() {
		r.lineNumber++
		text := strings.TrimRight(r.scanner.Text(), "\r\n")

		if strings.HasPrefix(text, MetadataPrefix) {
			r.metadata++
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue // Skip blank lines
		}
		return Line{Number: r.lineNumber, Text: text}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Line{}, fmt.Errorf("read vcf: %w", err)
	}
	return Line{}, io.EOF
}

// LineNumber returns the number of the last line read, metadata included.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// MetadataLines returns how many metadata lines have been discarded so far.
func (r *Reader) MetadataLines() int {
	return r.metadata
}
