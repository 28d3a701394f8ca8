package locus

import (
	"bufio"
	"io"
)

// Writer writes marker blocks in .loc format.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a new .loc writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes a single marker block. Blocks are not separated.
func (lw *Writer) Write(r *Record) error {
	_, err := lw.w.WriteString(Format(r))
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (lw *Writer) Flush() error {
	return lw.w.Flush()
}
