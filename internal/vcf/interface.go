package vcf

// LineSource is the interface for readers that yield VCF data lines.
type LineSource interface {
	// Next reads the next data line.
	// Returns io.EOF when there are no more lines.
	Next() (Line, error)

	// LineNumber returns the current line number being processed.
	LineNumber() int
}
