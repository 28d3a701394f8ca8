// Package vcf provides VCF file parsing functionality.
package vcf

// MissingValue is the VCF placeholder for an absent column value.
const MissingValue = "."

// Record represents a single VCF data line, split into the fixed columns
// that locus conversion consumes.
type Record struct {
	Chrom string            // Chromosome name (e.g., "12", "chr12")
	Pos   string            // POS column, kept verbatim
	ID    string            // Variant identifier (e.g., rs ID)
	Ref   string            // Reference allele
	Alt   []string          // Alternate alleles in source order
	Info  map[string]string // INFO key/value pairs; flags map to ""
	AF    []string          // INFO/AF values in source order
	Line  int               // 1-based line number in the source
	Text  string            // Source line as read
}

// MarkerID returns the variant identifier. When the ID column holds the
// missing placeholder, a <chrom>_<pos> identifier is synthesized instead.
func (r *Record) MarkerID() string {
	if r.ID == "" || r.ID == MissingValue {
		return r.Chrom + "_" + r.Pos
	}
	return r.ID
}
