// Package locus builds Relpair marker records (.loc format) from VCF records.
package locus

import (
	"strconv"
	"strings"

	"github.com/inodb/vcf2loc/internal/vcf"
)

// Placeholders for header fields VCF does not carry.
const (
	// MarkerTypeAutosome is written for every marker. VCF has no
	// linkage-type column, so X-linked markers cannot be told apart.
	MarkerTypeAutosome = "AUTOSOME"

	// UnknownPosition stands in for the genetic position in Morgans.
	// Physical-to-genetic distance conversion is not performed.
	UnknownPosition = "0.00"
)

// Allele is one allele line of a marker block.
type Allele struct {
	Name      string
	Frequency string // verbatim from INFO/AF
}

// Record is a single marker block: one header line and its allele lines.
type Record struct {
	MarkerID   string
	MarkerType string
	Chrom      string
	Position   string
	Alleles    []Allele
}

// AlleleCount returns the number of allele lines in the block.
func (r *Record) AlleleCount() int {
	return len(r.Alleles)
}

// FromVariant converts a parsed VCF record into a marker block.
// Alleles keep ALT order and are paired positionally with AF values.
// mismatched reports a tolerated ALT/AF length difference under
// vcf.MismatchTruncate; under vcf.MismatchReject it is an error.
func FromVariant(rec *vcf.Record, policy vcf.MismatchPolicy) (lr *Record, mismatched bool, err error) {
	n, mismatched, err := vcf.PairCount(rec, policy)
	if err != nil {
		return nil, mismatched, err
	}

	alleles := make([]Allele, n)
	for i := range n {
		alleles[i] = Allele{Name: rec.Alt[i], Frequency: rec.AF[i]}
	}

	return &Record{
		MarkerID:   rec.MarkerID(),
		MarkerType: MarkerTypeAutosome,
		Chrom:      rec.Chrom,
		Position:   UnknownPosition,
		Alleles:    alleles,
	}, mismatched, nil
}

// Header returns the header line without the trailing newline.
func (r *Record) Header() string {
	return strings.Join([]string{
		r.MarkerID,
		r.MarkerType,
		strconv.Itoa(r.AlleleCount()),
		r.Chrom,
		r.Position,
	}, " ")
}

// Format renders the whole block, each line newline-terminated.
func Format(r *Record) string {
	var sb strings.Builder
	sb.WriteString(r.Header())
	sb.WriteByte('\n')
	for _, a := range r.Alleles {
		sb.WriteString(a.Name)
		sb.WriteByte(' ')
		sb.WriteString(a.Frequency)
		sb.WriteByte('\n')
	}
	return sb.String()
}
