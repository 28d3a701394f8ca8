package vcf

import (
	"fmt"
	"strings"
)

// Fixed VCF column positions. The meta-information header is not consulted;
// every data line is expected to follow this order.
const (
	colChrom = 0
	colPos   = 1
	colID    = 2
	colRef   = 3
	colAlt   = 4
	colInfo  = 7

	minColumns = colInfo + 1
)

// AFKey is the INFO key holding per-ALT allele frequencies.
const AFKey = "AF"

// Parse splits a data line into a Record.
// A line with fewer than 8 columns or without an AF annotation is a
// ParseError of kind ErrMalformedRecord.
func Parse(line Line) (*Record, error) {
	fields := strings.Split(line.Text, "\t")
	if len(fields) < minColumns {
		return nil, &ParseError{
			Line:    line.Number,
			Text:    line.Text,
			Kind:    ErrMalformedRecord,
			Message: fmt.Sprintf("expected at least %d columns, found %d", minColumns, len(fields)),
		}
	}

	info := parseInfo(fields[colInfo])
	af, ok := info[AFKey]
	if !ok {
		return nil, &ParseError{
			Line:    line.Number,
			Text:    line.Text,
			Kind:    ErrMalformedRecord,
			Message: "no AF annotation in INFO column",
		}
	}

	return &Record{
		Chrom: fields[colChrom],
		Pos:   fields[colPos],
		ID:    fields[colID],
		Ref:   fields[colRef],
		Alt:   strings.Split(fields[colAlt], ","),
		Info:  info,
		AF:    strings.Split(af, ","),
		Line:  line.Number,
		Text:  line.Text,
	}, nil
}

// parseInfo parses the INFO column into a map.
// Flag-type entries map to the empty string. When a key repeats, the first
// occurrence wins.
func parseInfo(info string) map[string]string {
	result := make(map[string]string)
	if info == MissingValue {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		if kv == "" {
			continue
		}
		key, value, _ := strings.Cut(kv, "=")
		if _, seen := result[key]; seen {
			continue
		}
		result[key] = value
	}

	return result
}

// MismatchPolicy decides what happens when a record carries a different
// number of ALT alleles and AF values.
type MismatchPolicy string

const (
	// MismatchReject treats the record as a FieldCountMismatch error.
	MismatchReject MismatchPolicy = "reject"
	// MismatchTruncate pairs alleles and frequencies up to the shorter list.
	MismatchTruncate MismatchPolicy = "truncate"
)

// ParseMismatchPolicy converts a policy name; the empty string selects MismatchReject.
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch MismatchPolicy(strings.ToLower(s)) {
	case "", MismatchReject:
		return MismatchReject, nil
	case MismatchTruncate:
		return MismatchTruncate, nil
	default:
		return "", fmt.Errorf("unknown mismatch policy %q (want reject or truncate)", s)
	}
}

// PairCount returns how many (allele, frequency) pairs rec yields under policy.
// mismatched reports that the ALT and AF lists differ in length; under
// MismatchReject that case is returned as a ParseError instead.
func PairCount(rec *Record, policy MismatchPolicy) (n int, mismatched bool, err error) {
	if len(rec.Alt) == len(rec.AF) {
		return len(rec.Alt), false, nil
	}

	if policy != MismatchTruncate {
		return 0, true, &ParseError{
			Line:    rec.Line,
			Text:    rec.Text,
			Kind:    ErrFieldCountMismatch,
			Message: fmt.Sprintf("%d alternate alleles but %d AF values", len(rec.Alt), len(rec.AF)),
		}
	}

	return min(len(rec.Alt), len(rec.AF)), true, nil
}
