package duckdb

import (
	"fmt"
	"strings"

	"github.com/inodb/vcf2loc/internal/locus"
)

// Marker is a catalogued marker block together with its run and position.
type Marker struct {
	RunID  string
	Seq    int64
	Record *locus.Record
}

// Markers returns the markers of a run in output order.
func (s *Store) Markers(runID string) ([]Marker, error) {
	rows, err := s.db.Query(`SELECT
		run_id, seq, marker_id, chrom, allele_count, alleles, frequencies
		FROM markers
		WHERE run_id=?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	defer rows.Close()

	return scanMarkers(rows)
}

// LookupMarker finds every catalogued marker with the given ID across runs.
func (s *Store) LookupMarker(markerID string) ([]Marker, error) {
	rows, err := s.db.Query(`SELECT
		m.run_id, m.seq, m.marker_id, m.chrom, m.allele_count, m.alleles, m.frequencies
		FROM markers m
		JOIN conversion_runs r ON r.run_id = m.run_id
		WHERE m.marker_id=?
		ORDER BY r.started_at DESC, m.seq`, markerID)
	if err != nil {
		return nil, fmt.Errorf("query marker: %w", err)
	}
	defer rows.Close()

	return scanMarkers(rows)
}

// scanMarkers scans rows into Marker slices.
func scanMarkers(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Marker, error) {
	var markers []Marker
	for rows.Next() {
		var (
			m              Marker
			id, chrom      string
			count          int64
			alleles, freqs string
		)
		if err := rows.Scan(&m.RunID, &m.Seq, &id, &chrom, &count, &alleles, &freqs); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}

		rec, err := rebuild(id, chrom, count, alleles, freqs)
		if err != nil {
			return nil, err
		}
		m.Record = rec
		markers = append(markers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate markers: %w", err)
	}
	return markers, nil
}

// rebuild restores a marker block from its catalog columns.
func rebuild(id, chrom string, count int64, alleles, freqs string) (*locus.Record, error) {
	var names, values []string
	if count > 0 {
		names = strings.Split(alleles, ",")
		values = strings.Split(freqs, ",")
	}
	if int64(len(names)) != count || len(values) != len(names) {
		return nil, fmt.Errorf("marker %s: catalog holds %d alleles, %d names, %d frequencies",
			id, count, len(names), len(values))
	}

	rec := &locus.Record{
		MarkerID:   id,
		MarkerType: locus.MarkerTypeAutosome,
		Chrom:      chrom,
		Position:   locus.UnknownPosition,
		Alleles:    make([]locus.Allele, len(names)),
	}
	for i := range names {
		rec.Alleles[i] = locus.Allele{Name: names[i], Frequency: values[i]}
	}
	return rec, nil
}
