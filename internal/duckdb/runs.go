package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/multierr"

	"github.com/inodb/vcf2loc/internal/convert"
	"github.com/inodb/vcf2loc/internal/locus"
)

// Run records one conversion. Markers are streamed into the catalog with
// the DuckDB Appender as they are emitted; the run row itself is written
// by Finish.
type Run struct {
	ID        string
	Input     FileFingerprint
	Output    string
	StartedAt time.Time

	store    *Store
	conn     *sql.Conn
	appender *goduckdb.Appender
	seq      int64
}

// BeginRun starts recording a conversion of input into output.
func (s *Store) BeginRun(input FileFingerprint, output string) (*Run, error) {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "markers")
		return err
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create appender: %w", err)
	}

	return &Run{
		ID:        uuid.NewString(),
		Input:     input,
		Output:    output,
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
		store:     s,
		conn:      conn,
		appender:  appender,
	}, nil
}

// Add appends one emitted marker block to the run.
func (r *Run) Add(rec *locus.Record) error {
	names := make([]string, len(rec.Alleles))
	freqs := make([]string, len(rec.Alleles))
	for i, a := range rec.Alleles {
		names[i] = a.Name
		freqs[i] = a.Frequency
	}

	if err := r.appender.AppendRow(
		r.ID, r.seq, rec.MarkerID, rec.Chrom, int64(rec.AlleleCount()),
		strings.Join(names, ","), strings.Join(freqs, ","),
	); err != nil {
		return fmt.Errorf("append marker: %w", err)
	}
	r.seq++
	return nil
}

// release flushes pending markers and returns the connection to the pool.
func (r *Run) release() error {
	err := r.appender.Close()
	return multierr.Append(err, r.conn.Close())
}

// Finish flushes the run's markers and records the run with its statistics.
func (r *Run) Finish(stats convert.Stats) error {
	if err := r.release(); err != nil {
		return fmt.Errorf("flush markers: %w", err)
	}

	_, err := r.store.db.Exec(`INSERT INTO conversion_runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Input.Path, r.Input.Size, r.Input.ModTime, r.Output,
		r.StartedAt, time.Now().UTC().Truncate(time.Microsecond),
		int64(stats.DataLines), int64(stats.MetadataLines), int64(stats.Emitted),
		int64(stats.Skipped), int64(stats.Mismatched))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Abort discards a failed run, including markers already flushed.
func (r *Run) Abort() error {
	err := r.release()
	if _, derr := r.store.db.Exec("DELETE FROM markers WHERE run_id=?", r.ID); derr != nil {
		err = multierr.Append(err, fmt.Errorf("delete markers: %w", derr))
	}
	return err
}

// RunInfo describes a recorded conversion run.
type RunInfo struct {
	ID         string
	Input      FileFingerprint
	Output     string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      convert.Stats
}

const runColumns = `run_id, input_path, input_size, input_mtime, output_path,
	started_at, finished_at, data_lines, metadata_lines, emitted, skipped, mismatched`

// Runs lists recorded runs, newest first.
func (s *Store) Runs() ([]RunInfo, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + `
		FROM conversion_runs
		ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		ri, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, ri)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRunFor returns the newest run whose input matches fp, or nil.
func (s *Store) LatestRunFor(fp FileFingerprint) (*RunInfo, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+`
		FROM conversion_runs
		WHERE input_path=?
		ORDER BY started_at DESC`, fp.Path)
	if err != nil {
		return nil, fmt.Errorf("query runs for %s: %w", fp.Path, err)
	}
	defer rows.Close()

	for rows.Next() {
		ri, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if ri.Input.Matches(fp) {
			return &ri, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return nil, nil
}

func scanRun(row interface{ Scan(dest ...any) error }) (RunInfo, error) {
	var ri RunInfo
	var dataLines, metadataLines, emitted, skipped, mismatched int64
	if err := row.Scan(
		&ri.ID, &ri.Input.Path, &ri.Input.Size, &ri.Input.ModTime, &ri.Output,
		&ri.StartedAt, &ri.FinishedAt,
		&dataLines, &metadataLines, &emitted, &skipped, &mismatched,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunInfo{}, err
		}
		return RunInfo{}, fmt.Errorf("scan run: %w", err)
	}
	ri.Stats = convert.Stats{
		DataLines:     int(dataLines),
		MetadataLines: int(metadataLines),
		Emitted:       int(emitted),
		Skipped:       int(skipped),
		Mismatched:    int(mismatched),
	}
	return ri, nil
}
