package record

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/sensorfusion/internal/linalg"
	"github.com/banshee-data/sensorfusion/internal/timeutil"
)

// ErrRunNotFound is returned for operations on an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunMeta describes one stored run.
type RunMeta struct {
	ID               string
	CreatedAt        time.Time
	Source           string // "sim", "replay" or "serial"
	TimeStep         float64
	ProcessNoise     float64
	MeasurementNoise float64
	Seed             uint64

	// Filled by FinishRun; RMSPosition is NaN until then.
	RMSPosition     float64
	RejectedUpdates int
}

// Store persists runs and their records in SQLite.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens (or creates) the database at path. Call Migrate before use.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Store{db: db, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock used to stamp new runs.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// CreateRun inserts a run and returns its ID. A fresh UUID is assigned when
// meta.ID is empty, and CreatedAt defaults to the store clock.
func (s *Store) CreateRun(meta RunMeta) (string, error) {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.clock.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, created_at_ns, source, time_step, process_noise, measurement_noise, seed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.CreatedAt.UnixNano(), meta.Source, meta.TimeStep,
		meta.ProcessNoise, meta.MeasurementNoise, int64(meta.Seed),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return meta.ID, nil
}

// FinishRun stores the run's summary error and rejected-update count.
func (s *Store) FinishRun(runID string, sum Summary, rejected int) error {
	res, err := s.db.Exec(`UPDATE runs SET rms_position_error = ?, rejected_updates = ? WHERE run_id = ?`,
		sum.RMSPosition, rejected, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// InsertRecords appends recs to a run in a single transaction. Sequence
// numbers continue from any records already stored for the run.
func (s *Store) InsertRecords(runID string, recs []Record) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var exists bool
	if err = tx.QueryRow(`SELECT COUNT(*) > 0 FROM runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
		return fmt.Errorf("lookup run: %w", err)
	}
	if !exists {
		return fmt.Errorf("insert records for %s: %w", runID, ErrRunNotFound)
	}

	var next int64
	if err = tx.QueryRow(`SELECT COALESCE(MAX(seq) + 1, 0) FROM records WHERE run_id = ?`, runID).Scan(&next); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO records (run_id, seq, t, truth_x, truth_y, truth_vx, truth_vy,
			gps_x, gps_y, fused_x, fused_y, fused_vx, fused_vy, covariance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range recs {
		cov, merr := json.Marshal(r.Covariance)
		if merr != nil {
			err = fmt.Errorf("record %d covariance: %w", i, merr)
			return err
		}
		var gx, gy sql.NullFloat64
		if r.HasGPS {
			gx = sql.NullFloat64{Float64: r.GPS.X, Valid: true}
			gy = sql.NullFloat64{Float64: r.GPS.Y, Valid: true}
		}
		if _, err = stmt.Exec(runID, next+int64(i), r.Time,
			r.Truth.X, r.Truth.Y, r.TruthVel.X, r.TruthVel.Y,
			gx, gy,
			r.Fused.X, r.Fused.Y, r.FusedVel.X, r.FusedVel.Y,
			string(cov),
		); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Records returns a run's records in insertion order.
func (s *Store) Records(runID string) ([]Record, error) {
	if _, err := s.Run(runID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT t, truth_x, truth_y, truth_vx, truth_vy, gps_x, gps_y,
			fused_x, fused_y, fused_vx, fused_vy, covariance
		FROM records WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r      Record
			gx, gy sql.NullFloat64
			cov    string
		)
		if err := rows.Scan(&r.Time, &r.Truth.X, &r.Truth.Y, &r.TruthVel.X, &r.TruthVel.Y,
			&gx, &gy, &r.Fused.X, &r.Fused.Y, &r.FusedVel.X, &r.FusedVel.Y, &cov); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if gx.Valid && gy.Valid {
			r.HasGPS = true
			r.GPS = linalg.Vec2{X: gx.Float64, Y: gy.Float64}
		}
		if err := json.Unmarshal([]byte(cov), &r.Covariance); err != nil {
			return nil, fmt.Errorf("decode covariance: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run returns the metadata for a single run.
func (s *Store) Run(runID string) (RunMeta, error) {
	row := s.db.QueryRow(runSelect+` WHERE run_id = ?`, runID)
	meta, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunMeta{}, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return meta, err
}

// Runs lists stored runs, newest first.
func (s *Store) Runs() ([]RunMeta, error) {
	rows, err := s.db.Query(runSelect + ` ORDER BY created_at_ns DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunMeta
	for rows.Next() {
		meta, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

const runSelect = `
	SELECT run_id, created_at_ns, source, time_step, process_noise, measurement_noise,
		seed, rms_position_error, rejected_updates
	FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunMeta, error) {
	var (
		m       RunMeta
		created int64
		seed    int64
		rmsPos  sql.NullFloat64
	)
	if err := row.Scan(&m.ID, &created, &m.Source, &m.TimeStep, &m.ProcessNoise,
		&m.MeasurementNoise, &seed, &rmsPos, &m.RejectedUpdates); err != nil {
		return RunMeta{}, err
	}
	m.CreatedAt = time.Unix(0, created).UTC()
	m.Seed = uint64(seed)
	m.RMSPosition = math.NaN()
	if rmsPos.Valid {
		m.RMSPosition = rmsPos.Float64
	}
	return m, nil
}
