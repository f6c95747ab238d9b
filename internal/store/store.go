// Package store persists the resolved step/allocation model in SQLite.
//
// The store owns project identity, primary keys and upsert semantics; the
// pipeline core never sees a database-visible identifier. step_id values
// continue across runs of the same project so re-ingests append rather
// than collide; relative_step restarts per run by design.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jobdeck/jobdeck/internal/fault"
	"github.com/jobdeck/jobdeck/internal/model"
)

// Store handles all SQLite operations for the step/allocation schema.
type Store struct {
	db *sql.DB
}

// RunStats summarizes a run's diagnostics for the audit trail.
type RunStats struct {
	ParseErrors       int
	UnresolvedSymbols int
}

// RunRecord describes one persisted ingest run.
type RunRecord struct {
	RunID     string
	Project   string
	Member    string
	Steps     int
	StartedAt time.Time
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fault.Wrap(fault.CodeStoreFailure, err, "open database %s", path)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema if it does not exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		project_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		project_name TEXT NOT NULL UNIQUE,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS steps (
		project_id     INTEGER NOT NULL REFERENCES projects(project_id),
		step_id        INTEGER NOT NULL,
		relative_step  TEXT NOT NULL,
		step_name      TEXT,
		proc_step_name TEXT,
		program_name   TEXT,
		proc_name      TEXT,
		parameters     TEXT,
		cond_logic     TEXT,
		PRIMARY KEY (project_id, step_id)
	);
	CREATE TABLE IF NOT EXISTS data_allocations (
		project_id         INTEGER NOT NULL,
		step_id            INTEGER NOT NULL,
		ds_id              INTEGER NOT NULL,
		dd_name            TEXT NOT NULL,
		allocation_offset  INTEGER NOT NULL DEFAULT 1,
		dsn                TEXT,
		disp_status        TEXT,
		disp_normal_term   TEXT,
		disp_abnormal_term TEXT,
		unit               TEXT,
		vol_ser            TEXT,
		is_dummy           INTEGER NOT NULL DEFAULT 0,
		instream_ref       TEXT,
		lrecl              TEXT,
		blksize            TEXT,
		recfm              TEXT,
		dcb_attributes     TEXT,
		PRIMARY KEY (project_id, step_id, ds_id),
		FOREIGN KEY (project_id, step_id) REFERENCES steps(project_id, step_id)
	);
	CREATE TABLE IF NOT EXISTS ingest_runs (
		run_id             TEXT PRIMARY KEY,
		project_id         INTEGER NOT NULL REFERENCES projects(project_id),
		member             TEXT NOT NULL,
		started_at         DATETIME NOT NULL,
		steps              INTEGER NOT NULL,
		parse_errors       INTEGER NOT NULL,
		unresolved_symbols INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_steps_project ON steps(project_id);
	CREATE INDEX IF NOT EXISTS idx_dd_step ON data_allocations(project_id, step_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fault.Wrap(fault.CodeStoreFailure, err, "apply schema")
	}
	return nil
}

// Reset drops all tables. Used when the configuration asks for a clean
// re-ingest.
func (s *Store) Reset() error {
	drop := `
	DROP TABLE IF EXISTS ingest_runs;
	DROP TABLE IF EXISTS data_allocations;
	DROP TABLE IF EXISTS steps;
	DROP TABLE IF EXISTS projects;
	`
	if _, err := s.db.Exec(drop); err != nil {
		return fault.Wrap(fault.CodeStoreFailure, err, "drop tables")
	}
	return s.migrate()
}

// SaveRun persists one complete run transactionally: the project row is
// upserted, step_id continues from the project's current maximum, and an
// audit row records the run.
func (s *Store) SaveRun(ctx context.Context, project, memberName string, steps []model.Step, stats RunStats) (*RunRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fault.Wrap(fault.CodeStoreFailure, err, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	projectID, err := upsertProject(ctx, tx, project)
	if err != nil {
		return nil, err
	}

	var base int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(step_id), 0) FROM steps WHERE project_id = ?`,
		projectID).Scan(&base); err != nil {
		return nil, fault.Wrap(fault.CodeStoreFailure, err, "read step sequence")
	}

	for _, step := range steps {
		stepID := base + step.StepID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO steps (project_id, step_id, relative_step, step_name,
				proc_step_name, program_name, proc_name, parameters, cond_logic)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			projectID, stepID, step.RelativeStep,
			nullable(step.StepName), nullable(step.ProcStepName),
			nullable(step.ProgramName), nullable(step.ProcName),
			nullable(step.Parameters), nullable(step.CondLogic),
		); err != nil {
			return nil, fault.Wrap(fault.CodeStoreFailure, err, "insert step %s", step.RelativeStep)
		}

		for dsID, alloc := range step.Allocations {
			attrs, err := json.Marshal(alloc.DCBAttributes)
			if err != nil {
				return nil, fault.Wrap(fault.CodeStoreFailure, err, "encode dcb attributes")
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO data_allocations (project_id, step_id, ds_id, dd_name,
					allocation_offset, dsn, disp_status, disp_normal_term,
					disp_abnormal_term, unit, vol_ser, is_dummy, instream_ref,
					lrecl, blksize, recfm, dcb_attributes)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				projectID, stepID, dsID+1, alloc.DDName,
				alloc.AllocationOffset, alloc.DSN, alloc.DispStatus, alloc.DispNormal,
				alloc.DispAbnormal, nullable(alloc.Unit), nullable(alloc.VolSer),
				alloc.IsDummy, nullable(alloc.InstreamRef),
				nullable(alloc.LRECL), nullable(alloc.BLKSIZE), nullable(alloc.RECFM),
				string(attrs),
			); err != nil {
				return nil, fault.Wrap(fault.CodeStoreFailure, err, "insert allocation %s/%d",
					alloc.DDName, alloc.AllocationOffset)
			}
		}
	}

	run := &RunRecord{
		RunID:     uuid.NewString(),
		Project:   project,
		Member:    memberName,
		Steps:     len(steps),
		StartedAt: time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ingest_runs (run_id, project_id, member, started_at,
			steps, parse_errors, unresolved_symbols)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, projectID, memberName, run.StartedAt,
		run.Steps, stats.ParseErrors, stats.UnresolvedSymbols,
	); err != nil {
		return nil, fault.Wrap(fault.CodeStoreFailure, err, "insert run record")
	}

	if err := tx.Commit(); err != nil {
		return nil, fault.Wrap(fault.CodeStoreFailure, err, "commit")
	}
	return run, nil
}

// upsertProject returns the project's id, creating the row when absent.
func upsertProject(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (project_name) VALUES (?) ON CONFLICT (project_name) DO NOTHING`,
		name); err != nil {
		return 0, fault.Wrap(fault.CodeStoreFailure, err, "upsert project %s", name)
	}
	var id int64
	if err := tx.QueryRowContext(ctx,
		`SELECT project_id FROM projects WHERE project_name = ?`, name).Scan(&id); err != nil {
		return 0, fault.Wrap(fault.CodeStoreFailure, err, "resolve project %s", name)
	}
	return id, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
