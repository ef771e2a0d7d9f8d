// Package catalog keeps the bookkeeping of built geometries and recorded
// runs in a SQL database (MySQL, PostgreSQL or SQLite).
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	sqlx "github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/next-exp/g4me_go/pkg/geometry"
)

var ErrNotFound = errors.New("catalog entry not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS geometries (
		id VARCHAR(36) PRIMARY KEY,
		pvid_map_file VARCHAR(255) NOT NULL,
		created BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS volumes (
		geometry_id VARCHAR(36) NOT NULL,
		copy_number INTEGER NOT NULL,
		name VARCHAR(255) NOT NULL,
		PRIMARY KEY (geometry_id, copy_number)
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR(36) PRIMARY KEY,
		run_number INTEGER NOT NULL,
		geometry_id VARCHAR(36) NOT NULL,
		file VARCHAR(255) NOT NULL,
		format VARCHAR(16) NOT NULL,
		events INTEGER NOT NULL DEFAULT 0,
		started BIGINT NOT NULL,
		finished BIGINT
	)`,
}

// Geometry is one built setup. Times are unix milliseconds.
type Geometry struct {
	ID          string `db:"id"`
	PVIDMapFile string `db:"pvid_map_file"`
	Created     int64  `db:"created"`
}

type Volume struct {
	GeometryID string `db:"geometry_id"`
	CopyNumber int    `db:"copy_number"`
	Name       string `db:"name"`
}

type Run struct {
	ID         string        `db:"id"`
	RunNumber  int           `db:"run_number"`
	GeometryID string        `db:"geometry_id"`
	File       string        `db:"file"`
	Format     string        `db:"format"`
	Events     int           `db:"events"`
	Started    int64         `db:"started"`
	Finished   sql.NullInt64 `db:"finished"`
}

func (r Run) StartedAt() time.Time {
	return time.UnixMilli(r.Started).UTC()
}

// FinishedAt returns the end time of the run, false while it is open.
func (r Run) FinishedAt() (time.Time, bool) {
	if !r.Finished.Valid {
		return time.Time{}, false
	}
	return time.UnixMilli(r.Finished.Int64).UTC(), true
}

type Catalog struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects with one of the registered drivers ("mysql", "pgx",
// "sqlite") and creates the tables if needed.
func Open(ctx context.Context, driver string, dsn string) (*Catalog, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s catalog: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	c := &Catalog{db: db, now: time.Now}
	if err := c.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func ConnectToDatabase(ctx context.Context, user string, pass string, host string, dbname string) (*Catalog, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	return Open(ctx, "mysql", dbURI)
}

func ConnectToPostgres(ctx context.Context, url string) (*Catalog, error) {
	return Open(ctx, "pgx", url)
}

func OpenSQLite(ctx context.Context, path string) (*Catalog, error) {
	return Open(ctx, "sqlite", path+"?_pragma=busy_timeout(5000)")
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error creating catalog schema: %w", err)
		}
	}
	return nil
}

// RecordGeometry stores the PVID map of a freshly built geometry and returns
// its id.
func (c *Catalog) RecordGeometry(ctx context.Context, pvidMapFile string, entries []geometry.PVIDEntry) (string, error) {
	id := uuid.NewString()
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	insertGeometry := tx.Rebind("INSERT INTO geometries (id, pvid_map_file, created) VALUES (?, ?, ?)")
	if _, err := tx.ExecContext(ctx, insertGeometry, id, pvidMapFile, c.now().UnixMilli()); err != nil {
		return "", fmt.Errorf("error inserting geometry: %w", err)
	}
	insertVolume := tx.Rebind("INSERT INTO volumes (geometry_id, copy_number, name) VALUES (?, ?, ?)")
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, insertVolume, id, e.CopyNumber, e.Name); err != nil {
			return "", fmt.Errorf("error inserting volume %d %s: %w", e.CopyNumber, e.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// StartRun registers an open run and returns its id.
func (c *Catalog) StartRun(ctx context.Context, runNumber int, geometryID string, file string, format string) (string, error) {
	id := uuid.NewString()
	query := c.db.Rebind("INSERT INTO runs (id, run_number, geometry_id, file, format, events, started) VALUES (?, ?, ?, ?, ?, 0, ?)")
	if _, err := c.db.ExecContext(ctx, query, id, runNumber, geometryID, file, format, c.now().UnixMilli()); err != nil {
		return "", fmt.Errorf("error inserting run %d: %w", runNumber, err)
	}
	return id, nil
}

func (c *Catalog) FinishRun(ctx context.Context, runID string, events int) error {
	query := c.db.Rebind("UPDATE runs SET events = ?, finished = ? WHERE id = ?")
	res, err := c.db.ExecContext(ctx, query, events, c.now().UnixMilli(), runID)
	if err != nil {
		return fmt.Errorf("error finishing run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}
	return nil
}

func (c *Catalog) Run(ctx context.Context, id string) (Run, error) {
	var r Run
	query := c.db.Rebind("SELECT id, run_number, geometry_id, file, format, events, started, finished FROM runs WHERE id = ?")
	if err := c.db.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, fmt.Errorf("%w: run %s", ErrNotFound, id)
		}
		return r, err
	}
	return r, nil
}

// Runs lists every run with the given run number, oldest first.
func (c *Catalog) Runs(ctx context.Context, runNumber int) ([]Run, error) {
	var runs []Run
	query := c.db.Rebind("SELECT id, run_number, geometry_id, file, format, events, started, finished FROM runs WHERE run_number = ? ORDER BY started, id")
	if err := c.db.SelectContext(ctx, &runs, query, runNumber); err != nil {
		return nil, err
	}
	return runs, nil
}

func (c *Catalog) Geometry(ctx context.Context, id string) (Geometry, error) {
	var g Geometry
	query := c.db.Rebind("SELECT id, pvid_map_file, created FROM geometries WHERE id = ?")
	if err := c.db.GetContext(ctx, &g, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, fmt.Errorf("%w: geometry %s", ErrNotFound, id)
		}
		return g, err
	}
	return g, nil
}

// Volumes returns the PVID map of a geometry ordered by copy number.
func (c *Catalog) Volumes(ctx context.Context, geometryID string) ([]geometry.PVIDEntry, error) {
	query := c.db.Rebind("SELECT geometry_id, copy_number, name FROM volumes WHERE geometry_id = ? ORDER BY copy_number")
	rows, err := c.db.QueryxContext(ctx, query, geometryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []geometry.PVIDEntry
	for rows.Next() {
		var v Volume
		if err := rows.StructScan(&v); err != nil {
			return nil, err
		}
		entries = append(entries, geometry.PVIDEntry{CopyNumber: v.CopyNumber, Name: v.Name})
	}
	return entries, rows.Err()
}
