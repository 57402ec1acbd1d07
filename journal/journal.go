// Package journal keeps record of sync runs in SQLite database inside the
// working directory, so it is possible to tell later what was changed and
// uploaded.
package journal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// FileName is journal database name in the working directory.
const FileName = "journal.sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id        TEXT PRIMARY KEY,
	username  TEXT NOT NULL,
	folder    TEXT NOT NULL DEFAULT '',
	sort      TEXT NOT NULL,
	dry_run   INTEGER NOT NULL,
	started   TEXT NOT NULL,
	finished  TEXT,
	status    TEXT NOT NULL DEFAULT 'running',
	processed INTEGER NOT NULL DEFAULT 0,
	changed   INTEGER NOT NULL DEFAULT 0,
	uploaded  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS entries (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	seq          INTEGER NOT NULL,
	deviation_id TEXT NOT NULL,
	title        TEXT NOT NULL,
	url          TEXT NOT NULL,
	changed      INTEGER NOT NULL,
	uploaded     INTEGER NOT NULL,
	recorded     TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Run describes single sync invocation.
type Run struct {
	ID       string
	Username string
	Folder   string
	Order    string
	DryRun   bool
	Started  time.Time
}

// Entry is outcome for one processed deviation.
type Entry struct {
	Seq         int
	DeviationID string
	Title       string
	URL         string
	Changed     bool
	Uploaded    bool
}

type Journal struct {
	conn *sqlite.Conn
	run  Run
}

// Open creates (or opens) journal database and registers new run. Run id is
// generated when empty.
func Open(path string, run Run) (*Journal, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("unable to open journal '%s': %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to prepare journal schema: %w", err), conn.Close())
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Started.IsZero() {
		run.Started = time.Now()
	}
	err = sqlitex.Execute(conn,
		`INSERT INTO runs (id, username, folder, sort, dry_run, started) VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{run.ID, run.Username, run.Folder, run.Order, run.DryRun, stamp(run.Started)}})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to register run: %w", err), conn.Close())
	}
	return &Journal{conn: conn, run: run}, nil
}

func (j *Journal) RunID() string {
	return j.run.ID
}

// Record stores entry outcome.
func (j *Journal) Record(e Entry) error {
	err := sqlitex.Execute(j.conn,
		`INSERT INTO entries (run_id, seq, deviation_id, title, url, changed, uploaded, recorded) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{j.run.ID, e.Seq, e.DeviationID, e.Title, e.URL, e.Changed, e.Uploaded, stamp(time.Now())}})
	if err != nil {
		return fmt.Errorf("unable to record entry %s: %w", e.DeviationID, err)
	}
	return nil
}

// Finish closes run with final status and counters. Status is "completed" on
// success, "failed" otherwise.
func (j *Journal) Finish(runErr error, processed, changed, uploaded int) error {
	status := "completed"
	if runErr != nil {
		status = "failed"
	}
	err := sqlitex.Execute(j.conn,
		`UPDATE runs SET finished = ?, status = ?, processed = ?, changed = ?, uploaded = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{stamp(time.Now()), status, processed, changed, uploaded, j.run.ID}})
	if err != nil {
		return fmt.Errorf("unable to finish run: %w", err)
	}
	return nil
}

// Entries returns recorded entries of the current run in processing order.
func (j *Journal) Entries() ([]Entry, error) {
	var entries []Entry
	err := sqlitex.Execute(j.conn,
		`SELECT seq, deviation_id, title, url, changed, uploaded FROM entries WHERE run_id = ? ORDER BY seq`,
		&sqlitex.ExecOptions{
			Args: []any{j.run.ID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, Entry{
					Seq:         stmt.ColumnInt(0),
					DeviationID: stmt.ColumnText(1),
					Title:       stmt.ColumnText(2),
					URL:         stmt.ColumnText(3),
					Changed:     stmt.ColumnBool(4),
					Uploaded:    stmt.ColumnBool(5),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to read entries: %w", err)
	}
	return entries, nil
}

// Status returns status and counters of the current run.
func (j *Journal) Status() (status string, processed, changed, uploaded int, err error) {
	err = sqlitex.Execute(j.conn,
		`SELECT status, processed, changed, uploaded FROM runs WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{j.run.ID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				status = stmt.ColumnText(0)
				processed, changed, uploaded = stmt.ColumnInt(1), stmt.ColumnInt(2), stmt.ColumnInt(3)
				return nil
			},
		})
	if err != nil {
		err = fmt.Errorf("unable to read run status: %w", err)
	}
	return
}

func (j *Journal) Close() error {
	if j == nil || j.conn == nil {
		return nil
	}
	err := j.conn.Close()
	j.conn = nil
	return err
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
