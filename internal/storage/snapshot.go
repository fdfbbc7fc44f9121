package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/itzana/itzanago/internal/storage/sqlite"
	"github.com/itzana/itzanago/models"
)

const (
	TypeText = "TEXT"
	TypeReal = "REAL"

	defaultMaxRows = 500
)

var ErrNotReadOnly = errors.New("only a single SELECT statement is allowed")

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is a fully materialised table ready to be written into the snapshot.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

type TableInfo struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Rows    int      `json:"rows"`
}

// Snapshot is the process-wide relational copy of the spreadsheets.
// Rebuilds hold the write lock for the whole drop-and-load transaction;
// readers hold the read lock, so nobody observes a half-built snapshot.
type Snapshot struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

func Open(dbPath string) (*Snapshot, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Snapshot{db: db, path: dbPath}, nil
}

func (s *Snapshot) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Snapshot) Path() string {
	return s.path
}

// Rebuild drops every existing table and writes tables in one transaction.
// It returns the number of rows written per table.
func (s *Snapshot) Rebuild(ctx context.Context, tables []Table) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := dropAll(ctx, tx); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(tables))
	for _, t := range tables {
		n, err := writeTable(ctx, tx, t)
		if err != nil {
			return nil, err
		}
		counts[t.Name] = n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rebuild: %w", err)
	}
	return counts, nil
}

// Clear drops every table in the snapshot.
func (s *Snapshot) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := dropAll(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}

func dropAll(ctx context.Context, tx *sql.Tx) error {
	names, err := tableNames(ctx, tx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlite.QuoteIdent(name)); err != nil {
			return fmt.Errorf("drop table %s: %w", name, err)
		}
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func tableNames(ctx context.Context, q queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name
`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func writeTable(ctx context.Context, tx *sql.Tx, t Table) (int, error) {
	if strings.TrimSpace(t.Name) == "" {
		return 0, fmt.Errorf("table name is required")
	}
	if len(t.Columns) == 0 {
		return 0, fmt.Errorf("table %s has no columns", t.Name)
	}

	defs := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		typ := c.Type
		if typ == "" {
			typ = TypeText
		}
		defs[i] = sqlite.QuoteIdent(c.Name) + " " + typ
		marks[i] = "?"
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", sqlite.QuoteIdent(t.Name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create table %s: %w", t.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		sqlite.QuoteIdent(t.Name), strings.Join(marks, ", ")))
	if err != nil {
		return 0, fmt.Errorf("prepare insert %s: %w", t.Name, err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for n, row := range t.Rows {
		for i := range args {
			if i < len(row) {
				args[i] = row[i]
			} else {
				args[i] = nil
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert %s row %d: %w", t.Name, n+1, err)
		}
	}
	return len(t.Rows), nil
}

// Query runs a read-only statement and returns at most maxRows records.
func (s *Snapshot) Query(ctx context.Context, query string, maxRows int) ([]models.Record, error) {
	stmt, err := readOnlyStatement(query)
	if err != nil {
		return nil, err
	}
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, fmt.Errorf("enable query_only: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "PRAGMA query_only = OFF")
	}()

	rows, err := conn.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var out []models.Record
	for rows.Next() {
		if len(out) >= maxRows {
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec := models.NewRecord()
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				rec.Set(c, string(b))
				continue
			}
			rec.Set(c, values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	return out, nil
}

func readOnlyStatement(query string) (string, error) {
	stmt := strings.TrimSpace(query)
	stmt = strings.TrimRight(stmt, "; \t\n")
	if stmt == "" {
		return "", fmt.Errorf("query is empty")
	}
	if hasStatementBreak(stmt) {
		return "", ErrNotReadOnly
	}
	head := strings.ToUpper(strings.Fields(stmt)[0])
	if head != "SELECT" && head != "WITH" {
		return "", ErrNotReadOnly
	}
	return stmt, nil
}

// hasStatementBreak reports a ';' outside quotes and comments, i.e. a
// second statement. query_only guards writes; this keeps one statement.
func hasStatementBreak(stmt string) bool {
	var quote byte
	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '[':
			quote = ']'
		case c == '-' && i+1 < len(stmt) && stmt[i+1] == '-':
			end := strings.IndexByte(stmt[i:], '\n')
			if end < 0 {
				return false
			}
			i += end
		case c == '/' && i+1 < len(stmt) && stmt[i+1] == '*':
			end := strings.Index(stmt[i+2:], "*/")
			if end < 0 {
				return false
			}
			i += end + 3
		case c == ';':
			return true
		}
	}
	return false
}

// Describe lists every table with its columns and row count.
func (s *Snapshot) Describe(ctx context.Context) ([]TableInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names, err := tableNames(ctx, s.db)
	if err != nil {
		return nil, err
	}

	infos := make([]TableInfo, 0, len(names))
	for _, name := range names {
		info := TableInfo{Name: name}

		rows, err := s.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?)", name)
		if err != nil {
			return nil, fmt.Errorf("table info %s: %w", name, err)
		}
		for rows.Next() {
			var c Column
			if err := rows.Scan(&c.Name, &c.Type); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan column: %w", err)
			}
			info.Columns = append(info.Columns, c)
		}
		rows.Close()

		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+sqlite.QuoteIdent(name)).Scan(&info.Rows); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
