package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = snap.Close() })
	return snap
}

func reservationsTable(rows ...[]any) Table {
	return Table{
		Name: "reservations",
		Columns: []Column{
			{Name: "month", Type: TypeText},
			{Name: "revenue", Type: TypeReal},
		},
		Rows: rows,
	}
}

func TestRebuildReplacesPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	snap := openTestSnapshot(t)

	first := []Table{
		reservationsTable([]any{"2024-01", 10.5}, []any{"2024-02", 20.0}),
		{Name: "stale", Columns: []Column{{Name: "x"}}, Rows: [][]any{{"1"}}},
	}
	if _, err := snap.Rebuild(ctx, first); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}

	counts, err := snap.Rebuild(ctx, []Table{reservationsTable([]any{"2024-03", 5})})
	if err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	if counts["reservations"] != 1 {
		t.Fatalf("expected 1 row, got %d", counts["reservations"])
	}

	infos, err := snap.Describe(ctx)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "reservations" || infos[0].Rows != 1 {
		t.Fatalf("stale data survived rebuild: %+v", infos)
	}
	if len(infos[0].Columns) != 2 || infos[0].Columns[1].Type != TypeReal {
		t.Fatalf("unexpected columns %+v", infos[0].Columns)
	}
}

func TestRebuildIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	snap := openTestSnapshot(t)

	if _, err := snap.Rebuild(ctx, []Table{reservationsTable([]any{"2024-01", 1})}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	broken := []Table{
		reservationsTable([]any{"2024-02", 2}),
		{Name: "accounts"},
	}
	if _, err := snap.Rebuild(ctx, broken); err == nil {
		t.Fatalf("expected error for table without columns")
	}

	recs, err := snap.Query(ctx, "SELECT month FROM reservations", 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected previous snapshot intact, got %d rows", len(recs))
	}
	if v, _ := recs[0].Get("month"); v != "2024-01" {
		t.Fatalf("expected previous row, got %v", v)
	}
}

func TestQueryKeepsColumnOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	snap := openTestSnapshot(t)
	if _, err := snap.Rebuild(ctx, []Table{reservationsTable(
		[]any{"2024-01", 1.0}, []any{"2024-02", 2.0}, []any{"2024-03", 3.0},
	)}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	recs, err := snap.Query(ctx, "SELECT revenue, month FROM reservations ORDER BY month;", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recs))
	}
	keys := recs[0].Keys()
	if len(keys) != 2 || keys[0] != "revenue" || keys[1] != "month" {
		t.Fatalf("column order lost: %v", keys)
	}
}

func TestQueryRejectsWrites(t *testing.T) {
	ctx := context.Background()
	snap := openTestSnapshot(t)
	if _, err := snap.Rebuild(ctx, []Table{reservationsTable([]any{"2024-01", 1})}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	cases := []string{
		"DELETE FROM reservations",
		"SELECT 1; DROP TABLE reservations",
		"",
	}
	for _, q := range cases {
		if _, err := snap.Query(ctx, q, 0); err == nil {
			t.Fatalf("expected %q to be rejected", q)
		}
	}
	if _, err := snap.Query(ctx, "DROP TABLE reservations", 0); !errors.Is(err, ErrNotReadOnly) {
		t.Fatalf("expected ErrNotReadOnly, got %v", err)
	}

	recs, err := snap.Query(ctx, "WITH r AS (SELECT * FROM reservations) SELECT COUNT(*) AS n FROM r", 0)
	if err != nil {
		t.Fatalf("CTE query: %v", err)
	}
	if n, _ := recs[0].Get("n"); n != int64(1) {
		t.Fatalf("expected count 1, got %v", n)
	}
}

func TestClearDropsEverything(t *testing.T) {
	ctx := context.Background()
	snap := openTestSnapshot(t)
	if _, err := snap.Rebuild(ctx, []Table{reservationsTable([]any{"2024-01", 1})}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if err := snap.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	infos, err := snap.Describe(ctx)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", infos)
	}
}

func TestQueryAllowsSemicolonInLiterals(t *testing.T) {
	ctx := context.Background()
	snap := openTestSnapshot(t)
	if _, err := snap.Rebuild(ctx, []Table{reservationsTable(
		[]any{"a;b", 1.0}, []any{"2024-02", 2.0},
	)}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	recs, err := snap.Query(ctx, "SELECT revenue FROM reservations WHERE month = 'a;b' -- note; here\n;", 0)
	if err != nil {
		t.Fatalf("Query with ';' in a literal: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 row, got %d", len(recs))
	}

	rejected := []string{
		"SELECT 'a;b'; DELETE FROM reservations",
		"SELECT 1 /* ; */; SELECT 2",
	}
	for _, q := range rejected {
		if _, err := snap.Query(ctx, q, 0); !errors.Is(err, ErrNotReadOnly) {
			t.Fatalf("expected %q rejected, got %v", q, err)
		}
	}
}
