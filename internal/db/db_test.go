package db

import (
	"path/filepath"
	"testing"
)

func TestDialectFromURL(t *testing.T) {
	cases := map[string]Dialect{
		"":                                 SQLite,
		"postgres://u:p@localhost/wizline": Postgres,
		"POSTGRESQL://localhost/wizline":   Postgres,
		"file:/tmp/other.db":               SQLite,
	}
	for url, want := range cases {
		if got := (Config{URL: url}).Dialect(); got != want {
			t.Fatalf("%q: got %s want %s", url, got, want)
		}
	}
}

func TestRebind(t *testing.T) {
	q := `UPDATE answers SET values_json=? WHERE project_id=? AND config_item_id=?`
	if got := SQLite.Rebind(q); got != q {
		t.Fatalf("sqlite rebind changed query: %s", got)
	}
	want := `UPDATE answers SET values_json=$1 WHERE project_id=$2 AND config_item_id=$3`
	if got := Postgres.Rebind(q); got != want {
		t.Fatalf("postgres rebind: %s", got)
	}
}

func TestOpenCreatesWorkspace(t *testing.T) {
	dir := t.TempDir()
	conn, err := Open(Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := conn.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if Path(dir) != filepath.Join(dir, ".wizline", "wizline.db") {
		t.Fatalf("unexpected path %s", Path(dir))
	}
}
