package results

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateAppliesInOrderAndStopsOnError(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	fsys := fstest.MapFS{
		"002_b.sql": {Data: []byte(`INSERT INTO t (v) VALUES ('b');`)},
		"001_a.sql": {Data: []byte(`CREATE TABLE t (v TEXT);`)},
		"003_x.sql": {Data: []byte(`INSERT INTO missing VALUES (1);`)},
		"notes.md":  {Data: []byte(`ignored`)},
	}
	applied, err := Migrate(ctx, db, fsys)
	if err == nil {
		t.Fatal("broken script: want error")
	}
	if want := []string{"001_a.sql", "002_b.sql"}; !reflect.DeepEqual(applied, want) {
		t.Errorf("applied = %v; want %v", applied, want)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM _migrations WHERE name = '003_x.sql'`).Scan(&n); err != nil || n != 0 {
		t.Errorf("failed script recorded: n=%d err=%v", n, err)
	}

	fsys["003_x.sql"] = &fstest.MapFile{Data: []byte(`INSERT INTO t (v) VALUES ('c');`)}
	applied, err = Migrate(ctx, db, fsys)
	if err != nil || !reflect.DeepEqual(applied, []string{"003_x.sql"}) {
		t.Fatalf("retry = %v, %v", applied, err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil || n != 2 {
		t.Errorf("rows in t = %d, %v", n, err)
	}
}
