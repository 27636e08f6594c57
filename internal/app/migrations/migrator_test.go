package migrations

import (
	"io/fs"
	"testing"
)

func TestVersion(t *testing.T) {
	cases := map[string]string{
		"001_init.sql":          "001",
		"sql/002_add_index.sql": "002",
		"003.sql":               "003.sql",
	}
	for in, want := range cases {
		if got := Version(in); got != want {
			t.Errorf("Version(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	names, err := fs.Glob(Files, "sql/*.sql")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(names) == 0 || names[0] != "sql/001_init.sql" {
		t.Fatalf("unexpected embedded migrations %v", names)
	}
}
