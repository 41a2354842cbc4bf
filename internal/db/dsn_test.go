package db

import "testing"

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/openshelf", "postgres://u:p@localhost:5432/openshelf"},
		{" \"postgresql://u:p@db/openshelf\" ", "postgresql://u:p@db/openshelf"},
		{"host=localhost user=app dbname=openshelf", "host=localhost user=app dbname=openshelf sslmode=disable"},
		{"host=localhost   user=app  sslmode=require", "host=localhost user=app sslmode=require"},
		{"openshelf.db", "openshelf.db"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeDSN(tc.in); got != tc.want {
			t.Errorf("NormalizeDSN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsPostgres(t *testing.T) {
	for _, dsn := range []string{
		"postgres://u:p@localhost/openshelf",
		"POSTGRESQL://u:p@localhost/openshelf",
		"host=localhost dbname=openshelf",
	} {
		if !IsPostgres(dsn) {
			t.Errorf("IsPostgres(%q) = false", dsn)
		}
	}
	for _, dsn := range []string{"openshelf.db", "", "file::memory:"} {
		if IsPostgres(dsn) {
			t.Errorf("IsPostgres(%q) = true", dsn)
		}
	}
}
