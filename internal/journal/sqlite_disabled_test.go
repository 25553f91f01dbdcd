//go:build !sqlite

package journal

import "testing"

func TestSQLiteNotBuilt(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "sqlite", Path: "x.db"}, testLogger()); err == nil {
		t.Fatal("sqlite driver should fail without the build tag")
	}
}
