package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"animkit/internal/animation"
)

func rec(name string, outcome string) Record {
	return Record{Name: name, Started: time.Unix(1700000000, 0).UTC(), TookMS: 120, Ticks: 8, Outcome: outcome}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, d := range []string{"", " none "} {
		st, err := Open(Config{Driver: d}, testLogger())
		if st != nil || err != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", d, st, err)
		}
	}
	if _, err := Open(Config{Driver: "redis"}, testLogger()); err == nil {
		t.Fatal("unknown driver should fail")
	}
	if _, err := Open(Config{Driver: "file"}, testLogger()); err == nil {
		t.Fatal("file driver without path should fail")
	}
}

func TestFileStoreAppendRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "journal")
	st, err := Open(Config{Driver: "file", Path: path}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{"a", "b", "c"} {
		if err := st.Append(ctx, rec(n, animation.OutcomeCompleted)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := st.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "c" || got[1].Name != "b" {
		t.Fatalf("Recent(2) = %+v, want [c b]", got)
	}
	if got[0].Took() != 120*time.Millisecond || !got[0].Started.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("record fields lost: %+v", got[0])
	}
	if none, _ := st.Recent(ctx, 0); len(none) != 0 {
		t.Fatalf("Recent(0) = %v", none)
	}

	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	if err := st.Append(ctx, rec("d", animation.OutcomeFailed)); !errors.Is(err, ErrDisabled) {
		t.Fatalf("append after close: %v", err)
	}

	// Records survive reopening.
	st2, err := Open(Config{Driver: "file", Path: path}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	all, err := st2.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[2].Name != "a" {
		t.Fatalf("after reopen: %+v", all)
	}
}

func TestFileStoreCompacts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "j.jsonl")}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	fs := st.(*fileStore)

	for i := 0; i < 3; i++ {
		_ = st.Append(ctx, rec("old", animation.OutcomeCanceled))
	}
	fs.mu.Lock()
	fs.lines = compactAbove
	fs.mu.Unlock()
	if err := st.Append(ctx, rec("new", animation.OutcomeCompleted)); err != nil {
		t.Fatal(err)
	}
	if fs.lines != 4 {
		t.Fatalf("lines after compaction = %d, want 4", fs.lines)
	}
	got, _ := st.Recent(ctx, 10)
	if len(got) != 4 || got[0].Name != "new" {
		t.Fatalf("after compaction: %+v", got)
	}
	if err := st.Append(ctx, rec("after", animation.OutcomeCompleted)); err != nil {
		t.Fatalf("append after compaction: %v", err)
	}
}

func TestFromResult(t *testing.T) {
	t.Parallel()
	started := time.Now()
	r := FromResult(animation.Result{
		Name: "x", Started: started, Took: 1500 * time.Millisecond, Ticks: 90, Err: errors.New("boom"),
	})
	if r.Outcome != animation.OutcomeFailed || r.Error != "boom" || r.TookMS != 1500 || r.Ticks != 90 {
		t.Fatalf("record = %+v", r)
	}
	if c := FromResult(animation.Result{Canceled: true}); c.Outcome != animation.OutcomeCanceled || c.Error != "" {
		t.Fatalf("canceled record = %+v", c)
	}
}
