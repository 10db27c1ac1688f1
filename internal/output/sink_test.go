package output

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSinkCommit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.gif")
	sink := NewFileSink(path)

	a, err := sink.Open()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Write([]byte("GIF89a")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("output visible before commit")
	}
	if err := a.Commit(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "GIF89a" {
		t.Fatalf("content = %q", data)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestFileSinkAbort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.gif")
	a, err := NewFileSink(path).Open()
	if err != nil {
		t.Fatal(err)
	}
	a.Write([]byte("partial"))
	if err := a.Abort(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("aborted output exists")
	}
	assertNoTempFiles(t, dir)
	if err := a.Commit(); err == nil {
		t.Fatal("commit after abort should fail")
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink("mem")
	a, _ := sink.Open()
	a.Write([]byte("abc"))
	a.Commit()

	b, _ := sink.Open()
	b.Write([]byte("zzz"))
	b.Abort()

	if string(sink.Bytes()) != "abc" {
		t.Fatalf("bytes = %q", sink.Bytes())
	}
	if c, ab := sink.Counts(); c != 1 || ab != 1 {
		t.Fatalf("counts = %d,%d", c, ab)
	}
}
