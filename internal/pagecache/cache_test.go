package pagecache_test

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.boson/internal/pagecache"
)

func openCache(t *testing.T, path string, size int) *pagecache.PageCache {
	t.Helper()

	c, err := pagecache.Open(path, size, false, nil)
	if err != nil {
		t.Fatalf("Open %s failed: %v", path, err)
	}
	return c
}

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251)
	}
	return b
}

func TestWriteReadAcrossPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "span.db")
	c := openCache(t, path, 0)
	defer c.Close()

	data := pattern(3*pagecache.PageSize+100, 7)
	if n, err := c.Write(100, data); err != nil || n != len(data) {
		t.Fatalf("Write returned %d, %v", n, err)
	}

	got := make([]byte, len(data))
	if n, err := c.Read(100, got); err != nil || n != len(data) {
		t.Fatalf("Read returned %d, %v", n, err)
	}

	if !bytes.Equal(got, data) {
		t.Fatalf("Read data does not match written data")
	}
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append.db")
	c := openCache(t, path, 0)

	first := pattern(100, 1)
	off, err := c.Append(first)
	if err != nil || off != 0 {
		t.Fatalf("Expected first append at 0, got %d, %v", off, err)
	}

	// Crosses into the second page
	second := pattern(pagecache.PageSize, 3)
	off, err = c.Append(second)
	if err != nil || off != 100 {
		t.Fatalf("Expected second append at 100, got %d, %v", off, err)
	}

	size, err := c.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(first)+len(second)) {
		t.Fatalf("Expected size %d, got %d", len(first)+len(second), size)
	}

	got := make([]byte, len(second))
	if n, err := c.Read(100, got); err != nil || n != len(got) {
		t.Fatalf("Read returned %d, %v", n, err)
	}
	if !bytes.Equal(got, second) {
		t.Fatalf("Appended bytes do not read back")
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Append(first); !errors.Is(err, pagecache.ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}

	ro, err := pagecache.Open(path, 0, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()

	if _, err := ro.Append(first); !errors.Is(err, pagecache.ErrReadOnly) {
		t.Fatalf("Expected ErrReadOnly, got %v", err)
	}
}

func TestPartialWritePreservesPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fbw.db")

	c := openCache(t, path, 0)
	full := bytes.Repeat([]byte{'a'}, pagecache.PageSize)
	if _, err := c.Write(0, full); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen so the page is not resident before the partial write
	c = openCache(t, path, 0)
	defer c.Close()

	if _, err := c.Write(10, []byte("XY")); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, pagecache.PageSize)
	if n, err := c.Read(0, got); err != nil || n != pagecache.PageSize {
		t.Fatalf("Read returned %d, %v", n, err)
	}

	want := append([]byte(nil), full...)
	copy(want[10:], "XY")
	if !bytes.Equal(got, want) {
		t.Fatalf("Bytes outside the written range were not preserved")
	}
}

func TestAvailableLengthHighWaterMark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hwm.db")
	c := openCache(t, path, 0)

	if _, err := c.Write(0, pattern(100, 1)); err != nil {
		t.Fatal(err)
	}
	// A short write past the current valid length must extend it to 210
	if _, err := c.Write(200, pattern(10, 9)); err != nil {
		t.Fatal(err)
	}
	// A short write inside the valid range must not shrink it
	if _, err := c.Write(0, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, 10)
	if n, err := c.Read(200, got); err != nil || n != 10 {
		t.Fatalf("Read returned %d, %v", n, err)
	}
	if !bytes.Equal(got, pattern(10, 9)) {
		t.Fatalf("Unexpected data at offset 200: %v", got)
	}

	size, err := c.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != 210 {
		t.Fatalf("Expected logical size 210, got %d", size)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != 210 {
		t.Fatalf("Expected file size 210 after close, got %d", fi.Size())
	}
}

func TestShortReadAtEndOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eof.db")
	c := openCache(t, path, 0)
	defer c.Close()

	if _, err := c.Write(0, pattern(50, 3)); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 100)
	n, err := c.Read(0, buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 50 {
		t.Fatalf("Expected short read of 50 bytes, got %d", n)
	}

	n, err = c.Read(10*pagecache.PageSize, buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("Expected empty read past end of file, got %d", n)
	}
}

func TestEvictionPersistsDirtyPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evict.db")
	c := openCache(t, path, pagecache.MinCacheSize)

	const pages = 10
	for p := 0; p < pages; p++ {
		if _, err := c.Write(int64(p*pagecache.PageSize), pattern(pagecache.PageSize, byte(p))); err != nil {
			t.Fatalf("Write page %d failed: %v", p, err)
		}
	}

	if c.Stats().Evictions == 0 {
		t.Fatalf("Expected evictions with %d pages in a %d page cache", pages, c.Pages())
	}

	for p := 0; p < pages; p++ {
		got := make([]byte, pagecache.PageSize)
		if _, err := c.Read(int64(p*pagecache.PageSize), got); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, pattern(pagecache.PageSize, byte(p))) {
			t.Fatalf("Page %d content lost after eviction", p)
		}
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != pages*pagecache.PageSize {
		t.Fatalf("Expected %d bytes on disk, got %d", pages*pagecache.PageSize, len(raw))
	}
}

func TestReadOnly(t *testing.T) {
	dir := t.TempDir()

	if _, err := pagecache.Open(filepath.Join(dir, "missing.db"), 0, true, nil); !errors.Is(err, pagecache.ErrStorageFault) {
		t.Fatalf("Expected storage fault opening a missing file read-only, got %v", err)
	}

	path := filepath.Join(dir, "ro.db")
	c := openCache(t, path, 0)
	if _, err := c.Write(0, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	ro, err := pagecache.Open(path, 0, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()

	if _, err := ro.Write(0, []byte("x")); !errors.Is(err, pagecache.ErrReadOnly) {
		t.Fatalf("Expected ErrReadOnly, got %v", err)
	}

	got := make([]byte, 5)
	if _, err := ro.Read(0, got); err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("Expected hello, got %q", got)
	}
}

func TestHitRate(t *testing.T) {
	c := openCache(t, filepath.Join(t.TempDir(), "rate.db"), 0)
	defer c.Close()

	if c.HitRate() != 0 || c.MissRate() != 0 {
		t.Fatalf("Expected zero rates before any request")
	}

	// 1 miss then 2 hits
	if _, err := c.Write(0, []byte("abc")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 3)
	c.Read(0, buf)
	c.Read(1, buf[:1])

	if math.Abs(c.HitRate()-200.0/3.0) > 0.001 {
		t.Fatalf("Expected hit rate 66.67, got %f", c.HitRate())
	}
	if math.Abs(c.MissRate()-100.0/3.0) > 0.001 {
		t.Fatalf("Expected miss rate 33.33, got %f", c.MissRate())
	}
}

func TestClosedCache(t *testing.T) {
	c := openCache(t, filepath.Join(t.TempDir(), "closed.db"), 0)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	// Second close is a no-op
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Read(0, make([]byte, 1)); !errors.Is(err, pagecache.ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
}
