package btree_test

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"slices"
	"testing"

	"go.boson/internal/btree"
	"go.boson/internal/storage"
)

func openTree(t *testing.T, path string, maxDegree, minDegree int) (*storage.RecordStore, *btree.BTree) {
	t.Helper()

	store, err := storage.Open(path, storage.Options{})
	if err != nil {
		t.Fatal(err)
	}

	bt, err := btree.Open(store, btree.Options{MaxDegree: maxDegree, MinDegree: minDegree})
	if err != nil {
		store.Close()
		t.Fatal(err)
	}
	return store, bt
}

func value(k uint64) []byte {
	return []byte(fmt.Sprintf("value-%d", k))
}

func ascending(t *testing.T, bt *btree.BTree) []uint64 {
	t.Helper()

	c, err := bt.First()
	if err != nil {
		t.Fatal(err)
	}

	var keys []uint64
	for c.Valid() {
		keys = append(keys, c.Key())
		if err := c.Next(); err != nil {
			t.Fatal(err)
		}
	}
	return keys
}

func descending(t *testing.T, bt *btree.BTree) []uint64 {
	t.Helper()

	c, err := bt.Last()
	if err != nil {
		t.Fatal(err)
	}

	var keys []uint64
	for c.Valid() {
		keys = append(keys, c.Key())
		if err := c.Prev(); err != nil {
			t.Fatal(err)
		}
	}
	return keys
}

func keyRange(from, to uint64) []uint64 {
	var keys []uint64
	for k := from; k <= to; k++ {
		keys = append(keys, k)
	}
	return keys
}

func TestAscendingInsertSplits(t *testing.T) {
	store, bt := openTree(t, filepath.Join(t.TempDir(), "split.db"), 4, 2)
	defer store.Close()

	for k := uint64(1); k <= 50; k++ {
		if err := bt.Insert(k, value(k)); err != nil {
			t.Fatalf("Insert %d failed: %v", k, err)
		}
	}

	height, err := bt.Height()
	if err != nil {
		t.Fatal(err)
	}
	if height < 3 {
		t.Fatalf("Expected the tree to grow past two levels, height %d", height)
	}

	if err := bt.Check(); err != nil {
		t.Fatal(err)
	}

	if got := ascending(t, bt); !slices.Equal(got, keyRange(1, 50)) {
		t.Fatalf("Unexpected ascending traversal %v", got)
	}

	for k := uint64(1); k <= 50; k++ {
		v, ok, err := bt.Get(k)
		if err != nil || !ok {
			t.Fatalf("Get %d failed: %t, %v", k, ok, err)
		}
		if !bytes.Equal(v, value(k)) {
			t.Fatalf("Get %d returned %q", k, v)
		}
	}

	if bt.Len() != 50 {
		t.Fatalf("Expected 50 keys, got %d", bt.Len())
	}
}

func TestDeleteLowerHalf(t *testing.T) {
	store, bt := openTree(t, filepath.Join(t.TempDir(), "delete.db"), 4, 2)
	defer store.Close()

	for k := uint64(1); k <= 50; k++ {
		if err := bt.Insert(k, value(k)); err != nil {
			t.Fatalf("Insert %d failed: %v", k, err)
		}
	}

	for k := uint64(1); k <= 25; k++ {
		if err := bt.Delete(k); err != nil {
			t.Fatalf("Delete %d failed: %v", k, err)
		}
		// Check rejects any node below the minimum degree
		if err := bt.Check(); err != nil {
			t.Fatalf("after deleting %d: %v", k, err)
		}
	}

	if got := ascending(t, bt); !slices.Equal(got, keyRange(26, 50)) {
		t.Fatalf("Unexpected ascending traversal %v", got)
	}

	if _, ok, err := bt.Get(10); err != nil || ok {
		t.Fatalf("Expected key 10 to be gone, got %t, %v", ok, err)
	}
}

func TestDescendingTraversal(t *testing.T) {
	store, bt := openTree(t, filepath.Join(t.TempDir(), "reverse.db"), 4, 2)
	defer store.Close()

	for _, k := range []uint64{30, 10, 50, 20, 40, 60, 70, 5, 15} {
		if err := bt.Insert(k, value(k)); err != nil {
			t.Fatal(err)
		}
	}

	want := []uint64{70, 60, 50, 40, 30, 20, 15, 10, 5}
	if got := descending(t, bt); !slices.Equal(got, want) {
		t.Fatalf("Unexpected descending traversal %v", got)
	}
}

func TestSeek(t *testing.T) {
	store, bt := openTree(t, filepath.Join(t.TempDir(), "seek.db"), 4, 2)
	defer store.Close()

	for k := uint64(10); k <= 200; k += 10 {
		if err := bt.Insert(k, value(k)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		seek  uint64
		want  uint64
		valid bool
	}{
		{0, 10, true},
		{10, 10, true},
		{11, 20, true},
		{95, 100, true},
		{200, 200, true},
		{201, 0, false},
	}

	for _, tt := range tests {
		c, err := bt.Seek(tt.seek)
		if err != nil {
			t.Fatal(err)
		}
		if c.Valid() != tt.valid {
			t.Fatalf("Seek(%d): expected valid %t", tt.seek, tt.valid)
		}
		if tt.valid && c.Key() != tt.want {
			t.Fatalf("Seek(%d): expected %d, got %d", tt.seek, tt.want, c.Key())
		}
	}

	c, err := bt.Seek(201)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Next(); !errors.Is(err, btree.ErrCursorExhausted) {
		t.Fatalf("Expected ErrCursorExhausted, got %v", err)
	}
}

func TestDuplicateAndMissingKeys(t *testing.T) {
	store, bt := openTree(t, filepath.Join(t.TempDir(), "dup.db"), 4, 2)
	defer store.Close()

	if err := bt.Insert(7, []byte("1")); err != nil {
		t.Fatal(err)
	}

	// Second insert should fail and leave the value alone
	if err := bt.Insert(7, []byte("2")); !errors.Is(err, btree.ErrKeyExists) {
		t.Fatalf("Expected ErrKeyExists, got %v", err)
	}

	v, _, err := bt.Get(7)
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "1" {
		t.Fatalf("Expected duplicate insert to keep 1, got %s", v)
	}

	if err := bt.Delete(8); !errors.Is(err, btree.ErrKeyNotFound) {
		t.Fatalf("Expected ErrKeyNotFound, got %v", err)
	}
	if err := bt.Update(8, []byte("x")); !errors.Is(err, btree.ErrKeyNotFound) {
		t.Fatalf("Expected ErrKeyNotFound, got %v", err)
	}

	if bt.Len() != 1 {
		t.Fatalf("Expected 1 key, got %d", bt.Len())
	}
}

func TestUpdateGrowsValue(t *testing.T) {
	store, bt := openTree(t, filepath.Join(t.TempDir(), "update.db"), 4, 2)
	defer store.Close()

	for k := uint64(1); k <= 10; k++ {
		if err := bt.Insert(k, []byte("small")); err != nil {
			t.Fatal(err)
		}
	}

	large := bytes.Repeat([]byte("L"), 1000)
	if err := bt.Update(5, large); err != nil {
		t.Fatal(err)
	}
	if err := bt.Update(6, []byte("tiny")); err != nil {
		t.Fatal(err)
	}

	v, _, err := bt.Get(5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(v, large) {
		t.Fatalf("Expected relocated value, got %d bytes", len(v))
	}

	v, _, err = bt.Get(6)
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "tiny" {
		t.Fatalf("Expected tiny, got %s", v)
	}

	if err := bt.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestFreedValueSpaceReused(t *testing.T) {
	store, bt := openTree(t, filepath.Join(t.TempDir(), "reuse.db"), 4, 2)
	defer store.Close()

	if err := bt.Insert(1, []byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := bt.Delete(1); err != nil {
		t.Fatal(err)
	}

	eof := store.EndOfFile()

	if err := bt.Insert(2, []byte("a somewhat larger value")); err != nil {
		t.Fatal(err)
	}

	if store.EndOfFile() != eof {
		t.Fatalf("Expected freed space to be reused, end of file moved %d -> %d", eof, store.EndOfFile())
	}
}

func TestReopenKeepsTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	store, bt := openTree(t, path, 6, 3)

	rng := rand.New(rand.NewSource(42))
	for _, k := range rng.Perm(300) {
		if err := bt.Insert(uint64(k), value(uint64(k))); err != nil {
			t.Fatal(err)
		}
	}

	before := ascending(t, bt)
	root := bt.Root()

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// Degrees stored in the file win over the options
	store, bt = openTree(t, path, 16, 8)
	defer store.Close()

	if maxDegree, minDegree := bt.Degrees(); maxDegree != 6 || minDegree != 3 {
		t.Fatalf("Expected stored degrees 6/3, got %d/%d", maxDegree, minDegree)
	}
	if bt.Root() != root {
		t.Fatalf("Expected root %d after reopen, got %d", root, bt.Root())
	}
	if bt.Len() != 300 {
		t.Fatalf("Expected 300 keys, got %d", bt.Len())
	}

	if got := ascending(t, bt); !slices.Equal(got, before) {
		t.Fatalf("Traversal changed after reopen")
	}

	if err := bt.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteEverythingCollapsesRoot(t *testing.T) {
	store, bt := openTree(t, filepath.Join(t.TempDir(), "collapse.db"), 4, 2)
	defer store.Close()

	for k := uint64(0); k < 100; k++ {
		if err := bt.Insert(k, value(k)); err != nil {
			t.Fatal(err)
		}
	}

	rng := rand.New(rand.NewSource(3))
	for _, k := range rng.Perm(100) {
		if err := bt.Delete(uint64(k)); err != nil {
			t.Fatalf("Delete %d failed: %v", k, err)
		}
	}

	height, err := bt.Height()
	if err != nil {
		t.Fatal(err)
	}
	if height != 1 {
		t.Fatalf("Expected a single leaf, height %d", height)
	}
	if bt.Len() != 0 {
		t.Fatalf("Expected empty tree, got %d keys", bt.Len())
	}

	// Meta record and root leaf
	if store.TotalRecords() != 2 {
		t.Fatalf("Expected 2 live records, got %d", store.TotalRecords())
	}

	if _, err := store.Check(); err != nil {
		t.Fatal(err)
	}
	if err := bt.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestRandomOperations(t *testing.T) {
	degrees := []struct{ max, min int }{
		{2, 1},
		{3, 1},
		{5, 2},
		{8, 4},
	}

	for _, d := range degrees {
		t.Run(fmt.Sprintf("%d-%d", d.max, d.min), func(t *testing.T) {
			store, bt := openTree(t, filepath.Join(t.TempDir(), "random.db"), d.max, d.min)
			defer store.Close()

			rng := rand.New(rand.NewSource(int64(d.max)))
			model := make(map[uint64][]byte)

			for step := 0; step < 1500; step++ {
				k := uint64(rng.Intn(200))
				_, exists := model[k]

				switch rng.Intn(4) {
				case 0, 1:
					v := bytes.Repeat([]byte{byte('a' + step%26)}, 1+rng.Intn(80))
					err := bt.Insert(k, v)
					if exists {
						if !errors.Is(err, btree.ErrKeyExists) {
							t.Fatalf("step %d: expected ErrKeyExists for %d, got %v", step, k, err)
						}
						continue
					}
					if err != nil {
						t.Fatalf("step %d: Insert %d failed: %v", step, k, err)
					}
					model[k] = v

				case 2:
					err := bt.Delete(k)
					if !exists {
						if !errors.Is(err, btree.ErrKeyNotFound) {
							t.Fatalf("step %d: expected ErrKeyNotFound for %d, got %v", step, k, err)
						}
						continue
					}
					if err != nil {
						t.Fatalf("step %d: Delete %d failed: %v", step, k, err)
					}
					delete(model, k)

				default:
					if !exists {
						continue
					}
					v := bytes.Repeat([]byte("u"), rng.Intn(120))
					if err := bt.Update(k, v); err != nil {
						t.Fatalf("step %d: Update %d failed: %v", step, k, err)
					}
					model[k] = v
				}

				if step%100 == 0 {
					if err := bt.Check(); err != nil {
						t.Fatalf("step %d: %v", step, err)
					}
				}
			}

			if err := bt.Check(); err != nil {
				t.Fatal(err)
			}
			if _, err := store.Check(); err != nil {
				t.Fatal(err)
			}

			if bt.Len() != uint64(len(model)) {
				t.Fatalf("Expected %d keys, got %d", len(model), bt.Len())
			}

			for k, want := range model {
				got, ok, err := bt.Get(k)
				if err != nil || !ok {
					t.Fatalf("Get %d failed: %t, %v", k, ok, err)
				}
				if !bytes.Equal(got, want) {
					t.Fatalf("Get %d returned %q, expected %q", k, got, want)
				}
			}

			want := make([]uint64, 0, len(model))
			for k := range model {
				want = append(want, k)
			}
			slices.Sort(want)

			if got := ascending(t, bt); !slices.Equal(got, want) {
				t.Fatalf("Ascending traversal does not match the stored keys")
			}
		})
	}
}

func TestInvalidDegrees(t *testing.T) {
	tests := []struct {
		max, min int
		ok       bool
	}{
		{2, 1, true},
		{4, 2, true},
		{5, 0, true},
		{1, 1, false},
		{4, 3, false},
		{8, -1, false},
		{-4, 2, false},
	}

	for _, tt := range tests {
		store, err := storage.Open(filepath.Join(t.TempDir(), "degree.db"), storage.Options{})
		if err != nil {
			t.Fatal(err)
		}

		_, err = btree.Open(store, btree.Options{MaxDegree: tt.max, MinDegree: tt.min})
		store.Close()

		if tt.ok && err != nil {
			t.Fatalf("degrees %d/%d: unexpected error %v", tt.max, tt.min, err)
		}
		if !tt.ok && !errors.Is(err, btree.ErrInvalidDegree) {
			t.Fatalf("degrees %d/%d: expected ErrInvalidDegree, got %v", tt.max, tt.min, err)
		}
	}
}

func TestReadOnlyTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.db")

	store, bt := openTree(t, path, 4, 2)
	if err := bt.Insert(1, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	ro, err := storage.Open(path, storage.Options{ReadOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()

	bt, err = btree.Open(ro, btree.Options{})
	if err != nil {
		t.Fatal(err)
	}

	if err := bt.Insert(2, []byte("two")); !errors.Is(err, storage.ErrReadOnly) {
		t.Fatalf("Expected ErrReadOnly, got %v", err)
	}
	if err := bt.Delete(1); !errors.Is(err, storage.ErrReadOnly) {
		t.Fatalf("Expected ErrReadOnly, got %v", err)
	}

	v, ok, err := bt.Get(1)
	if err != nil || !ok || string(v) != "one" {
		t.Fatalf("Unexpected Get result %q, %t, %v", v, ok, err)
	}
}

func TestWalkVisitsLevels(t *testing.T) {
	store, bt := openTree(t, filepath.Join(t.TempDir(), "walk.db"), 4, 2)
	defer store.Close()

	for k := uint64(1); k <= 30; k++ {
		if err := bt.Insert(k, value(k)); err != nil {
			t.Fatal(err)
		}
	}

	height, err := bt.Height()
	if err != nil {
		t.Fatal(err)
	}

	var leafKeys []uint64
	lastDepth := 0
	err = bt.Walk(func(n btree.NodeInfo) error {
		if n.Depth < lastDepth {
			return fmt.Errorf("depth went back from %d to %d", lastDepth, n.Depth)
		}
		lastDepth = n.Depth

		if n.Leaf {
			if n.Depth != height-1 {
				return fmt.Errorf("leaf %d at depth %d", n.Offset, n.Depth)
			}
			leafKeys = append(leafKeys, n.Keys...)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(leafKeys, keyRange(1, 30)) {
		t.Fatalf("Walk visited leaves out of order: %v", leafKeys)
	}
}
