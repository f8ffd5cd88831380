package btree

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"go.boson/internal/storage"
)

func TestNodeEncoding(t *testing.T) {
	const maxDegree = 4

	inner := newNode(640, kindInner)
	inner.parent = 64
	// One spare slot beyond maxDegree for an overflowing node
	inner.keys = []uint64{10, 20, 30, 40, 50}
	inner.children = []uint64{100, 200, 300, 400, 500, 600}

	buf, err := inner.encode(maxDegree)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != nodeSize(maxDegree) {
		t.Fatalf("Expected %d bytes, got %d", nodeSize(maxDegree), len(buf))
	}

	got, err := decodeNode(640, buf, maxDegree)
	if err != nil {
		t.Fatal(err)
	}
	if got.kind != kindInner || got.parent != 64 || got.left != storage.NotFound {
		t.Fatalf("Unexpected node header %+v", got)
	}
	if !slices.Equal(got.keys, inner.keys) || !slices.Equal(got.children, inner.children) {
		t.Fatalf("Unexpected node contents %v %v", got.keys, got.children)
	}

	leaf := newNode(128, kindLeaf)
	leaf.keys = []uint64{1, 2}
	leaf.children = []uint64{900, 950}
	leaf.right = 4096

	buf, err = leaf.encode(maxDegree)
	if err != nil {
		t.Fatal(err)
	}
	got, err = decodeNode(128, buf, maxDegree)
	if err != nil {
		t.Fatal(err)
	}
	if !got.isLeaf() || len(got.children) != 2 || got.right != 4096 {
		t.Fatalf("Unexpected leaf %+v", got)
	}

	if _, err := decodeNode(128, buf[:len(buf)-8], maxDegree); !errors.Is(err, ErrCorruptTree) {
		t.Fatalf("Expected ErrCorruptTree for a short payload, got %v", err)
	}

	buf[0] = 9
	if _, err := decodeNode(128, buf, maxDegree); !errors.Is(err, ErrCorruptTree) {
		t.Fatalf("Expected ErrCorruptTree for an unknown kind, got %v", err)
	}

	leaf.keys = []uint64{1, 2, 3, 4, 5, 6}
	if _, err := leaf.encode(maxDegree); !errors.Is(err, ErrCorruptTree) {
		t.Fatalf("Expected ErrCorruptTree encoding too many keys, got %v", err)
	}
}

func TestSearchAndChildIndex(t *testing.T) {
	n := newNode(0, kindInner)
	n.keys = []uint64{10, 20, 30}

	tests := []struct {
		key   uint64
		index int
		found bool
		child int
	}{
		{5, 0, false, 0},
		{10, 0, true, 1},
		{15, 1, false, 1},
		{20, 1, true, 2},
		{30, 2, true, 3},
		{35, 3, false, 3},
	}

	for _, tt := range tests {
		i, found := n.search(tt.key)
		if i != tt.index || found != tt.found {
			t.Fatalf("search(%d) = %d, %t, expected %d, %t", tt.key, i, found, tt.index, tt.found)
		}
		if c := n.childIndex(tt.key); c != tt.child {
			t.Fatalf("childIndex(%d) = %d, expected %d", tt.key, c, tt.child)
		}
	}
}

func TestScopePersistsOnError(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "scope.db"), storage.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	bt, err := Open(store, Options{MaxDegree: 4, MinDegree: 2})
	if err != nil {
		t.Fatal(err)
	}

	sc := bt.newScope()
	root, err := sc.load(bt.root)
	if err != nil {
		t.Fatal(err)
	}

	again, err := sc.load(bt.root)
	if err != nil {
		t.Fatal(err)
	}
	if again != root {
		t.Fatalf("Expected one handle per node within a scope")
	}

	root.insertLeafEntry(0, 99, 12345)

	boom := errors.New("boom")
	if err := sc.close(boom); !errors.Is(err, boom) {
		t.Fatalf("Expected the operation error back, got %v", err)
	}

	reloaded, err := bt.loadNode(bt.root)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(reloaded.keys, []uint64{99}) {
		t.Fatalf("Expected dirty node to be written back, got keys %v", reloaded.keys)
	}
}
