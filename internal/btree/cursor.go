package btree

import (
	"fmt"

	"go.boson/internal/storage"
)

// Cursor walks the leaf sibling chain in key order. It reads a snapshot of
// one leaf at a time and must not be used across a mutation of the tree.
type Cursor struct {
	bt    *BTree
	leaf  *node
	index int
}

// First positions a cursor on the smallest key
func (bt *BTree) First() (*Cursor, error) {
	leaf, err := bt.descendEdge(bt.newScope(), false)
	if err != nil {
		return nil, err
	}

	c := &Cursor{bt: bt, leaf: leaf}
	return c, c.skipForward()
}

// Last positions a cursor on the largest key
func (bt *BTree) Last() (*Cursor, error) {
	leaf, err := bt.descendEdge(bt.newScope(), true)
	if err != nil {
		return nil, err
	}

	c := &Cursor{bt: bt, leaf: leaf, index: len(leaf.keys) - 1}
	return c, c.skipBackward()
}

// Seek positions a cursor on the first key >= key
func (bt *BTree) Seek(key uint64) (*Cursor, error) {
	leaf, err := bt.descend(bt.newScope(), key)
	if err != nil {
		return nil, err
	}

	i, _ := leaf.search(key)
	c := &Cursor{bt: bt, leaf: leaf, index: i}
	return c, c.skipForward()
}

func (c *Cursor) Valid() bool {
	return c.leaf != nil && c.index >= 0 && c.index < len(c.leaf.keys)
}

func (c *Cursor) Key() uint64 {
	if !c.Valid() {
		return 0
	}
	return c.leaf.keys[c.index]
}

func (c *Cursor) Value() ([]byte, error) {
	if !c.Valid() {
		return nil, ErrCursorExhausted
	}
	return c.bt.readValue(c.leaf.children[c.index])
}

func (c *Cursor) Next() error {
	if !c.Valid() {
		return ErrCursorExhausted
	}
	c.index++
	return c.skipForward()
}

func (c *Cursor) Prev() error {
	if !c.Valid() {
		return ErrCursorExhausted
	}
	c.index--
	return c.skipBackward()
}

// skipForward follows right links until the index lands on a key
func (c *Cursor) skipForward() error {
	for steps := 0; c.index >= len(c.leaf.keys); steps++ {
		if c.leaf.right == storage.NotFound {
			c.leaf = nil
			return nil
		}
		if err := c.follow(c.leaf.right, steps); err != nil {
			return err
		}
		c.index = 0
	}
	return nil
}

func (c *Cursor) skipBackward() error {
	for steps := 0; c.index < 0; steps++ {
		if c.leaf.left == storage.NotFound {
			c.leaf = nil
			return nil
		}
		if err := c.follow(c.leaf.left, steps); err != nil {
			return err
		}
		c.index = len(c.leaf.keys) - 1
	}
	return nil
}

func (c *Cursor) follow(off uint64, steps int) error {
	if uint64(steps) > c.bt.count {
		return fmt.Errorf("%w: sibling chain does not end", ErrCorruptTree)
	}

	leaf, err := c.bt.loadNode(off)
	if err != nil {
		return err
	}
	if !leaf.isLeaf() {
		return fmt.Errorf("%w: sibling %d is not a leaf", ErrCorruptTree, off)
	}

	c.leaf = leaf
	return nil
}
