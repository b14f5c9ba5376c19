package broadphase

import (
	"broadphase/internal/entity"
	"broadphase/internal/geom"
)

// node is a DBVH tree node. A node carrying an entity payload is a leaf in
// the logical sense, but the build algorithm may hang children off it (the
// root right-attach step), so payload and children are not exclusive.
// Bounds are the union of the payload bounds and both children's bounds.
//
// centerKey is set only on a region root and records which 3x3 block of
// grid cells the tree replaced.
type node struct {
	bounds    geom.Rect
	ent       *entity.Entity
	left      *node
	right     *node
	height    int
	centerKey uint64
}

// newLeaf wraps an entity in a payload node. The entity must have bounds.
func newLeaf(e *entity.Entity) *node {
	return &node{bounds: *e.Bounds, ent: e}
}

func nodeHeight(n *node) int {
	if n == nil {
		return -1
	}
	return n.height
}

// refresh recomputes height and union bounds from the payload and children.
// Children are assumed to already be consistent.
func (n *node) refresh() {
	h := -1
	var b geom.Rect
	has := false

	if n.ent != nil {
		b = *n.ent.Bounds
		has = true
	}
	if n.left != nil {
		if has {
			b = geom.Union(b, n.left.bounds)
		} else {
			b = n.left.bounds
			has = true
		}
		if n.left.height > h {
			h = n.left.height
		}
	}
	if n.right != nil {
		if has {
			b = geom.Union(b, n.right.bounds)
		} else {
			b = n.right.bounds
			has = true
		}
		if n.right.height > h {
			h = n.right.height
		}
	}

	n.height = h + 1
	n.bounds = b
}

// balanceFactor is height(left) - height(right), with nil counting as -1.
func (n *node) balanceFactor() int {
	return nodeHeight(n.left) - nodeHeight(n.right)
}

// insertNode adds a new leaf to the tree rooted at root and returns the new
// root. New leaves always attach on the right: either as the root's missing
// right child or by wrapping root and leaf under a fresh internal node. A
// single AVL rotation restores the root's balance when the factor leaves
// the [-1, 1] band. This yields a balanced tree over the block's entities,
// not a spatially sorted partition.
func insertNode(root, leaf *node) *node {
	if root == nil {
		return leaf
	}

	if root.right == nil {
		root.right = leaf
	} else {
		root = &node{left: root, right: leaf}
	}
	root.refresh()

	if bf := root.balanceFactor(); bf > 1 {
		root = rotateRight(root)
	} else if bf < -1 {
		root = rotateLeft(root)
	}
	return root
}

// rotateLeft promotes n's right child. Caller guarantees n.right != nil.
func rotateLeft(n *node) *node {
	r := n.right
	n.right = r.left
	r.left = n
	n.refresh()
	r.refresh()
	return r
}

// rotateRight promotes n's left child. Caller guarantees n.left != nil.
func rotateRight(n *node) *node {
	l := n.left
	n.left = l.right
	l.right = n
	n.refresh()
	l.refresh()
	return l
}

// buildRegion constructs a DBVH over the entities collected from a 3x3
// block. Duplicate references (entities spanning multiple cells) are kept;
// pair emission deduplicates later.
func buildRegion(entities []*entity.Entity, centerKey uint64) *node {
	var root *node
	for _, e := range entities {
		root = insertNode(root, newLeaf(e))
	}
	if root != nil {
		root.centerKey = centerKey
	}
	return root
}

// collect appends every entity payload in the subtree to buf and returns
// the extended slice.
func (n *node) collect(buf []*entity.Entity) []*entity.Entity {
	if n == nil {
		return buf
	}
	if n.ent != nil {
		buf = append(buf, n.ent)
	}
	buf = n.left.collect(buf)
	buf = n.right.collect(buf)
	return buf
}

// leafCount returns the number of entity payloads in the subtree.
func (n *node) leafCount() int {
	if n == nil {
		return 0
	}
	c := n.left.leafCount() + n.right.leafCount()
	if n.ent != nil {
		c++
	}
	return c
}
