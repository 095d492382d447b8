// Package itemindex implements the cache's augmented ordered item index
// (spec §4.C): a red-black tree keyed by item key, where every node also
// carries a summary of whether its left and right subtrees contain any
// dirty item. The summary lets first_dirty/next_dirty find the flush
// order in O(log n) amortized per step instead of scanning the whole tree.
//
// The three augmentation hooks below — propagate, copyAug, rotateAug — are
// named after the Linux kernel rbtree_augmented.h callbacks
// (rb_augment_callbacks{propagate,copy,rotate}), which is what the original
// scoutfs_item_* code this package replaces was built on: rotations and
// node replacement during erase are structural pointer moves, not value
// copies, so a moved node's summary has to be recomputed from its new
// children rather than inherited from whatever used to sit there.
package itemindex

import "github.com/rpcpool/scoutcache/key"

// ErrDuplicate is returned by InsertOrReplaceTombstone when a live item
// with the same key already exists.
var ErrDuplicate = duplicateError{}

type duplicateError struct{}

func (duplicateError) Error() string { return "itemindex: key already has a live item" }

// Tree is an augmented red-black tree of *Item, plus the dirty-set
// aggregate counters that mark_dirty/clear_dirty maintain as items are
// marked or unmarked. The zero value is an empty, ready-to-use tree.
type Tree struct {
	root     *Item
	size     int
	Counters Counters
}

// Len returns the number of items currently indexed (live and tombstone).
func (t *Tree) Len() int {
	return t.size
}

// recompute recomputes n's two subtree-dirty flags from its children's
// current state and reports whether either flag changed.
func recompute(n *Item) bool {
	newLeft := n.left != nil && n.left.dirty.any()
	newRight := n.right != nil && n.right.dirty.any()
	if newLeft == n.dirty.left && newRight == n.dirty.right {
		return false
	}
	n.dirty.left = newLeft
	n.dirty.right = newRight
	return true
}

// propagate recomputes n's flags and walks upward through ancestors,
// stopping at stop (exclusive) or as soon as a node's flags are unchanged
// from the recompute — the early-termination property that keeps dirty
// bookkeeping O(log n) instead of O(n).
func propagate(from, stop *Item) {
	for n := from; n != nil && n != stop; n = n.parent {
		if !recompute(n) {
			return
		}
	}
}

// copyAug recomputes new's flags from its current children. Called when new
// physically replaces old's position in the tree during erase: new's
// children have changed (they are now whatever old's children were, save
// for the spliced-out node), so its summary can't simply be inherited.
func copyAug(_, newNode *Item) {
	recompute(newNode)
}

// rotateAug recomputes both nodes after a rotation exchanges their
// parent/child relationship. old is recomputed first because new's
// children now include old.
func rotateAug(old, newNode *Item) {
	recompute(old)
	recompute(newNode)
}

func isRed(n *Item) bool {
	return n != nil && n.red
}

func (t *Tree) leftRotate(x *Item) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
	rotateAug(x, y)
}

func (t *Tree) rightRotate(x *Item) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
	rotateAug(x, y)
}

// Walk descends the tree by key. hit is the node with that exact key, or
// nil. next is the most recent ancestor reached by taking a left turn (the
// least-keyed ancestor greater than k); prev is the most recent ancestor
// reached by taking a right turn (the greatest-keyed ancestor less than k).
func (t *Tree) Walk(k key.Key) (hit, prev, next *Item) {
	n := t.root
	for n != nil {
		switch c := key.Compare(k, n.Key); {
		case c == 0:
			return n, prev, next
		case c < 0:
			next = n
			n = n.left
		default:
			prev = n
			n = n.right
		}
	}
	return nil, prev, next
}

// FindLive returns the live item at k, or nil if there is none (either
// absent entirely, or present only as a tombstone).
func (t *Tree) FindLive(k key.Key) *Item {
	hit, _, _ := t.Walk(k)
	if hit.IsLive() {
		return hit
	}
	return nil
}

// min returns the minimum-keyed node in the subtree rooted at n.
func min(n *Item) *Item {
	if n == nil {
		return nil
	}
	for n.left != nil {
		n = n.left
	}
	return n
}

// successor returns n's in-order successor.
func successor(n *Item) *Item {
	if n.right != nil {
		return min(n.right)
	}
	p := n.parent
	for p != nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

// NextLiveInWindow returns the least live item with key >= k and <= upper,
// skipping over any tombstones in between.
func (t *Tree) NextLiveInWindow(k, upper key.Key) *Item {
	cur := t.ceil(k)
	for cur != nil && !cur.IsLive() {
		cur = successor(cur)
	}
	if cur == nil || key.Compare(cur.Key, upper) > 0 {
		return nil
	}
	return cur
}

// ceil returns the least-keyed node with key >= k, or nil.
func (t *Tree) ceil(k key.Key) *Item {
	n := t.root
	var best *Item
	for n != nil {
		switch c := key.Compare(k, n.Key); {
		case c == 0:
			return n
		case c < 0:
			best = n
			n = n.left
		default:
			n = n.right
		}
	}
	return best
}

// bstInsert performs a plain binary-search-tree insertion of z, returning
// the live duplicate if one is found at the same key and seeding the
// descent-path dirty flags along the way when z is already marked dirty
// (the insert_or_replace_tombstone optimization from spec §4.C: pre-seed
// ancestor summaries so propagate from mark_dirty terminates immediately).
func (t *Tree) bstInsert(z *Item) *Item {
	var parent *Item
	n := t.root
	for n != nil {
		parent = n
		c := key.Compare(z.Key, n.Key)
		switch {
		case c == 0:
			return n
		case c < 0:
			if z.dirty.self {
				parent.dirty.left = true
			}
			n = n.left
		default:
			if z.dirty.self {
				parent.dirty.right = true
			}
			n = n.right
		}
	}
	z.parent = parent
	z.red = true
	switch {
	case parent == nil:
		t.root = z
	case key.Compare(z.Key, parent.Key) < 0:
		parent.left = z
	default:
		parent.right = z
	}
	t.size++
	return nil
}

func (t *Tree) fixInsert(z *Item) {
	for isRed(z.parent) {
		gp := z.parent.parent
		if z.parent == gp.left {
			u := gp.right
			if isRed(u) {
				z.parent.red = false
				u.red = false
				gp.red = true
				z = gp
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.leftRotate(z)
			}
			z.parent.red = false
			gp.red = true
			t.rightRotate(gp)
		} else {
			u := gp.left
			if isRed(u) {
				z.parent.red = false
				u.red = false
				gp.red = true
				z = gp
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rightRotate(z)
			}
			z.parent.red = false
			gp.red = true
			t.leftRotate(gp)
		}
	}
	t.root.red = false
}

// InsertOrReplaceTombstone descends by key. If a live item already occupies
// the key it returns ErrDuplicate. If a tombstone occupies the key, the
// tombstone is erased first and the insertion restarted so the new item is
// inserted into a clean spot. Otherwise z is inserted directly.
func (t *Tree) InsertOrReplaceTombstone(z *Item) error {
	for {
		existing := t.bstInsert(z)
		if existing == nil {
			t.fixInsert(z)
			return nil
		}
		if existing.IsLive() {
			// bstInsert may have seeded subtree flags on the path down for
			// a dirty z; recompute that path bottom-up so no stale flag
			// survives the failed insert.
			for n := existing.parent; n != nil; n = n.parent {
				recompute(n)
			}
			return ErrDuplicate
		}
		t.Erase(existing)
	}
}

// InsertNewDirty inserts a brand-new item that is dirty from the moment it
// is created (the Create operation's allocation). It pre-sets the SELF flag
// before descending so bstInsert can seed ancestor summaries along the way,
// then folds the item into the aggregate counters on success. On a
// duplicate-key failure the item never entered the tree, so nothing is
// counted and the SELF flag is reverted.
func (t *Tree) InsertNewDirty(z *Item) error {
	z.dirty.self = true
	if err := t.InsertOrReplaceTombstone(z); err != nil {
		z.dirty.self = false
		return err
	}
	t.Counters.add(z)
	propagate(z.parent, nil)
	return nil
}

func (t *Tree) transplant(u, v *Item) {
	switch {
	case u.parent == nil:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	if v != nil {
		v.parent = u.parent
	}
}

func (t *Tree) fixDelete(x, xParent *Item) {
	for x != t.root && !isRed(x) {
		if x == xParent.left {
			w := xParent.right
			if isRed(w) {
				w.red = false
				xParent.red = true
				t.leftRotate(xParent)
				w = xParent.right
			}
			if !isRed(w.left) && !isRed(w.right) {
				w.red = true
				x = xParent
				xParent = x.parent
				continue
			}
			if !isRed(w.right) {
				if w.left != nil {
					w.left.red = false
				}
				w.red = true
				t.rightRotate(w)
				w = xParent.right
			}
			w.red = xParent.red
			xParent.red = false
			if w.right != nil {
				w.right.red = false
			}
			t.leftRotate(xParent)
			x = t.root
			xParent = nil
		} else {
			w := xParent.left
			if isRed(w) {
				w.red = false
				xParent.red = true
				t.rightRotate(xParent)
				w = xParent.left
			}
			if !isRed(w.right) && !isRed(w.left) {
				w.red = true
				x = xParent
				xParent = x.parent
				continue
			}
			if !isRed(w.left) {
				if w.right != nil {
					w.right.red = false
				}
				w.red = true
				t.leftRotate(w)
				w = xParent.left
			}
			w.red = xParent.red
			xParent.red = false
			if w.left != nil {
				w.left.red = false
			}
			t.rightRotate(xParent)
			x = t.root
			xParent = nil
		}
	}
	if x != nil {
		x.red = false
	}
}

// Erase removes it from the tree. It first clears its SELF flag via
// ClearDirty, which adjusts the aggregate counters while the item is still
// in a consistent tree position, then performs the structural removal and
// re-synchronizes the augmented summaries of every ancestor the removal
// touched.
func (t *Tree) Erase(it *Item) {
	t.ClearDirty(it)
	y := it
	yWasRed := y.red
	var x, xParent *Item

	switch {
	case it.left == nil:
		x = it.right
		xParent = it.parent
		t.transplant(it, it.right)
	case it.right == nil:
		x = it.left
		xParent = it.parent
		t.transplant(it, it.left)
	default:
		y = min(it.right)
		yWasRed = y.red
		x = y.right
		if y.parent == it {
			xParent = y
		} else {
			xParent = y.parent
			t.transplant(y, y.right)
			y.right = it.right
			y.right.parent = y
		}
		t.transplant(it, y)
		y.left = it.left
		y.left.parent = y
		y.red = it.red
		copyAug(it, y)
	}
	t.size--

	if !yWasRed {
		t.fixDelete(x, xParent)
	}
	propagate(xParent, nil)

	it.left, it.right, it.parent = nil, nil, nil
}

// MarkDirty sets it's SELF flag, adjusts the aggregate counters by its key
// and value lengths, and propagates the change up from its parent (it's own
// summary is already consistent by definition: SELF doesn't feed into its
// own LEFT/RIGHT flags).
func (t *Tree) MarkDirty(it *Item) {
	if it.dirty.self {
		return
	}
	it.dirty.self = true
	t.Counters.add(it)
	propagate(it.parent, nil)
}

// ClearDirty clears it's SELF flag, adjusts the aggregate counters, and
// propagates up from its parent.
func (t *Tree) ClearDirty(it *Item) {
	if !it.dirty.self {
		return
	}
	it.dirty.self = false
	t.Counters.sub(it)
	propagate(it.parent, nil)
}
