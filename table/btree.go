package table

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"db/column"
	"db/dberr"
	"db/pager"
)

// BTreeMeta carries everything a node needs to encode/decode itself: the
// pager it lives on, the table's row schema, and the declared key field.
type BTreeMeta struct {
	Pager    *pager.Pager
	Schema   *column.Schema
	KeyField column.Field
}

func (m *BTreeMeta) KeyWidth() uint32 { return m.KeyField.ValueWidth() }

// Pager exposes the tree's underlying pager, for flushing at the shell's
// `flush;`/`exit;` meta-commands (§3.5).
func (t *BTree) Pager() *pager.Pager { return t.meta.Pager }

// BTree is an ordered map from primary key to row bytes, backed by a single
// pager whose page 0 is always the tree's root (§3.3, §4.2).
type BTree struct {
	meta *BTreeMeta
}

// OpenBTree opens the tree rooted at page 0, initialising a fresh empty leaf
// root if the pager has no pages yet.
func OpenBTree(p *pager.Pager, schema *column.Schema, keyField column.Field) (*BTree, error) {
	meta := &BTreeMeta{Pager: p, Schema: schema, KeyField: keyField}
	if p.NumPages == 0 {
		pgno, err := p.AllocatePage()
		if err != nil {
			return nil, err
		}
		if pgno != 0 {
			return nil, fmt.Errorf("OpenBTree: expected the fresh root at page 0, got %d", pgno)
		}
		pg, err := p.GetPage(0)
		if err != nil {
			return nil, err
		}
		newLeafNode(meta, 0, true).serialize(pg)
	}
	return &BTree{meta: meta}, nil
}

// Insert adds key/row into the tree. A pre-existing key is a constraint
// error (§9, resolving the Open Question on duplicate primary keys).
func (t *BTree) Insert(key column.Value, row Row) error {
	encKey := EncodeKey(t.meta.KeyField.Type, t.meta.KeyWidth(), key)

	leafPage, err := t.findLeafPage(encKey)
	if err != nil {
		return err
	}
	pg, err := t.meta.Pager.GetPage(leafPage)
	if err != nil {
		return err
	}
	leaf := loadLeaf(t.meta, leafPage, pg)

	idx := sort.Search(len(leaf.cells), func(i int) bool {
		return CompareKeys(t.meta.KeyField.Type, leaf.cells[i].Key, encKey) >= 0
	})
	if idx < len(leaf.cells) && bytes.Equal(leaf.cells[idx].Key, encKey) {
		return dberr.Constraintf("duplicate primary key %s", key.String())
	}

	rowBytes := make([]byte, t.meta.Schema.RowSize)
	if err := SerializeRow(t.meta.Schema, row, rowBytes); err != nil {
		return err
	}
	newCell := leafCell{Key: encKey, Row: rowBytes}

	maxCells := leafMaxCells(t.meta.KeyWidth(), t.meta.Schema.RowSize)
	if uint32(len(leaf.cells)) < maxCells {
		leaf.cells = append(leaf.cells, leafCell{})
		copy(leaf.cells[idx+1:], leaf.cells[idx:len(leaf.cells)-1])
		leaf.cells[idx] = newCell
		leaf.serialize(pg)
		return nil
	}

	return t.splitLeafAndInsert(leaf, pg, idx, newCell)
}

// splitLeafAndInsert implements the leaf split in §4.2: redistribute
// LEAF_MAX_CELLS+1 cells across old and a freshly allocated sibling, then
// fix up the parent (or create a new root if old was the root).
func (t *BTree) splitLeafAndInsert(old *leafNode, oldPg *pager.Page, insertPos int, newCell leafCell) error {
	maxCells := int(leafMaxCells(t.meta.KeyWidth(), t.meta.Schema.RowSize))
	rightSplitCount := (maxCells + 2) / 2 // ceil((max+1)/2)
	leftSplitCount := (maxCells + 1) - rightSplitCount

	newPageNum, err := t.meta.Pager.AllocatePage()
	if err != nil {
		return err
	}
	newPg, err := t.meta.Pager.GetPage(newPageNum)
	if err != nil {
		return err
	}

	oldCells := old.cells // length == maxCells: old was full
	leftCells := make([]leafCell, leftSplitCount)
	rightCells := make([]leafCell, rightSplitCount)

	for i := maxCells; i >= 0; i-- {
		var cell leafCell
		switch {
		case i == insertPos:
			cell = newCell
		case i > insertPos:
			cell = oldCells[i-1]
		default:
			cell = oldCells[i]
		}
		if i >= leftSplitCount {
			rightCells[i-leftSplitCount] = cell
		} else {
			leftCells[i] = cell
		}
	}

	wasRoot := old.isRoot
	originalNext := old.next

	newLeaf := &leafNode{meta: t.meta, page: newPageNum, isRoot: false, parent: old.parent, next: originalNext, cells: rightCells}

	old.cells = leftCells
	old.next = newPageNum

	if wasRoot {
		return t.createNewRootFromLeaf(old, newLeaf)
	}

	old.serialize(oldPg)
	newLeaf.serialize(newPg)

	newOldMax := leftCells[len(leftCells)-1].Key
	newMax := rightCells[len(rightCells)-1].Key
	return t.fixupParentAfterSplit(old.parent, old.page, newLeaf.page, newOldMax, newMax)
}

// createNewRootFromLeaf implements §4.2.1 for a leaf split: old's (already
// redistributed) bytes move to a freshly-allocated left child; old's page
// number is re-initialised in place as the new internal root.
func (t *BTree) createNewRootFromLeaf(old *leafNode, newRight *leafNode) error {
	rootPageNum := old.page
	leftPageNum, err := t.meta.Pager.AllocatePage()
	if err != nil {
		return err
	}
	leftPg, err := t.meta.Pager.GetPage(leftPageNum)
	if err != nil {
		return err
	}

	left := &leafNode{meta: t.meta, page: leftPageNum, isRoot: false, parent: rootPageNum, next: newRight.page, cells: old.cells}
	left.serialize(leftPg)

	newRight.parent = rootPageNum
	newRightPg, err := t.meta.Pager.GetPage(newRight.page)
	if err != nil {
		return err
	}
	newRight.serialize(newRightPg)

	rootPg, err := t.meta.Pager.GetPage(rootPageNum)
	if err != nil {
		return err
	}
	root := &internalNode{
		meta: t.meta, page: rootPageNum, isRoot: true, parent: 0,
		cells:      []internalCell{{Child: leftPageNum, Key: left.maxKey()}},
		rightChild: newRight.page,
	}
	root.serialize(rootPg)
	return nil
}

// fixupParentAfterSplit updates the parent's record for old (which just lost
// its upper key range to newChild) and links newChild in immediately after it.
// When old is the parent's right child it has no key to update; internalInsert
// then promotes it into the last cell and installs newChild as right child.
func (t *BTree) fixupParentAfterSplit(parentPage, oldPage, newPage uint32, oldNewMax, newMax []byte) error {
	parentPg, err := t.meta.Pager.GetPage(parentPage)
	if err != nil {
		return err
	}
	parent := loadInternal(t.meta, parentPage, parentPg)

	for i := range parent.cells {
		if parent.cells[i].Child == oldPage {
			parent.cells[i].Key = oldNewMax
			break
		}
	}
	parent.serialize(parentPg)

	return t.internalInsert(parentPage, newPage, newMax)
}

// internalInsert implements §4.2.2: add one (key = childMaxKey, child) entry
// to the node at parentPage, splitting it first if it is already full.
func (t *BTree) internalInsert(parentPage, childPage uint32, childMaxKey []byte) error {
	parentPg, err := t.meta.Pager.GetPage(parentPage)
	if err != nil {
		return err
	}
	parent := loadInternal(t.meta, parentPage, parentPg)

	if parent.rightChild == invalidPageNum {
		parent.rightChild = childPage
		parent.serialize(parentPg)
		return t.setChildParent(childPage, parentPage)
	}

	if len(parent.cells) == InternalNodeMaxKeys {
		return t.splitInternalAndInsert(parent, parentPg, childPage, childMaxKey)
	}

	idx := sort.Search(len(parent.cells), func(i int) bool {
		return CompareKeys(t.meta.KeyField.Type, parent.cells[i].Key, childMaxKey) >= 0
	})

	rightChildMax, err := t.nodeMaxKey(parent.rightChild)
	if err != nil {
		return err
	}
	if CompareKeys(t.meta.KeyField.Type, childMaxKey, rightChildMax) > 0 {
		parent.cells = append(parent.cells, internalCell{Child: parent.rightChild, Key: rightChildMax})
		parent.rightChild = childPage
	} else {
		parent.cells = append(parent.cells, internalCell{})
		copy(parent.cells[idx+1:], parent.cells[idx:len(parent.cells)-1])
		parent.cells[idx] = internalCell{Child: childPage, Key: childMaxKey}
	}
	parent.serialize(parentPg)
	return t.setChildParent(childPage, parentPage)
}

// splitInternalAndInsert implements the internal split of §4.2.2: if parent
// is the root, promote it into a left child first; then redistribute its
// right_child plus key/child pairs, together with the incoming child, across
// parent (kept) and a freshly allocated sibling, and insert that sibling
// into the grandparent.
func (t *BTree) splitInternalAndInsert(parent *internalNode, parentPg *pager.Page, childPage uint32, childMaxKey []byte) error {
	if parent.isRoot {
		promoted, promotedPg, err := t.createNewRootFromInternal(parent, parentPg)
		if err != nil {
			return err
		}
		parent, parentPg = promoted, promotedPg
	}

	newPageNum, err := t.meta.Pager.AllocatePage()
	if err != nil {
		return err
	}
	newPg, err := t.meta.Pager.GetPage(newPageNum)
	if err != nil {
		return err
	}

	rightMax, err := t.nodeMaxKey(parent.rightChild)
	if err != nil {
		return err
	}

	entries := make([]internalCell, 0, len(parent.cells)+2)
	entries = append(entries, parent.cells...)
	entries = append(entries, internalCell{Child: parent.rightChild, Key: rightMax})

	pos := sort.Search(len(entries), func(i int) bool {
		return CompareKeys(t.meta.KeyField.Type, entries[i].Key, childMaxKey) >= 0
	})
	entries = append(entries, internalCell{})
	copy(entries[pos+1:], entries[pos:len(entries)-1])
	entries[pos] = internalCell{Child: childPage, Key: childMaxKey}

	splitAt := (len(entries) + 1) / 2
	leftEntries := entries[:splitAt]
	rightEntries := entries[splitAt:]

	newInternal := &internalNode{
		meta: t.meta, page: newPageNum, parent: parent.parent,
		cells:      append([]internalCell(nil), rightEntries[:len(rightEntries)-1]...),
		rightChild: rightEntries[len(rightEntries)-1].Child,
	}
	parent.cells = append([]internalCell(nil), leftEntries[:len(leftEntries)-1]...)
	parent.rightChild = leftEntries[len(leftEntries)-1].Child

	parent.serialize(parentPg)
	newInternal.serialize(newPg)

	for _, c := range parent.cells {
		if err := t.setChildParent(c.Child, parent.page); err != nil {
			return err
		}
	}
	if err := t.setChildParent(parent.rightChild, parent.page); err != nil {
		return err
	}
	for _, c := range newInternal.cells {
		if err := t.setChildParent(c.Child, newInternal.page); err != nil {
			return err
		}
	}
	if err := t.setChildParent(newInternal.rightChild, newInternal.page); err != nil {
		return err
	}

	parentMax, err := t.nodeMaxKey(parent.rightChild)
	if err != nil {
		return err
	}
	newMax, err := t.nodeMaxKey(newInternal.rightChild)
	if err != nil {
		return err
	}
	return t.fixupParentAfterSplit(parent.parent, parent.page, newInternal.page, parentMax, newMax)
}

// createNewRootFromInternal promotes the full internal node old (the current
// root) into a freshly allocated left child and re-initialises old's page
// number in place as a trivial new root with a single, as-yet-empty slot
// (§4.2.2 "if the parent is the root, create-new-root first").
func (t *BTree) createNewRootFromInternal(old *internalNode, oldPg *pager.Page) (*internalNode, *pager.Page, error) {
	rootPageNum := old.page
	leftPageNum, err := t.meta.Pager.AllocatePage()
	if err != nil {
		return nil, nil, err
	}
	leftPg, err := t.meta.Pager.GetPage(leftPageNum)
	if err != nil {
		return nil, nil, err
	}

	left := &internalNode{meta: t.meta, page: leftPageNum, isRoot: false, parent: rootPageNum, cells: old.cells, rightChild: old.rightChild}
	left.serialize(leftPg)
	for _, c := range left.cells {
		if err := t.setChildParent(c.Child, leftPageNum); err != nil {
			return nil, nil, err
		}
	}
	if err := t.setChildParent(left.rightChild, leftPageNum); err != nil {
		return nil, nil, err
	}

	leftMax, err := t.nodeMaxKey(leftPageNum)
	if err != nil {
		return nil, nil, err
	}

	root := &internalNode{meta: t.meta, page: rootPageNum, isRoot: true, parent: 0,
		cells: []internalCell{{Child: leftPageNum, Key: leftMax}}, rightChild: invalidPageNum}
	root.serialize(oldPg)

	return left, leftPg, nil
}

func (t *BTree) setChildParent(pageNum, parentPage uint32) error {
	pg, err := t.meta.Pager.GetPage(pageNum)
	if err != nil {
		return err
	}
	if isLeafPage(pg) {
		leaf := loadLeaf(t.meta, pageNum, pg)
		leaf.parent = parentPage
		leaf.serialize(pg)
		return nil
	}
	in := loadInternal(t.meta, pageNum, pg)
	in.parent = parentPage
	in.serialize(pg)
	return nil
}

func (t *BTree) nodeMaxKey(pageNum uint32) ([]byte, error) {
	pg, err := t.meta.Pager.GetPage(pageNum)
	if err != nil {
		return nil, err
	}
	if isLeafPage(pg) {
		leaf := loadLeaf(t.meta, pageNum, pg)
		if len(leaf.cells) == 0 {
			return nil, fmt.Errorf("nodeMaxKey: empty leaf page %d", pageNum)
		}
		return leaf.maxKey(), nil
	}
	in := loadInternal(t.meta, pageNum, pg)
	return t.nodeMaxKey(in.rightChild)
}

// findLeafPage descends from the root following the binary-search rule of
// §4.2.3: smallest k[i] >= key, else the right child.
func (t *BTree) findLeafPage(encKey []byte) (uint32, error) {
	pageNum := uint32(0)
	for {
		pg, err := t.meta.Pager.GetPage(pageNum)
		if err != nil {
			return 0, err
		}
		if isLeafPage(pg) {
			return pageNum, nil
		}
		in := loadInternal(t.meta, pageNum, pg)
		idx := sort.Search(len(in.cells), func(i int) bool {
			return CompareKeys(t.meta.KeyField.Type, in.cells[i].Key, encKey) >= 0
		})
		if idx < len(in.cells) {
			pageNum = in.cells[idx].Child
		} else {
			pageNum = in.rightChild
		}
	}
}

// FindByKey returns the row stored under key, if any (find_by_key, §4.2).
func (t *BTree) FindByKey(key column.Value) (Row, bool, error) {
	encKey := EncodeKey(t.meta.KeyField.Type, t.meta.KeyWidth(), key)
	leafPage, err := t.findLeafPage(encKey)
	if err != nil {
		return nil, false, err
	}
	pg, err := t.meta.Pager.GetPage(leafPage)
	if err != nil {
		return nil, false, err
	}
	leaf := loadLeaf(t.meta, leafPage, pg)
	idx := sort.Search(len(leaf.cells), func(i int) bool {
		return CompareKeys(t.meta.KeyField.Type, leaf.cells[i].Key, encKey) >= 0
	})
	if idx >= len(leaf.cells) || !bytes.Equal(leaf.cells[idx].Key, encKey) {
		return nil, false, nil
	}
	row, err := DeserializeRow(t.meta.Schema, leaf.cells[idx].Row)
	return row, true, err
}

// Cursor walks leaves in ascending key order via the leaf chain.
type Cursor struct {
	tree    *BTree
	pageNum uint32
	leaf    *leafNode
	idx     int
	valid   bool
}

func (t *BTree) cursorAtLeaf(pageNum uint32, idx int) (*Cursor, error) {
	pg, err := t.meta.Pager.GetPage(pageNum)
	if err != nil {
		return nil, err
	}
	leaf := loadLeaf(t.meta, pageNum, pg)
	c := &Cursor{tree: t, pageNum: pageNum, leaf: leaf, idx: idx, valid: idx < len(leaf.cells)}
	for !c.valid && leaf.next != 0 {
		pageNum = leaf.next
		pg, err = t.meta.Pager.GetPage(pageNum)
		if err != nil {
			return nil, err
		}
		leaf = loadLeaf(t.meta, pageNum, pg)
		c.pageNum, c.leaf, c.idx = pageNum, leaf, 0
		c.valid = len(leaf.cells) > 0
	}
	return c, nil
}

// FirstCursor descends the leftmost path and returns a cursor at the first
// key (find_smallest, §4.2).
func (t *BTree) FirstCursor() (*Cursor, error) {
	pageNum := uint32(0)
	for {
		pg, err := t.meta.Pager.GetPage(pageNum)
		if err != nil {
			return nil, err
		}
		if isLeafPage(pg) {
			break
		}
		in := loadInternal(t.meta, pageNum, pg)
		if len(in.cells) > 0 {
			pageNum = in.cells[0].Child
		} else {
			pageNum = in.rightChild
		}
	}
	return t.cursorAtLeaf(pageNum, 0)
}

// CursorFromKey positions a cursor at the first key >= key (§4.2.3).
func (t *BTree) CursorFromKey(key column.Value) (*Cursor, error) {
	encKey := EncodeKey(t.meta.KeyField.Type, t.meta.KeyWidth(), key)
	leafPage, err := t.findLeafPage(encKey)
	if err != nil {
		return nil, err
	}
	pg, err := t.meta.Pager.GetPage(leafPage)
	if err != nil {
		return nil, err
	}
	leaf := loadLeaf(t.meta, leafPage, pg)
	idx := sort.Search(len(leaf.cells), func(i int) bool {
		return CompareKeys(t.meta.KeyField.Type, leaf.cells[i].Key, encKey) >= 0
	})
	return t.cursorAtLeaf(leafPage, idx)
}

func (c *Cursor) Valid() bool        { return c.valid }
func (c *Cursor) Key() column.Value  { return DecodeKey(c.tree.meta.KeyField.Type, c.leaf.cells[c.idx].Key) }
func (c *Cursor) Row() (Row, error)  { return DeserializeRow(c.tree.meta.Schema, c.leaf.cells[c.idx].Row) }

// Next advances to the next key in ascending order, following next_leaf at
// the end of a leaf.
func (c *Cursor) Next() error {
	if !c.valid {
		return nil
	}
	c.idx++
	for c.idx >= len(c.leaf.cells) {
		if c.leaf.next == 0 {
			c.valid = false
			return nil
		}
		pg, err := c.tree.meta.Pager.GetPage(c.leaf.next)
		if err != nil {
			return err
		}
		c.pageNum = c.leaf.next
		c.leaf = loadLeaf(c.tree.meta, c.pageNum, pg)
		c.idx = 0
	}
	c.valid = true
	return nil
}

// FindSmallest returns the row under the smallest key, if the tree is non-empty.
func (t *BTree) FindSmallest() (Row, bool, error) {
	c, err := t.FirstCursor()
	if err != nil {
		return nil, false, err
	}
	if !c.Valid() {
		return nil, false, nil
	}
	row, err := c.Row()
	return row, true, err
}

// FindBiggest returns the row under the largest key, if the tree is non-empty.
func (t *BTree) FindBiggest() (Row, bool, error) {
	pageNum := uint32(0)
	for {
		pg, err := t.meta.Pager.GetPage(pageNum)
		if err != nil {
			return nil, false, err
		}
		if isLeafPage(pg) {
			leaf := loadLeaf(t.meta, pageNum, pg)
			if len(leaf.cells) == 0 {
				return nil, false, nil
			}
			row, err := DeserializeRow(t.meta.Schema, leaf.cells[len(leaf.cells)-1].Row)
			return row, true, err
		}
		in := loadInternal(t.meta, pageNum, pg)
		pageNum = in.rightChild
	}
}

// ScanAll walks the leaf chain from the leftmost leaf (scan_all, §4.2).
func (t *BTree) ScanAll() ([]Row, error) {
	return t.scanFrom(func() (*Cursor, error) { return t.FirstCursor() }, nil)
}

// ScanFromKey walks the leaf chain starting at the first key >= key,
// collecting rows that satisfy match (nil matches everything). Used by the
// executor's index-assisted AND-bound scan (§4.5.1).
func (t *BTree) ScanFromKey(key column.Value, match func(Row) bool) ([]Row, error) {
	return t.scanFrom(func() (*Cursor, error) { return t.CursorFromKey(key) }, match)
}

// ScanAllWhere is a full leaf-chain scan with a row predicate, used as the
// fallback when no AND-bound expression names the primary key (§4.5.1).
func (t *BTree) ScanAllWhere(match func(Row) bool) ([]Row, error) {
	return t.scanFrom(func() (*Cursor, error) { return t.FirstCursor() }, match)
}

func (t *BTree) scanFrom(start func() (*Cursor, error), match func(Row) bool) ([]Row, error) {
	c, err := start()
	if err != nil {
		return nil, err
	}
	var out []Row
	for c.Valid() {
		row, err := c.Row()
		if err != nil {
			return nil, err
		}
		if match == nil || match(row) {
			out = append(out, row)
		}
		if err := c.Next(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PrintTree writes a recursive, indented dump of the tree for the shell's
// `btree <table>;` meta-command (§6.2), grounded on the original source's
// print_tree.
func (t *BTree) PrintTree(w io.Writer) error {
	return t.printNode(w, 0, 0)
}

func (t *BTree) printNode(w io.Writer, pageNum uint32, depth int) error {
	pg, err := t.meta.Pager.GetPage(pageNum)
	if err != nil {
		return err
	}
	indent := strings.Repeat("  ", depth)
	if isLeafPage(pg) {
		leaf := loadLeaf(t.meta, pageNum, pg)
		fmt.Fprintf(w, "%s- leaf (page %d, %d cells)\n", indent, pageNum, len(leaf.cells))
		for _, c := range leaf.cells {
			fmt.Fprintf(w, "%s    * %s\n", indent, DecodeKey(t.meta.KeyField.Type, c.Key).String())
		}
		return nil
	}
	in := loadInternal(t.meta, pageNum, pg)
	fmt.Fprintf(w, "%s- internal (page %d, %d keys)\n", indent, pageNum, len(in.cells))
	for _, c := range in.cells {
		if err := t.printNode(w, c.Child, depth+1); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s  key %s\n", indent, DecodeKey(t.meta.KeyField.Type, c.Key).String())
	}
	return t.printNode(w, in.rightChild, depth+1)
}
