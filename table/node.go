package table

import (
	"encoding/binary"

	"db/pager"
)

// leafCell is a (key, row) pair; row holds the already-serialized row bytes
// so a node can be loaded and re-serialized without decoding values it never
// inspects (§3.4: "row bytes are opaque to the pager").
type leafCell struct {
	Key []byte
	Row []byte
}

// internalCell is a (child_page, key) pair. The owning node's right_child_page
// acts as an implicit (N+1)th child holding keys past the last cell (§3.3).
type internalCell struct {
	Child uint32
	Key   []byte
}

// leafNode is the in-memory form of a B+Tree leaf page.
type leafNode struct {
	meta   *BTreeMeta
	page   uint32
	isRoot bool
	parent uint32
	next   uint32
	cells  []leafCell
}

func newLeafNode(meta *BTreeMeta, page uint32, isRoot bool) *leafNode {
	return &leafNode{meta: meta, page: page, isRoot: isRoot}
}

func loadLeaf(meta *BTreeMeta, page uint32, pg *pager.Page) *leafNode {
	n := &leafNode{meta: meta, page: page}
	n.isRoot = pg.Data[1] == 1
	n.parent = binary.LittleEndian.Uint32(pg.Data[2:6])
	numCells := binary.LittleEndian.Uint32(pg.Data[6:10])
	n.next = binary.LittleEndian.Uint32(pg.Data[10:14])

	kw := int(meta.KeyWidth())
	rs := int(meta.Schema.RowSize)
	n.cells = make([]leafCell, numCells)
	off := leafHeaderSize
	for i := 0; i < int(numCells); i++ {
		key := append([]byte(nil), pg.Data[off:off+kw]...)
		off += kw
		row := append([]byte(nil), pg.Data[off:off+rs]...)
		off += rs
		n.cells[i] = leafCell{Key: key, Row: row}
	}
	return n
}

func (n *leafNode) serialize(pg *pager.Page) {
	for i := range pg.Data {
		pg.Data[i] = 0
	}
	pg.Data[0] = nodeTypeLeaf
	if n.isRoot {
		pg.Data[1] = 1
	}
	binary.LittleEndian.PutUint32(pg.Data[2:6], n.parent)
	binary.LittleEndian.PutUint32(pg.Data[6:10], uint32(len(n.cells)))
	binary.LittleEndian.PutUint32(pg.Data[10:14], n.next)

	kw := int(n.meta.KeyWidth())
	rs := int(n.meta.Schema.RowSize)
	off := leafHeaderSize
	for _, c := range n.cells {
		copy(pg.Data[off:off+kw], c.Key)
		off += kw
		copy(pg.Data[off:off+rs], c.Row)
		off += rs
	}
	pg.Dirty = true
}

func (n *leafNode) maxKey() []byte { return n.cells[len(n.cells)-1].Key }

// internalNode is the in-memory form of a B+Tree internal page.
type internalNode struct {
	meta       *BTreeMeta
	page       uint32
	isRoot     bool
	parent     uint32
	rightChild uint32
	cells      []internalCell
}

func loadInternal(meta *BTreeMeta, page uint32, pg *pager.Page) *internalNode {
	n := &internalNode{meta: meta, page: page}
	n.isRoot = pg.Data[1] == 1
	n.parent = binary.LittleEndian.Uint32(pg.Data[2:6])
	numKeys := binary.LittleEndian.Uint32(pg.Data[6:10])
	n.rightChild = binary.LittleEndian.Uint32(pg.Data[10:14])

	kw := int(meta.KeyWidth())
	n.cells = make([]internalCell, numKeys)
	off := internalHeaderSize
	for i := 0; i < int(numKeys); i++ {
		child := binary.LittleEndian.Uint32(pg.Data[off : off+4])
		off += 4
		key := append([]byte(nil), pg.Data[off:off+kw]...)
		off += kw
		n.cells[i] = internalCell{Child: child, Key: key}
	}
	return n
}

func (n *internalNode) serialize(pg *pager.Page) {
	for i := range pg.Data {
		pg.Data[i] = 0
	}
	pg.Data[0] = nodeTypeInternal
	if n.isRoot {
		pg.Data[1] = 1
	}
	binary.LittleEndian.PutUint32(pg.Data[2:6], n.parent)
	binary.LittleEndian.PutUint32(pg.Data[6:10], uint32(len(n.cells)))
	binary.LittleEndian.PutUint32(pg.Data[10:14], n.rightChild)

	kw := int(n.meta.KeyWidth())
	off := internalHeaderSize
	for _, c := range n.cells {
		binary.LittleEndian.PutUint32(pg.Data[off:off+4], c.Child)
		off += 4
		copy(pg.Data[off:off+kw], c.Key)
		off += kw
	}
	pg.Dirty = true
}

// isLeafPage inspects the node_type tag byte without fully loading the node.
func isLeafPage(pg *pager.Page) bool { return pg.Data[0] == nodeTypeLeaf }
