package table

import (
	"encoding/binary"
	"fmt"

	"db/column"
	"db/pager"
)

// seqPageHeaderSize is the 4-byte num_cells header at the front of every
// sequential page (§3.3, §6.1) — no node_type tag, since a sequential file
// never mixes page kinds.
const seqPageHeaderSize = 4

// SequentialTable is an unordered append-only heap: insert writes to the
// tail page's next free slot, allocating a new page when the tail is full;
// scan_all walks pages in order (§4.3).
type SequentialTable struct {
	pager        *pager.Pager
	schema       *column.Schema
	cellsPerPage uint32
}

// OpenSequentialTable opens (or initialises) the heap described by the
// reserved storage header: `cells_per_page`, derived at create time from
// (PAGE_SIZE - header) / row_size (§6.1).
func OpenSequentialTable(p *pager.Pager, schema *column.Schema) (*SequentialTable, error) {
	cellsPerPage := (pager.PageSize - seqPageHeaderSize) / schema.RowSize
	if cellsPerPage == 0 {
		return nil, fmt.Errorf("OpenSequentialTable: row size %d leaves no room for a cell on a page", schema.RowSize)
	}

	hdr, err := p.ReadHeader()
	if err != nil {
		return nil, err
	}
	stored := binary.LittleEndian.Uint32(hdr[:4])
	if stored == 0 {
		if err := writeSeqHeader(p, cellsPerPage); err != nil {
			return nil, err
		}
	} else {
		cellsPerPage = stored
	}

	if p.NumPages == 0 {
		if _, err := p.AllocatePage(); err != nil {
			return nil, err
		}
	}

	return &SequentialTable{pager: p, schema: schema, cellsPerPage: cellsPerPage}, nil
}

// Pager exposes the heap's underlying pager, for flushing at the shell's
// `flush;`/`exit;` meta-commands (§3.5).
func (t *SequentialTable) Pager() *pager.Pager { return t.pager }

func writeSeqHeader(p *pager.Pager, cellsPerPage uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, cellsPerPage)
	return p.WriteHeader(buf)
}

func seqNumCells(pg *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(pg.Data[0:4])
}

func seqSetNumCells(pg *pager.Page, n uint32) {
	binary.LittleEndian.PutUint32(pg.Data[0:4], n)
	pg.Dirty = true
}

// Insert appends row to the tail page, allocating a new tail if full.
func (t *SequentialTable) Insert(row Row) error {
	tailNum := uint32(t.pager.NumPages - 1)
	tailPg, err := t.pager.GetPage(tailNum)
	if err != nil {
		return err
	}
	numCells := seqNumCells(tailPg)

	if numCells >= t.cellsPerPage {
		newNum, err := t.pager.AllocatePage()
		if err != nil {
			return err
		}
		tailPg, err = t.pager.GetPage(newNum)
		if err != nil {
			return err
		}
		numCells = 0
	}

	rowSize := t.schema.RowSize
	off := seqPageHeaderSize + numCells*rowSize
	buf := make([]byte, rowSize)
	if err := SerializeRow(t.schema, row, buf); err != nil {
		return err
	}
	copy(tailPg.Data[off:off+rowSize], buf)
	seqSetNumCells(tailPg, numCells+1)
	return nil
}

// ScanAll walks every page in order, decoding its stored rows (scan_all, §4.3).
func (t *SequentialTable) ScanAll() ([]Row, error) {
	return t.ScanAllWhere(nil)
}

// ScanAllWhere is a full scan with a row predicate; used as the sole
// evaluation path for sequential tables, which have no index (§4.5.1).
func (t *SequentialTable) ScanAllWhere(match func(Row) bool) ([]Row, error) {
	var out []Row
	rowSize := t.schema.RowSize
	for pageNum := uint32(0); pageNum < uint32(t.pager.NumPages); pageNum++ {
		pg, err := t.pager.GetPage(pageNum)
		if err != nil {
			return nil, err
		}
		numCells := seqNumCells(pg)
		for i := uint32(0); i < numCells; i++ {
			off := seqPageHeaderSize + i*rowSize
			row, err := DeserializeRow(t.schema, pg.Data[off:off+rowSize])
			if err != nil {
				return nil, err
			}
			if match == nil || match(row) {
				out = append(out, row)
			}
		}
	}
	return out, nil
}
