package pager

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	// TableMaxPages bounds how many pages a single storage file may hold.
	TableMaxPages = 100
	PageSize      = 4096

	// HeaderPrefix is the one page reserved at the front of every storage
	// file for the per-table storage header (§6.1); page 0 in Pager's own
	// numbering is always the file's byte range right after this prefix,
	// so the B+Tree root is always page 0 (§3.3) without needing a separate
	// root-pointer indirection.
	HeaderPrefix = PageSize
)

// Page is one cached 4096-byte page. Dirty pages are written back on flush;
// there is no eviction in the core (§3.5).
type Page struct {
	Data    [PageSize]byte
	Pager   *Pager
	PageNum uint32
	Dirty   bool
}

// MarkDirty records that the page has pending writes (mark_updated, §4.1).
func (p *Page) MarkDirty() { p.Dirty = true }

// Pager is a fixed-size page cache over a single file.
type Pager struct {
	File     *os.File
	Pages    []*Page
	NumPages int
}

// OpenPager opens or creates path and derives NumPages from its length,
// excluding the fixed HeaderPrefix (§4.1). A file whose length is neither 0
// (brand new) nor HeaderPrefix plus a whole-page multiple is corrupt.
func OpenPager(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	fileSize := fi.Size()
	var numPages int
	switch {
	case fileSize == 0:
		numPages = 0
	case fileSize < HeaderPrefix:
		return nil, fmt.Errorf("open %s: corrupt file: length %d smaller than the storage header", path, fileSize)
	default:
		remaining := fileSize - HeaderPrefix
		if remaining%PageSize != 0 {
			return nil, fmt.Errorf("open %s: corrupt file: length %d is not a whole-page multiple past the header", path, fileSize)
		}
		numPages = int(remaining / PageSize)
	}

	return &Pager{File: f, Pages: make([]*Page, numPages), NumPages: numPages}, nil
}

func (p *Pager) pageOffset(pageNum uint32) int64 {
	return HeaderPrefix + int64(pageNum)*PageSize
}

func (p *Pager) loadPageFromDisk(pageNum uint32) (*Page, error) {
	pg := &Page{Pager: p, PageNum: pageNum}
	n, err := p.File.ReadAt(pg.Data[:], p.pageOffset(pageNum))
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "read page %d", pageNum)
	}
	_ = n
	return pg, nil
}

// GetPage returns the cached page, loading it from disk on first access.
// An out-of-range index is a programmer bug and aborts the process (§7).
func (p *Pager) GetPage(pageNum uint32) (*Page, error) {
	if pageNum >= TableMaxPages {
		panic(fmt.Sprintf("GetPage: page %d out of bounds (max %d)", pageNum, TableMaxPages))
	}
	if pageNum >= uint32(p.NumPages) {
		return nil, fmt.Errorf("GetPage: page %d beyond EOF (%d pages)", pageNum, p.NumPages)
	}
	if p.Pages[pageNum] == nil {
		pg, err := p.loadPageFromDisk(pageNum)
		if err != nil {
			return nil, err
		}
		p.Pages[pageNum] = pg
	}
	return p.Pages[pageNum], nil
}

// GetOrCreatePage returns the page at pageNum, allocating zero-filled pages
// up to and including it if it lies beyond the current end of file.
func (p *Pager) GetOrCreatePage(pageNum uint32) (*Page, error) {
	if pageNum >= TableMaxPages {
		panic(fmt.Sprintf("GetOrCreatePage: page %d out of bounds (max %d)", pageNum, TableMaxPages))
	}
	if pageNum < uint32(p.NumPages) {
		return p.GetPage(pageNum)
	}
	for uint32(p.NumPages) <= pageNum {
		pg := &Page{Pager: p, PageNum: uint32(p.NumPages), Dirty: true}
		p.Pages = append(p.Pages, pg)
		p.NumPages++
	}
	return p.Pages[pageNum], nil
}

// UnusedPageNum returns the next free page index (NumPages).
func (p *Pager) UnusedPageNum() uint32 { return uint32(p.NumPages) }

// AllocatePage grows the file by one zero-filled page and returns its index.
func (p *Pager) AllocatePage() (uint32, error) {
	n := uint32(p.NumPages)
	if n >= TableMaxPages {
		return 0, fmt.Errorf("AllocatePage: table full (max %d pages)", TableMaxPages)
	}
	pg := &Page{Pager: p, PageNum: n, Dirty: true}
	p.Pages = append(p.Pages, pg)
	p.NumPages++
	return n, nil
}

// FlushPage writes the page back to its file offset if it is loaded.
func (p *Pager) FlushPage(pageNum uint32) error {
	if int(pageNum) >= len(p.Pages) {
		return nil
	}
	pg := p.Pages[pageNum]
	if pg == nil {
		return nil
	}
	if _, err := p.File.WriteAt(pg.Data[:], p.pageOffset(pageNum)); err != nil {
		return errors.Wrapf(err, "flush page %d", pageNum)
	}
	pg.Dirty = false
	return nil
}

// FlushAll flushes every dirty page and syncs the file.
func (p *Pager) FlushAll() error {
	for i, pg := range p.Pages {
		if pg != nil && pg.Dirty {
			if err := p.FlushPage(uint32(i)); err != nil {
				return err
			}
		}
	}
	return errors.Wrap(p.File.Sync(), "sync")
}

// ReadHeader returns the HeaderPrefix bytes reserved at the front of the
// file for the per-table storage header (§6.1).
func (p *Pager) ReadHeader() ([]byte, error) {
	buf := make([]byte, HeaderPrefix)
	if _, err := p.File.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "read storage header")
	}
	return buf, nil
}

// WriteHeader writes data (padded with zeros) into the storage header.
func (p *Pager) WriteHeader(data []byte) error {
	if len(data) > HeaderPrefix {
		return fmt.Errorf("WriteHeader: header %d bytes exceeds the reserved %d", len(data), HeaderPrefix)
	}
	buf := make([]byte, HeaderPrefix)
	copy(buf, data)
	if _, err := p.File.WriteAt(buf, 0); err != nil {
		return errors.Wrap(err, "write storage header")
	}
	return nil
}

// Close flushes every dirty page and closes the underlying file.
func (p *Pager) Close() error {
	if err := p.FlushAll(); err != nil {
		return err
	}
	return p.File.Close()
}
