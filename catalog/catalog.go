package catalog

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"db/column"
	"db/dberr"
	"db/pager"
	"db/table"
)

// OpenStorage is one open storage unit behind a table name: a B+Tree if the
// schema has a primary key, a sequential heap otherwise (§3.2, §4.4).
type OpenStorage struct {
	BTree *table.BTree
	Seq   *table.SequentialTable
}

// ScanAll returns every row of the storage unit in its native order.
func (s *OpenStorage) ScanAll() ([]table.Row, error) {
	if s.BTree != nil {
		return s.BTree.ScanAll()
	}
	return s.Seq.ScanAll()
}

func (s *OpenStorage) Insert(schema *column.Schema, row table.Row) error {
	if s.BTree != nil {
		keyField, _ := schema.PrimaryKey()
		key, _ := table.FieldValue(schema, row, keyField.Name)
		return s.BTree.Insert(key, row)
	}
	return s.Seq.Insert(row)
}

// OpenTable is a table's reconstructed schema plus its single open storage
// unit: the .idx B+Tree if the schema has a primary key, the .seq heap
// otherwise. No other data file in the table directory is opened.
type OpenTable struct {
	Name    string
	Schema  *column.Schema
	Storage *OpenStorage
}

// Catalog maintains table_name -> (schema, open storage), lazily opening
// each table directory on first access (§4.4).
type Catalog struct {
	dir    string
	tables map[string]*OpenTable
}

func New(dir string) *Catalog {
	return &Catalog{dir: dir, tables: make(map[string]*OpenTable)}
}

func (c *Catalog) tableDir(name string) string { return filepath.Join(c.dir, name) }
func (c *Catalog) frmPath(name string) string  { return filepath.Join(c.tableDir(name), name+".frm") }
func (c *Catalog) idxPath(name string) string  { return filepath.Join(c.tableDir(name), name+".idx") }
func (c *Catalog) seqPath(name string) string  { return filepath.Join(c.tableDir(name), name+".seq") }

// CreateTable implements CREATE TABLE (§4.4): fails if the table's .frm
// already exists; otherwise creates the directory, writes the schema, and
// primes either a B+Tree (.idx) or sequential (.seq) data file.
func (c *Catalog) CreateTable(name string, fields []column.Field) error {
	if _, err := os.Stat(c.frmPath(name)); err == nil {
		return dberr.Schemaf("table %q already exists", name)
	}

	schema, err := column.NewSchema(name, fields)
	if err != nil {
		return dberr.Schemaf("%v", err)
	}

	if err := os.MkdirAll(c.tableDir(name), 0755); err != nil {
		return dberr.IOf("create table directory for %q: %v", name, err)
	}
	if err := writeFRM(c.frmPath(name), schema); err != nil {
		return dberr.IOf("write schema for %q: %v", name, err)
	}

	storage, err := c.openStorageForSchema(name, schema, true)
	if err != nil {
		return err
	}

	c.tables[name] = &OpenTable{Name: name, Schema: schema, Storage: storage}
	return nil
}

// Open returns the table's schema and open storage units, opening them from
// disk on first access (§4.4).
func (c *Catalog) Open(name string) (*OpenTable, error) {
	if t, ok := c.tables[name]; ok {
		return t, nil
	}

	schema, err := readFRM(c.frmPath(name), name)
	if err != nil {
		return nil, dberr.Schemaf("table %q: %v", name, err)
	}

	storage, err := c.openStorageForSchema(name, schema, false)
	if err != nil {
		return nil, err
	}

	t := &OpenTable{Name: name, Schema: schema, Storage: storage}
	c.tables[name] = t
	return t, nil
}

func (c *Catalog) openStorageForSchema(name string, schema *column.Schema, creating bool) (*OpenStorage, error) {
	keyField, hasKey := schema.PrimaryKey()
	if hasKey {
		p, err := pager.OpenPager(c.idxPath(name))
		if err != nil {
			return nil, dberr.IOf("open index for %q: %v", name, err)
		}
		if creating {
			if err := writeKeyHeader(p, *keyField); err != nil {
				return nil, err
			}
		} else if err := checkKeyHeader(p, *keyField); err != nil {
			return nil, err
		}
		bt, err := table.OpenBTree(p, schema, *keyField)
		if err != nil {
			return nil, dberr.IOf("open index for %q: %v", name, err)
		}
		return &OpenStorage{BTree: bt}, nil
	}

	p, err := pager.OpenPager(c.seqPath(name))
	if err != nil {
		return nil, dberr.IOf("open heap for %q: %v", name, err)
	}
	seq, err := table.OpenSequentialTable(p, schema)
	if err != nil {
		return nil, dberr.IOf("open heap for %q: %v", name, err)
	}
	return &OpenStorage{Seq: seq}, nil
}

// writeKeyHeader primes a fresh .idx file's reserved storage header with the
// key field's type, width and name (§6.1).
func writeKeyHeader(p *pager.Pager, keyField column.Field) error {
	buf := make([]byte, 1+2+column.FieldNameSize)
	buf[0] = encodeTypePrimaryByte(keyField.Type, true)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(keyField.ValueWidth()))
	copy(buf[3:], keyField.Name)
	return p.WriteHeader(buf)
}

// checkKeyHeader cross-checks the reopened .idx file's stored key field name
// against the schema reconstructed from .frm; the stored type and width are
// not compared.
func checkKeyHeader(p *pager.Pager, keyField column.Field) error {
	hdr, err := p.ReadHeader()
	if err != nil {
		return dberr.IOf("read index header: %v", err)
	}
	storedName := trimZero(hdr[3 : 3+column.FieldNameSize])
	if storedName != keyField.Name {
		return dberr.Schemaf("index key field %q does not match schema key field %q", storedName, keyField.Name)
	}
	return nil
}

// TableDir exposes the directory a table's files live under.
func (c *Catalog) TableDir(name string) string { return c.tableDir(name) }

// FlushAll writes every open table's dirty pages to disk (the `flush;` and
// `exit;` meta-commands, §3.5).
func (c *Catalog) FlushAll() error {
	for name, t := range c.tables {
		if err := t.Storage.flush(); err != nil {
			return fmt.Errorf("flush %q: %w", name, err)
		}
	}
	return nil
}

func (s *OpenStorage) flush() error {
	if s.BTree != nil {
		return s.BTree.Pager().FlushAll()
	}
	return s.Seq.Pager().FlushAll()
}

func (c *Catalog) String() string { return fmt.Sprintf("Catalog(%s)", c.dir) }
