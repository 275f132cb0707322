package executor

import "db/catalog"

// Executor translates parsed statements into operations over the catalog
// (§4.5): SELECT/INSERT/CREATE, predicate evaluation, projection, and sort.
type Executor struct {
	Catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *Executor {
	return &Executor{Catalog: c}
}
