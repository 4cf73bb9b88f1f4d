package snapio

import (
	"path/filepath"
	"strconv"

	g_error "github.com/phil-mansfield/mpgio/lib/error"
	"github.com/phil-mansfield/mpgio/lib/header"
)

// Catalog describes how one field of one particle species is split into
// shards.
type Catalog struct {
	Species int
	Field   Field
	Dir     string
	Header  *header.Field
}

// FieldDir returns the directory holding a field of a species.
func FieldDir(root string, species int, field Field) string {
	return filepath.Join(root, strconv.Itoa(species), field.String())
}

// OpenCatalog reads the header of a field of a species and checks that its
// element type and record width make sense for that field.
func OpenCatalog(root string, species int, field Field) (*Catalog, error) {
	dir := FieldDir(root, species, field)
	path := filepath.Join(dir, FieldHeaderName)

	hd, err := header.ReadField(path)
	if err != nil {
		return nil, err
	}

	info := field.info()
	if info.integer && !hd.DType.IsInt() {
		return nil, g_error.New(g_error.MalformedHeader, path, "DTYPE",
			"%s must be stored as integers, not '%s'", field, hd.DType)
	} else if !info.integer && !hd.DType.IsFloat() {
		return nil, g_error.New(g_error.MalformedHeader, path, "DTYPE",
			"%s must be stored as floats, not '%s'", field, hd.DType)
	} else if hd.NMemb != info.nmemb {
		return nil, g_error.New(g_error.MalformedHeader, path, "NMEMB",
			"%s has %d elements per record, not %d",
			field, info.nmemb, hd.NMemb)
	}

	return &Catalog{Species: species, Field: field, Dir: dir, Header: hd}, nil
}

// Total returns the number of records in the field.
func (c *Catalog) Total() int64 { return c.Header.Total() }

// Check returns a CountMismatch error if the field doesn't have exactly
// expected records.
func (c *Catalog) Check(expected int64) error {
	if total := c.Total(); total != expected {
		return g_error.New(g_error.CountMismatch,
			filepath.Join(c.Dir, FieldHeaderName), c.Field.String(),
			"the shards hold %d records, but the snapshot header says "+
				"species %d has %d particles", total, c.Species, expected)
	}
	return nil
}

// Offsets returns the index of the first record of each shard within the
// field. The final element is the total number of records.
func (c *Catalog) Offsets() []int64 {
	offsets := make([]int64, len(c.Header.Shards)+1)
	for i, s := range c.Header.Shards {
		offsets[i+1] = offsets[i] + s.N
	}
	return offsets
}

// ShardPath returns the path to shard i.
func (c *Catalog) ShardPath(i int) string {
	return filepath.Join(c.Dir, c.Header.Shards[i].Name)
}
