package snapio

/* This file handles the typed buffers that shard data is decoded into. */

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/phil-mansfield/mpgio/lib/header"
)

// Number is the set of types that shard elements can be decoded into.
// Integer fields are decoded to int64 and float fields to float64.
type Number interface {
	int64 | float64
}

// Grid is a rows × components view over decoded records. It's the only place
// where a record's components are located inside a flat array, so that the
// rest of the package never needs to index by hand.
type Grid[T Number] struct {
	data       []T
	rows, cols int
}

// NewGrid creates a Grid that can hold up to maxRows records with cols
// components each.
func NewGrid[T Number](maxRows, cols int) *Grid[T] {
	if maxRows < 1 || cols < 1 {
		panic(fmt.Sprintf("Internal error: cannot make a %d x %d Grid.",
			maxRows, cols))
	}
	return &Grid[T]{data: make([]T, maxRows*cols), cols: cols}
}

// Rows returns the number of records currently held.
func (g *Grid[T]) Rows() int { return g.rows }

// Cols returns the number of components per record.
func (g *Grid[T]) Cols() int { return g.cols }

// MaxRows returns the number of records the Grid can hold.
func (g *Grid[T]) MaxRows() int { return len(g.data) / g.cols }

// At returns component c of record r.
func (g *Grid[T]) At(r, c int) T { return g.data[r*g.cols+c] }

// Row returns the components of record r.
func (g *Grid[T]) Row(r int) []T { return g.data[r*g.cols : (r+1)*g.cols] }

// Data returns the held records as a flat, row-major array.
func (g *Grid[T]) Data() []T { return g.data[:g.rows*g.cols] }

// resize sets the number of held records.
func (g *Grid[T]) resize(rows int) {
	if rows > g.MaxRows() {
		panic(fmt.Sprintf("Internal error: %d rows requested from a Grid "+
			"with room for %d.", rows, g.MaxRows()))
	}
	g.rows = rows
}

// decode converts raw elements of type dt into dst. raw must have exactly
// len(dst)*dt.Size bytes.
func decode[T Number](
	dst []T, raw []byte, dt header.DType, order binary.ByteOrder,
) {
	switch dt.Kind {
	case 'f':
		if dt.Size == 4 {
			for i := range dst {
				dst[i] = T(math.Float32frombits(order.Uint32(raw[4*i:])))
			}
		} else {
			for i := range dst {
				dst[i] = T(math.Float64frombits(order.Uint64(raw[8*i:])))
			}
		}
	case 'i':
		if dt.Size == 4 {
			for i := range dst {
				dst[i] = T(int32(order.Uint32(raw[4*i:])))
			}
		} else {
			for i := range dst {
				dst[i] = T(int64(order.Uint64(raw[8*i:])))
			}
		}
	case 'u':
		if dt.Size == 4 {
			for i := range dst {
				dst[i] = T(order.Uint32(raw[4*i:]))
			}
		} else {
			for i := range dst {
				dst[i] = T(order.Uint64(raw[8*i:]))
			}
		}
	default:
		panic(fmt.Sprintf("Internal error: unrecognized dtype '%s'.", dt))
	}
}
