package snapio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"

	g_error "github.com/phil-mansfield/mpgio/lib/error"
	"github.com/phil-mansfield/mpgio/lib/header"
)

// ShardReader streams the records of a single shard file. The records are
// read exactly once, in storage order: all the components of record 0, then
// all the components of record 1, and so on. A new ShardReader must be opened
// to read a shard again.
type ShardReader struct {
	path  string
	name  string
	file  *os.File
	rd    *bufio.Reader
	dt    header.DType
	order binary.ByteOrder
	nmemb int
	left  int64
	raw   []byte
}

// OpenShard opens the shard at path, which should contain n records of nmemb
// elements of type dt. order is used if dt doesn't specify a byte order.
// Shards which are shorter than that return a TruncatedShard error and
// shards which are longer return a CountMismatch.
func OpenShard(
	path string, dt header.DType, nmemb int, n int64, order binary.ByteOrder,
) (*ShardReader, error) {
	name := filepath.Base(path)
	if dt.Order != nil {
		order = dt.Order
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, g_error.Wrap(g_error.IoError, err, path, name,
			"the shard cannot be opened")
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, g_error.Wrap(g_error.IoError, err, path, name,
			"the shard cannot be accessed")
	}

	size := n * int64(nmemb) * int64(dt.Size)
	if info.Size() < size {
		file.Close()
		return nil, g_error.New(g_error.TruncatedShard, path, name,
			"%d records of %d '%s' elements need %d bytes, but the shard "+
				"only has %d", n, nmemb, dt, size, info.Size())
	} else if info.Size() > size {
		file.Close()
		return nil, g_error.New(g_error.CountMismatch, path, name,
			"the header declares %d records (%d bytes), but the shard has "+
				"%d bytes", n, size, info.Size())
	}

	return &ShardReader{
		path: path, name: name, file: file, rd: bufio.NewReader(file),
		dt: dt, order: order, nmemb: nmemb, left: n,
	}, nil
}

// Left returns the number of records which haven't been read yet.
func (s *ShardReader) Left() int64 { return s.left }

// Close closes the underlying file.
func (s *ShardReader) Close() error { return s.file.Close() }

// ReadRows reads the next block of records from s into g, filling g as far
// as possible. It returns the number of records read and io.EOF once every
// record in the shard has been read.
func ReadRows[T Number](s *ShardReader, g *Grid[T]) (int, error) {
	if g.Cols() != s.nmemb {
		return 0, g_error.New(g_error.MalformedHeader, s.path, s.name,
			"the shard has %d elements per record, but %d were expected",
			s.nmemb, g.Cols())
	}
	if s.left == 0 {
		g.resize(0)
		return 0, io.EOF
	}

	rows := g.MaxRows()
	if int64(rows) > s.left {
		rows = int(s.left)
	}

	nBytes := rows * s.nmemb * s.dt.Size
	if cap(s.raw) < nBytes {
		s.raw = make([]byte, nBytes)
	}
	raw := s.raw[:nBytes]

	if _, err := io.ReadFull(s.rd, raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, g_error.Wrap(g_error.TruncatedShard, err, s.path,
				s.name, "the shard ended with %d records left to read",
				s.left)
		}
		return 0, g_error.Wrap(g_error.IoError, err, s.path, s.name,
			"the shard could not be read")
	}

	g.resize(rows)
	decode(g.Data(), raw, s.dt, s.order)
	s.left -= int64(rows)

	return rows, nil
}
