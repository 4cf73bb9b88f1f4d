package header

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	g_error "github.com/phil-mansfield/mpgio/lib/error"
)

// DType is the element type of a field, written in numpy's notation: an
// optional byte order character, a kind ('i', 'u' or 'f'), and a size in
// bytes, e.g. "<f4" or "<i8".
type DType struct {
	Tag  string
	Kind byte
	Size int
	// Order is nil if the tag doesn't specify a byte order. In that case the
	// data is in the order of the machine that wrote it.
	Order binary.ByteOrder
}

// ParseDType parses a dtype tag.
func ParseDType(tag string) (DType, error) {
	dt := DType{Tag: tag}
	s := tag
	if len(s) > 0 {
		switch s[0] {
		case '<':
			dt.Order, s = binary.LittleEndian, s[1:]
		case '>':
			dt.Order, s = binary.BigEndian, s[1:]
		case '=', '|':
			s = s[1:]
		}
	}

	if len(s) != 2 {
		return dt, fmt.Errorf("'%s' is not a recognized dtype", tag)
	}
	dt.Kind, dt.Size = s[0], int(s[1]-'0')

	switch s {
	case "i4", "i8", "u4", "u8", "f4", "f8":
		return dt, nil
	}
	return dt, fmt.Errorf("'%s' is not a supported dtype: only i4, i8, u4, " +
		"u8, f4, and f8 elements can be read", tag)
}

// IsInt returns true if the elements are signed or unsigned integers.
func (dt DType) IsInt() bool { return dt.Kind == 'i' || dt.Kind == 'u' }

// IsFloat returns true if the elements are floating point numbers.
func (dt DType) IsFloat() bool { return dt.Kind == 'f' }

func (dt DType) String() string { return dt.Tag }

// Shard is one file of a field: its name inside the field directory and the
// number of records it holds.
type Shard struct {
	Name string
	N    int64
}

// Field is the content of a field header: the element type, the number of
// elements per record, and the shards in the order they were declared.
type Field struct {
	DType  DType
	NMemb  int
	Shards []Shard
}

// Total returns the number of records summed over all shards.
func (f *Field) Total() int64 {
	n := int64(0)
	for _, s := range f.Shards {
		n += s.N
	}
	return n
}

// ReadField reads the field header at path.
func ReadField(path string) (*Field, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, g_error.Wrap(g_error.IoError, err, path, "",
			"the field header cannot be opened")
	}
	defer file.Close()

	return ParseField(file, path)
}

// ParseField parses a field header from rd. The header starts with DTYPE,
// NMEMB and NFILE lines and is followed by exactly NFILE lines of the form
// "name: records", which may have further ':'-separated columns (bigfile
// writes checksums there) that are ignored. path is only used in error
// messages.
func ParseField(rd io.Reader, path string) (*Field, error) {
	f := &Field{}
	nFile := -1
	seenDType, seenNMemb := false, false
	names := map[string]bool{}

	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		key, value := splitField(line)
		switch key {
		case "DTYPE":
			dt, err := ParseDType(value)
			if err != nil {
				return nil, g_error.Wrap(g_error.MalformedHeader, err, path,
					key, "bad element type")
			}
			f.DType, seenDType = dt, true
			continue
		case "NMEMB", "NFILE":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, g_error.Wrap(g_error.MalformedHeader, err, path,
					key, "'%s' is not an integer", value)
			} else if n < 0 || (key == "NMEMB" && n < 1) {
				return nil, g_error.New(g_error.MalformedHeader, path, key,
					"%d is out of range", n)
			}
			if key == "NMEMB" {
				f.NMemb, seenNMemb = n, true
			} else {
				nFile = n
			}
			continue
		}

		// Everything else is a shard line.
		if nFile == -1 {
			return nil, g_error.New(g_error.MalformedHeader, path, "NFILE",
				"the shard line '%s' comes before the NFILE line", line)
		} else if len(f.Shards) == nFile {
			return nil, g_error.New(g_error.MalformedHeader, path, "NFILE",
				"NFILE is %d, but more shard lines follow", nFile)
		}

		s, err := parseShard(line)
		if err != nil {
			return nil, g_error.Wrap(g_error.MalformedHeader, err, path,
				"", "bad shard line '%s'", line)
		} else if names[s.Name] {
			return nil, g_error.New(g_error.MalformedHeader, path, s.Name,
				"the shard is declared more than once")
		}
		names[s.Name] = true
		f.Shards = append(f.Shards, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, g_error.Wrap(g_error.IoError, err, path, "",
			"the field header could not be read")
	}

	switch {
	case !seenDType:
		return nil, g_error.New(g_error.MalformedHeader, path, "DTYPE",
			"required attribute is missing")
	case !seenNMemb:
		return nil, g_error.New(g_error.MalformedHeader, path, "NMEMB",
			"required attribute is missing")
	case nFile == -1:
		return nil, g_error.New(g_error.MalformedHeader, path, "NFILE",
			"required attribute is missing")
	case len(f.Shards) != nFile:
		return nil, g_error.New(g_error.MalformedHeader, path, "NFILE",
			"NFILE is %d, but only %d shard lines were found",
			nFile, len(f.Shards))
	}

	return f, nil
}

// splitField splits "KEY: value", "KEY value" and "KEY<value" lines into the
// key and value. Lines which aren't attributes return an empty key.
func splitField(line string) (key, value string) {
	for _, k := range []string{"DTYPE", "NMEMB", "NFILE"} {
		if !strings.HasPrefix(line, k) {
			continue
		}
		value = strings.TrimSpace(line[len(k):])
		value = strings.TrimSpace(strings.TrimPrefix(value, ":"))
		return k, value
	}
	return "", ""
}

func parseShard(line string) (Shard, error) {
	tok := strings.Split(line, ":")
	if len(tok) < 2 {
		return Shard{}, fmt.Errorf("expected 'name: records'")
	}

	name := strings.TrimSpace(tok[0])
	if name == "" || strings.ContainsAny(name, "/\\") {
		return Shard{}, fmt.Errorf("'%s' is not a valid shard name", name)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(tok[1]), 10, 64)
	if err != nil {
		return Shard{}, err
	} else if n < 0 {
		return Shard{}, fmt.Errorf("negative record count %d", n)
	}

	return Shard{Name: name, N: n}, nil
}
