package snapio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeShard is a shard of a fake field. data is a []int64, []uint64,
// []float32 or []float64 array holding every element of every record.
type fakeShard struct {
	name string
	data interface{}
}

// fakeField describes a field header and the shards written under it.
type fakeField struct {
	dtype  string
	nmemb  int
	shards []fakeShard
}

// writeAttrs writes a global header with the given counts and mass table.
func writeAttrs(
	t *testing.T, root string, counts [6]int64, masses [6]float64,
	extra ...string,
) {
	t.Helper()

	lines := []string{
		"BoxSize #HUMANE [ 100000 ]",
		"HubbleParam #HUMANE [ 0.7 ]",
		"Omega0 #HUMANE [ 0.25 ]",
		"OmegaLambda #HUMANE [ 0.75 ]",
		"TimeIC #HUMANE [ 0.01 ]",
		"Time #HUMANE [ 0.5 ]",
		"MassTable #HUMANE [ " + join(masses[:]) + " ]",
		"TotNumPartInit #HUMANE [ 1 1 1 1 1 1 ]",
		"TotNumPart #HUMANE [ " + join(counts[:]) + " ]",
	}
	lines = append(lines, extra...)

	writeFile(t, filepath.Join(root, AttrsPath),
		[]byte(strings.Join(lines, "\n")+"\n"))
}

// writeField writes a field header and its shards. The shards are listed in
// the header in the order given.
func writeField(t *testing.T, root string, species int, field Field, f fakeField) {
	t.Helper()
	dir := FieldDir(root, species, field)

	hd := &bytes.Buffer{}
	fmt.Fprintf(hd, "DTYPE: %s\nNMEMB: %d\nNFILE: %d\n",
		f.dtype, f.nmemb, len(f.shards))
	for _, s := range f.shards {
		fmt.Fprintf(hd, "%s: %d : 0 : 0\n", s.name, elements(s.data)/f.nmemb)
	}
	writeFile(t, filepath.Join(dir, FieldHeaderName), hd.Bytes())

	order := binary.ByteOrder(binary.LittleEndian)
	if strings.HasPrefix(f.dtype, ">") {
		order = binary.BigEndian
	}
	for _, s := range f.shards {
		writeFile(t, filepath.Join(dir, s.name), toBytes(t, s.data, order))
	}
}

// writeSpecies writes all four fields of a species with a single shard each.
// x and v hold three components per particle.
func writeSpecies(
	t *testing.T, root string, species int,
	id []int64, mass []float32, x, v []float32,
) {
	t.Helper()
	writeField(t, root, species, ID,
		fakeField{"<i8", 1, []fakeShard{{"000000", id}}})
	writeField(t, root, species, Mass,
		fakeField{"<f4", 1, []fakeShard{{"000000", mass}}})
	writeField(t, root, species, Position,
		fakeField{"<f4", 3, []fakeShard{{"000000", x}}})
	writeField(t, root, species, Velocity,
		fakeField{"<f4", 3, []fakeShard{{"000000", v}}})
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func toBytes(t *testing.T, x interface{}, order binary.ByteOrder) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, order, x))
	return buf.Bytes()
}

func elements(x interface{}) int {
	switch xx := x.(type) {
	case []int64:
		return len(xx)
	case []uint64:
		return len(xx)
	case []float32:
		return len(xx)
	case []float64:
		return len(xx)
	}
	panic("Internal error: unrecognized fake shard type.")
}

func join[T any](x []T) string {
	s := make([]string, len(x))
	for i := range x {
		s[i] = fmt.Sprint(x[i])
	}
	return strings.Join(s, " ")
}

// testConfig is a config with the default factors except for length, which is
// left alone to keep expected values readable.
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Units.Length = 1
	cfg.BlockRows = 2
	return cfg
}
