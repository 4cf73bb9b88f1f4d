package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	g_error "github.com/phil-mansfield/mpgio/lib/error"
	"github.com/phil-mansfield/mpgio/lib/pipe"
	"github.com/phil-mansfield/mpgio/lib/snapio"
)

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func writeTestField(
	t *testing.T, root string, species int, field snapio.Field,
	dtype string, nmemb int, data interface{}, n int,
) {
	t.Helper()
	dir := snapio.FieldDir(root, species, field)
	hd := fmt.Sprintf("DTYPE: %s\nNMEMB: %d\nNFILE: 1\n000000: %d : 0 : 0\n",
		dtype, nmemb, n)
	writeTestFile(t, filepath.Join(dir, snapio.FieldHeaderName), []byte(hd))

	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, data))
	writeTestFile(t, filepath.Join(dir, "000000"), buf.Bytes())
}

// writeTestSnapshot writes a snapshot with one gas particle and two dark
// matter particles.
func writeTestSnapshot(t *testing.T, root string) {
	t.Helper()
	writeTestFile(t, filepath.Join(root, snapio.AttrsPath), []byte(
		"BoxSize #HUMANE [ 100000 ]\n"+
			"HubbleParam #HUMANE [ 0.7 ]\n"+
			"Omega0 #HUMANE [ 0.25 ]\n"+
			"OmegaLambda #HUMANE [ 0.75 ]\n"+
			"Time #HUMANE [ 0.5 ]\n"+
			"MassTable #HUMANE [ 0 1.5 0 0 0 0 ]\n"+
			"TotNumPart #HUMANE [ 1 2 0 0 0 0 ]\n"))

	writeTestField(t, root, 0, snapio.ID, "<i8", 1, []int64{7}, 1)
	writeTestField(t, root, 0, snapio.Mass, "<f4", 1, []float32{0.1}, 1)
	writeTestField(t, root, 0, snapio.Position, "<f4", 3,
		[]float32{1, 1, 1}, 1)
	writeTestField(t, root, 0, snapio.Velocity, "<f4", 3,
		[]float32{0, 0, 0}, 1)

	writeTestField(t, root, 1, snapio.ID, "<i8", 1, []int64{10, 11}, 2)
	writeTestField(t, root, 1, snapio.Mass, "<f4", 1,
		[]float32{1.5, 1.5}, 2)
	writeTestField(t, root, 1, snapio.Position, "<f4", 3,
		[]float32{1000, 2000, 3000, 4000, 5000, 6000}, 2)
	writeTestField(t, root, 1, snapio.Velocity, "<f4", 3,
		[]float32{1, 2, 3, 4, 5, 6}, 2)
}

func TestDump(t *testing.T) {
	dir := t.TempDir()
	writeTestSnapshot(t, filepath.Join(dir, "PART_004"))

	configFile := filepath.Join(dir, "mpgio.config")
	writeTestFile(t, configFile, []byte(fmt.Sprintf(`[mpgio]
Input = "%s/PART_{%%03d,snapshot}"
Output = "%s/pipe_{%%d,snapshot}.dat"
Snapshots = 4
LogLevel = error
`, dir, dir)))

	rootCmd.SetArgs([]string{"check", configFile})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"dump", configFile, "--compress", "--workers", "2"})
	require.NoError(t, rootCmd.Execute())

	f, err := os.Open(filepath.Join(dir, "pipe_4.dat"))
	require.NoError(t, err)
	defer f.Close()

	hd, ps, err := pipe.Read(f, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hd.N)
	assert.InDelta(t, 100.0, hd.L, 1e-9)
	assert.InDelta(t, 1.5e10, hd.Mass, 1)
	assert.InDelta(t, 1.0, hd.Z, 1e-12)
	assert.Equal(t, 0.25, hd.OmegaM)

	require.Len(t, ps, 2)
	assert.Equal(t, uint64(10), ps[0].ID)
	assert.Equal(t, uint64(11), ps[1].ID)
	assert.Equal(t, [3]float32{4, 5, 6}, ps[1].X)
	assert.Equal(t, [3]float32{4, 5, 6}, ps[1].V)
}

func TestCheckMissingSnapshot(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "mpgio.config")
	writeTestFile(t, configFile, []byte(fmt.Sprintf(
		"[mpgio]\nInput = \"%s/PART_{%%03d,snapshot}\"\nLogLevel = error\n",
		dir)))

	rootCmd.SetArgs([]string{"check", configFile})
	assert.Error(t, rootCmd.Execute())
}

func TestExitMessage(t *testing.T) {
	err := g_error.New(g_error.TruncatedShard, "PART_000/1/ID/000000",
		"000000", "too short")
	msg := exitMessage(fmt.Errorf("snapshot 0: %w", err))
	assert.Contains(t, msg, "corrupt")
	assert.Contains(t, msg, "PART_000/1/ID/000000")

	msg = exitMessage(g_error.New(g_error.IoError, "x", "", "missing"))
	assert.Contains(t, msg, "missing or unreadable")

	msg = exitMessage(g_error.New(g_error.InvalidConfig, "x", "", "bad"))
	assert.Contains(t, msg, "config file")

	assert.Equal(t, "plain", exitMessage(fmt.Errorf("plain")))
}
