/*package pipe writes particles in the binary format that the Rockstar halo
finder reads from its input pipe, and reads that format back.

A pipe file is a Header followed by Header.N RockstarParticle records. Both are
written in the byte order of the current machine, since the reader is always
expected to run on the same node as the writer. The whole stream may
optionally be compressed with zstd.
*/
package pipe

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"github.com/DataDog/zstd"

	"github.com/phil-mansfield/mpgio/lib/particles"
	"github.com/phil-mansfield/mpgio/lib/snapio"
)

var (
	// Version is the version of the pipe format. This can potentially be
	// used to differentiate between breaking changes to the format.
	Version            uint64 = 0x2
	RockstarFormatCode uint64 = 0xffffffff00000001
)

const blockSize = 1 << 14

// RockstarParticle is a particle with the structure expected by the
// Rockstar halo finder.
type RockstarParticle struct {
	ID   uint64
	X, V [3]float32
}

// Header describes the particles in a pipe. Lengths are in Mpc/h and masses
// in Msun/h.
type Header struct {
	Version, Format uint64
	N, NTot         int64

	Z, OmegaM, OmegaL, H100, L, Mass float64
}

// NewHeader returns a Header for the snapshot described by res. N and NTot
// are set by Write.
func NewHeader(res *snapio.Result) Header {
	return Header{
		Version: Version, Format: RockstarFormatCode,
		Z: res.Redshift, OmegaM: res.OmegaM, OmegaL: res.OmegaL,
		H100: res.H100, L: res.BoxSize, Mass: res.ParticleMass,
	}
}

// Write writes every particle in ps with the category cat to w, preceded by
// hd. If compress is true, the stream is compressed with zstd.
func Write(
	w io.Writer, hd Header, ps []particles.Particle,
	cat particles.Category, compress bool,
) (err error) {
	if compress {
		zw := zstd.NewWriter(w)
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		w = zw
	}

	n := int64(0)
	for i := range ps {
		if ps[i].Type == cat {
			n++
		}
	}
	hd.N, hd.NTot = n, n

	order := snapio.NativeOrder()
	if err := binary.Write(w, order, &hd); err != nil {
		return err
	}

	buf := make([]RockstarParticle, 0, blockSize)
	for i := range ps {
		if ps[i].Type != cat {
			continue
		}
		buf = append(buf, RockstarParticle{
			ID: uint64(ps[i].ID), X: ps[i].X(), V: ps[i].V(),
		})
		if len(buf) == cap(buf) {
			if _, err := w.Write(asBytes(buf)); err != nil {
				return err
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if _, err := w.Write(asBytes(buf)); err != nil {
			return err
		}
	}

	return nil
}

// Read reads a pipe written by Write.
func Read(r io.Reader, compress bool) (*Header, []RockstarParticle, error) {
	if compress {
		zr := zstd.NewReader(r)
		defer zr.Close()
		r = zr
	}

	hd := &Header{}
	if err := binary.Read(r, snapio.NativeOrder(), hd); err != nil {
		return nil, nil, err
	}
	if hd.Version != Version || hd.Format != RockstarFormatCode {
		return nil, nil, fmt.Errorf("The pipe has version %x and format "+
			"code %x, but only version %x and format code %x are supported.",
			hd.Version, hd.Format, Version, RockstarFormatCode)
	} else if hd.N < 0 {
		return nil, nil, fmt.Errorf("The pipe has a negative particle "+
			"count, %d.", hd.N)
	}

	// Records are read a block at a time, so a corrupt N runs out of data
	// before it runs out of memory.
	capacity := hd.N
	if capacity > blockSize {
		capacity = blockSize
	}
	ps := make([]RockstarParticle, 0, capacity)
	for int64(len(ps)) < hd.N {
		n := hd.N - int64(len(ps))
		if n > blockSize {
			n = blockSize
		}
		start := len(ps)
		ps = append(ps, make([]RockstarParticle, n)...)
		if _, err := io.ReadFull(r, asBytes(ps[start:])); err != nil {
			return nil, nil, fmt.Errorf("The pipe declares %d particles, "+
				"but ended after %d: %w", hd.N, start, err)
		}
	}

	return hd, ps, nil
}

// asBytes returns the memory underlying x. RockstarParticle fields have
// inhomogeneous sizes, so the records can't be written through encoding/binary
// without going through reflection.
func asBytes(x []RockstarParticle) []byte {
	if len(x) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(RockstarParticle{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&x[0])), len(x)*size)
}
