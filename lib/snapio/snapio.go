/*package snapio reads MP-Gadget snapshots stored in the bigfile layout into
arrays of particles.

A snapshot is a directory. Its global attributes live in Header/attr-v2, and
every field of every particle species lives in its own directory,
<species>/<field>/, which holds a text "header" file and one binary file per
shard:

   PART_017/
       Header/attr-v2
       1/ID/header      1/ID/000000      1/ID/000001 ...
       1/Mass/header    1/Mass/000000 ...
       1/Position/header ...
       1/Velocity/header ...

The field header lists the shards in the order their records appear in the
field. That order, not the order of the file names, decides which particle
each record belongs to.
*/
package snapio

import (
	"encoding/binary"

	"go.uber.org/zap"
	"golang.org/x/sys/cpu"

	"github.com/phil-mansfield/mpgio/lib/particles"
	"github.com/phil-mansfield/mpgio/lib/units"
)

const (
	// AttrsPath is the location of the global header inside a snapshot.
	AttrsPath = "Header/attr-v2"
	// FieldHeaderName is the name of the header file in a field directory.
	FieldHeaderName = "header"

	// RockstarCriticalDensity is the critical density of the universe at
	// z = 0 in (Msun/h) / (Mpc/h)^3.
	RockstarCriticalDensity = 2.77519737e11

	defaultBlockRows = 1 << 16
)

// Config contains the information needed to turn a snapshot into particles
// which isn't stored in the snapshot itself.
type Config struct {
	Units units.Conversion
	// OmegaM and OmegaL are only used if the header doesn't set Omega0 and
	// OmegaLambda.
	OmegaM, OmegaL  float64
	CriticalDensity float64
	// RescaleParticleMass recomputes the halo particle mass from the box
	// size, OmegaM and the number of halo particles instead of trusting the
	// header's mass table.
	RescaleParticleMass bool
	// HaloParticleType is the species used to find halos.
	HaloParticleType int

	// Order is the byte order of shards whose dtype doesn't specify one. If
	// nil, the order of the current machine is used.
	Order binary.ByteOrder
	// Workers is the number of shards of a field which may be read at once.
	Workers int
	// BlockRows is the number of records decoded at a time.
	BlockRows int

	Logger *zap.Logger
}

// DefaultConfig returns a Config for MP-Gadget's default units and a
// Planck-like cosmology.
func DefaultConfig() *Config {
	return &Config{
		Units:            units.Default,
		OmegaM:           0.3,
		OmegaL:           0.7,
		CriticalDensity:  RockstarCriticalDensity,
		HaloParticleType: 1,
		Workers:          1,
	}
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Config) order() binary.ByteOrder {
	if c.Order == nil {
		return NativeOrder()
	}
	return c.Order
}

func (c *Config) blockRows() int {
	if c.BlockRows <= 0 {
		return defaultBlockRows
	}
	return c.BlockRows
}

func (c *Config) workers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}

// NativeOrder returns the byte order of the current machine.
func NativeOrder() binary.ByteOrder {
	if cpu.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Field is one of the per-particle quantities read from a snapshot.
type Field int

const (
	ID Field = iota
	Mass
	Position
	Velocity
)

// Fields lists every field in the order they're read.
var Fields = []Field{ID, Mass, Position, Velocity}

// fieldInfo describes how a field is stored and where its values go. Integer
// fields use setInt and float fields use factor and setFloat.
type fieldInfo struct {
	dir      string
	nmemb    int
	integer  bool
	factor   func(u units.Conversion) float64
	setInt   func(p *particles.Particle, c int, x int64)
	setFloat func(p *particles.Particle, c int, x float64)
}

var fieldTable = [...]fieldInfo{
	ID: {
		dir: "ID", nmemb: 1, integer: true,
		setInt: func(p *particles.Particle, _ int, x int64) { p.ID = x },
	},
	Mass: {
		dir: "Mass", nmemb: 1,
		factor:   func(u units.Conversion) float64 { return u.Mass },
		setFloat: func(p *particles.Particle, _ int, x float64) { p.Mass = x },
	},
	Position: {
		dir: "Position", nmemb: 3,
		factor: func(u units.Conversion) float64 { return u.Length },
		setFloat: func(p *particles.Particle, c int, x float64) {
			p.Pos[c] = float32(x)
		},
	},
	Velocity: {
		dir: "Velocity", nmemb: 3,
		factor: func(u units.Conversion) float64 { return u.Velocity },
		setFloat: func(p *particles.Particle, c int, x float64) {
			p.Pos[3+c] = float32(x)
		},
	},
}

func (f Field) info() *fieldInfo { return &fieldTable[f] }

// String returns the name of the field's directory.
func (f Field) String() string { return fieldTable[f].dir }
