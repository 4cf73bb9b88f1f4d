/*package config reads mpgio's configuration files and command line overrides.

Config files are ini-style files with a single [mpgio] section, e.g.:

   [mpgio]
   Input = /data/sims/L125/output/PART_{%03d,snapshot}
   Snapshots = 0..17 - 3
   Output = particles/snap_{%03d,snapshot}.dat
   Compress = true
   Workers = 4

Any variable which isn't set keeps the value in DefaultRawArgs().
*/
package config

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/mpgio/lib/format"
	"github.com/phil-mansfield/mpgio/lib/header"
	"github.com/phil-mansfield/mpgio/lib/snapio"
	"github.com/phil-mansfield/mpgio/lib/units"
)

// RawArgs stores the unprocessed values which the user assigned to each config
// variable.
type RawArgs struct {
	Mpgio struct {
		Input     string
		Snapshots string
		Output    string
		Compress  bool

		ByteOrder string
		Workers   int

		HaloParticleType    int
		LengthConversion    float64
		MassConversion      float64
		VelocityConversion  float64
		OmegaM, OmegaL      float64
		CriticalDensity     float64
		RescaleParticleMass bool

		LogLevel string
	}
}

// Args stores configuration information. It is a post-processed version of
// RawArgs.
type Args struct {
	Input     string
	Snapshots []int
	Output    string
	Compress  bool

	// Order is nil if shards are in the byte order of the current machine.
	Order   binary.ByteOrder
	Workers int

	HaloParticleType    int
	Units               units.Conversion
	OmegaM, OmegaL      float64
	CriticalDensity     float64
	RescaleParticleMass bool

	LogLevel zapcore.Level
}

// FlagVars maps command line flags onto the config variables they override.
var FlagVars = map[string]string{
	"snapshots":  "Snapshots",
	"output":     "Output",
	"compress":   "Compress",
	"byte-order": "ByteOrder",
	"workers":    "Workers",
	"rescale":    "RescaleParticleMass",
	"log-level":  "LogLevel",
}

// DefaultRawArgs returns the values used for variables which aren't set by a
// config file.
func DefaultRawArgs() *RawArgs {
	args := &RawArgs{}
	m := &args.Mpgio

	m.Snapshots = "0"
	m.ByteOrder = "native"
	m.Workers = 1
	m.HaloParticleType = 1
	m.LengthConversion = units.Default.Length
	m.MassConversion = units.Default.Mass
	m.VelocityConversion = units.Default.Velocity
	m.OmegaM, m.OmegaL = 0.3, 0.7
	m.CriticalDensity = snapio.RockstarCriticalDensity
	m.LogLevel = "info"

	return args
}

// ParseConfigFile parses arguments from a config file on top of
// DefaultRawArgs().
func ParseConfigFile(fileName string) (*RawArgs, error) {
	args := DefaultRawArgs()
	if err := gcfg.ReadFileInto(args, fileName); err != nil {
		return nil, fmt.Errorf("Could not parse the config file '%s': %s",
			fileName, err.Error())
	}
	return args, nil
}

// Overwrite replaces the variables in args with the values of every flag in
// flags which was set on the command line. Flags which aren't in FlagVars are
// ignored.
func (args *RawArgs) Overwrite(flags *pflag.FlagSet) error {
	lines := []string{}
	flags.Visit(func(f *pflag.Flag) {
		if name, ok := FlagVars[f.Name]; ok {
			lines = append(lines, fmt.Sprintf("%s = %s",
				name, quote(f.Value.String())))
		}
	})
	if len(lines) == 0 {
		return nil
	}
	sort.Strings(lines)

	text := "[mpgio]\n" + strings.Join(lines, "\n") + "\n"
	if err := gcfg.ReadStringInto(args, text); err != nil {
		return fmt.Errorf("Could not apply command line arguments: %s",
			err.Error())
	}
	return nil
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// Process converts the raw user input to a format which is more useful for
// internal functions. Very simple validation will be done here, but nothing
// which requires interacting with external files.
func (args *RawArgs) Process() (*Args, error) {
	m := &args.Mpgio
	out := &Args{
		Input:               m.Input,
		Output:              m.Output,
		Compress:            m.Compress,
		Workers:             m.Workers,
		HaloParticleType:    m.HaloParticleType,
		OmegaM:              m.OmegaM,
		OmegaL:              m.OmegaL,
		CriticalDensity:     m.CriticalDensity,
		RescaleParticleMass: m.RescaleParticleMass,
		Units: units.Conversion{
			Length:   m.LengthConversion,
			Mass:     m.MassConversion,
			Velocity: m.VelocityConversion,
		},
	}

	if m.Input == "" {
		return nil, fmt.Errorf("The Input variable must be set.")
	} else if _, err := format.ExpandSnapshot(m.Input, 0); err != nil {
		return nil, err
	}
	if m.Output != "" {
		if _, err := format.ExpandSnapshot(m.Output, 0); err != nil {
			return nil, err
		}
	}

	var err error
	out.Snapshots, err = format.ExpandSequenceFormat(m.Snapshots)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(m.ByteOrder) {
	case "native", "":
		out.Order = nil
	case "little":
		out.Order = binary.LittleEndian
	case "big":
		out.Order = binary.BigEndian
	default:
		return nil, fmt.Errorf("ByteOrder is set to '%s', but the only "+
			"valid values are 'native', 'little', and 'big'.", m.ByteOrder)
	}

	out.LogLevel, err = zapcore.ParseLevel(m.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LogLevel is set to '%s', which isn't a "+
			"valid log level.", m.LogLevel)
	}

	switch {
	case m.Workers < 1:
		return nil, fmt.Errorf("Workers is set to %d, but must be at "+
			"least 1.", m.Workers)
	case m.HaloParticleType < 0 || m.HaloParticleType >= header.NTypes:
		return nil, fmt.Errorf("HaloParticleType is set to %d, but must be "+
			"in the range [0, %d].", m.HaloParticleType, header.NTypes-1)
	case m.LengthConversion <= 0 || m.MassConversion <= 0 ||
		m.VelocityConversion <= 0:
		return nil, fmt.Errorf("Unit conversions must be positive, but "+
			"LengthConversion = %g, MassConversion = %g, and "+
			"VelocityConversion = %g.", m.LengthConversion,
			m.MassConversion, m.VelocityConversion)
	case m.CriticalDensity <= 0:
		return nil, fmt.Errorf("CriticalDensity is set to %g, but must be "+
			"positive.", m.CriticalDensity)
	case m.OmegaM < 0 || m.OmegaL < 0:
		return nil, fmt.Errorf("OmegaM = %g and OmegaL = %g, but neither "+
			"may be negative.", m.OmegaM, m.OmegaL)
	}

	return out, nil
}

// SnapConfig returns the snapio.Config which loads snapshots with these
// arguments. logger may be nil.
func (args *Args) SnapConfig(logger *zap.Logger) *snapio.Config {
	return &snapio.Config{
		Units:               args.Units,
		OmegaM:              args.OmegaM,
		OmegaL:              args.OmegaL,
		CriticalDensity:     args.CriticalDensity,
		RescaleParticleMass: args.RescaleParticleMass,
		HaloParticleType:    args.HaloParticleType,
		Order:               args.Order,
		Workers:             args.Workers,
		Logger:              logger,
	}
}

// SnapshotDir returns the directory of the snapshot with index snap.
func (args *Args) SnapshotDir(snap int) (string, error) {
	return format.ExpandSnapshot(args.Input, snap)
}

// OutputFile returns the file that particles from the snapshot with index snap
// are written to.
func (args *Args) OutputFile(snap int) (string, error) {
	if args.Output == "" {
		return "", fmt.Errorf("The Output variable must be set to write " +
			"particle files.")
	}
	return format.ExpandSnapshot(args.Output, snap)
}
