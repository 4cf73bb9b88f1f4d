/*package header parses the two text header dialects of a bigfile snapshot:
the global attribute file (Header/attr-v2), which describes the simulation,
and the per-field "header" files, which describe how a column is split into
shards.
*/
package header

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	g_error "github.com/phil-mansfield/mpgio/lib/error"
)

// NTypes is the number of particle species in a snapshot.
const NTypes = 6

// Names of recognized global attributes. Lines are matched on the exact name,
// so "Time" never picks up "TimeIC" and "TotNumPart" never picks up
// "TotNumPartInit".
const (
	BoxSize        = "BoxSize"
	HubbleParam    = "HubbleParam"
	Omega0         = "Omega0"
	OmegaLambda    = "OmegaLambda"
	Time           = "Time"
	MassTable      = "MassTable"
	TotNumPart     = "TotNumPart"
	TotNumPartInit = "TotNumPartInit"
)

// Attrs contains the global attributes of a snapshot in the units they were
// stored with. All species-indexed arrays have NTypes entries.
type Attrs struct {
	BoxSize, HubbleParam, Omega0, OmegaLambda, Time float64

	MassTable      [NTypes]float64
	TotNumPart     [NTypes]int64
	TotNumPartInit [NTypes]int64

	found map[string]bool
}

// Has returns true if the attribute name appeared in the header.
func (hd *Attrs) Has(name string) bool { return hd.found[name] }

// Redshift returns the redshift corresponding to the scale factor, Time.
func (hd *Attrs) Redshift() float64 { return 1/hd.Time - 1 }

// ReadAttrs reads the global attribute file at path.
func ReadAttrs(path string) (*Attrs, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, g_error.Wrap(g_error.IoError, err, path, "",
			"the snapshot header cannot be opened")
	}
	defer f.Close()

	return ParseAttrs(f, path)
}

// ParseAttrs parses global attributes from rd. path is only used in error
// messages. Unrecognized lines are ignored, but TotNumPart and MassTable must
// both be present.
func ParseAttrs(rd io.Reader, path string) (*Attrs, error) {
	hd := &Attrs{found: map[string]bool{}}

	scalars := map[string]*float64{
		BoxSize: &hd.BoxSize, HubbleParam: &hd.HubbleParam,
		Omega0: &hd.Omega0, OmegaLambda: &hd.OmegaLambda, Time: &hd.Time,
	}
	ints := map[string]*[NTypes]int64{
		TotNumPart: &hd.TotNumPart, TotNumPartInit: &hd.TotNumPartInit,
	}

	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		name, values := splitAttr(scanner.Text())
		if name == "" {
			continue
		}

		switch {
		case scalars[name] != nil:
			if len(values) == 0 {
				return nil, g_error.New(g_error.MalformedHeader, path, name,
					"the attribute has no value")
			}
			x, err := strconv.ParseFloat(values[0], 64)
			if err != nil {
				return nil, g_error.Wrap(g_error.MalformedHeader, err, path,
					name, "'%s' is not a number", values[0])
			}
			*scalars[name] = x

		case name == MassTable:
			if err := checkLen(path, name, values); err != nil {
				return nil, err
			}
			for i := range hd.MassTable {
				x, err := strconv.ParseFloat(values[i], 64)
				if err != nil {
					return nil, g_error.Wrap(g_error.MalformedHeader, err,
						path, name, "entry %d, '%s', is not a number",
						i, values[i])
				}
				hd.MassTable[i] = x
			}

		case ints[name] != nil:
			if err := checkLen(path, name, values); err != nil {
				return nil, err
			}
			arr := ints[name]
			for i := range arr {
				n, err := strconv.ParseInt(values[i], 10, 64)
				if err != nil {
					return nil, g_error.Wrap(g_error.MalformedHeader, err,
						path, name, "entry %d, '%s', is not an integer",
						i, values[i])
				} else if n < 0 {
					return nil, g_error.New(g_error.MalformedHeader, path,
						name, "entry %d is negative (%d)", i, n)
				}
				arr[i] = n
			}

		default:
			continue
		}
		hd.found[name] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, g_error.Wrap(g_error.IoError, err, path, "",
			"the snapshot header could not be read")
	}

	for _, name := range []string{TotNumPart, MassTable} {
		if !hd.found[name] {
			return nil, g_error.New(g_error.MalformedHeader, path, name,
				"required attribute is missing")
		}
	}

	return hd, nil
}

// splitAttr splits a line of the form "Name #HUMANE [ v0 v1 ... ]" or
// "Name: v0 v1 ..." into its name and values.
func splitAttr(line string) (name string, values []string) {
	line = strings.TrimSpace(line)
	end := strings.IndexAny(line, "[:# \t")
	if end == -1 {
		return line, nil
	}
	name = line[:end]

	rest := line[end:]
	if open := strings.IndexByte(rest, '['); open != -1 {
		rest = rest[open+1:]
		if rb := strings.IndexByte(rest, ']'); rb != -1 {
			rest = rest[:rb]
		}
	} else if colon := strings.IndexByte(rest, ':'); colon != -1 {
		rest = rest[colon+1:]
	} else {
		return name, nil
	}

	return name, strings.Fields(rest)
}

func checkLen(path, name string, values []string) error {
	if len(values) < NTypes {
		return g_error.New(g_error.MalformedHeader, path, name,
			"expected %d values, one per particle species, but found %d",
			NTypes, len(values))
	}
	return nil
}
