/*package units converts the values stored in a snapshot to the units used by
the rest of the halo finder: Mpc/h for lengths, Msun/h for masses, and km/s for
velocities. All conversions are multiplications by constant factors.
*/
package units

import (
	"gonum.org/v1/gonum/floats"
)

// Conversion holds the factors which take stored values to physical units.
type Conversion struct {
	Length, Mass, Velocity float64
}

// Default is the conversion for MP-Gadget's standard units: kpc/h, 1e10
// Msun/h, and km/s.
var Default = Conversion{Length: 1e-3, Mass: 1e10, Velocity: 1}

// LengthOf converts a stored length to Mpc/h.
func (c Conversion) LengthOf(raw float64) float64 { return raw * c.Length }

// MassOf converts a stored mass to Msun/h.
func (c Conversion) MassOf(raw float64) float64 { return raw * c.Mass }

// VelocityOf converts a stored velocity to km/s.
func (c Conversion) VelocityOf(raw float64) float64 { return raw * c.Velocity }

// Scale converts a column of raw values in place.
func Scale(factor float64, x []float64) {
	if factor == 1 {
		return
	}
	floats.Scale(factor, x)
}
