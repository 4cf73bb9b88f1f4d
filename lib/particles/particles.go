/*package particles contains the particle record that snapshots are read into
and the mapping from snapshot particle species to the categories used by the
halo finder.*/
package particles

import (
	"fmt"
)

// Category is the kind of matter a particle represents.
type Category uint8

const (
	DarkMatter Category = iota
	Gas
	Star
	BlackHole
)

func (c Category) String() string {
	switch c {
	case DarkMatter:
		return "dm"
	case Gas:
		return "gas"
	case Star:
		return "star"
	case BlackHole:
		return "bh"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// speciesCategory maps Gadget species IDs (gas, halo, disk, bulge, star,
// black hole) to categories. Disk and bulge particles are collisionless and
// are clustered like dark matter.
var speciesCategory = [...]Category{
	0: Gas,
	1: DarkMatter,
	2: DarkMatter,
	3: DarkMatter,
	4: Star,
	5: BlackHole,
}

// NSpecies is the number of particle species.
const NSpecies = len(speciesCategory)

// SpeciesCategory returns the category of particles of the given species.
func SpeciesCategory(species int) (Category, error) {
	if species < 0 || species >= NSpecies {
		return 0, fmt.Errorf("%d is not a valid particle species: species "+
			"must be in the range [0, %d)", species, NSpecies)
	}
	return speciesCategory[species], nil
}

// Particle is a single particle. Pos holds the position (Mpc/h) in its first
// three components and the velocity (km/s) in its last three. Mass is in
// Msun/h.
type Particle struct {
	ID   int64
	Type Category
	Mass float64
	Pos  [6]float32
}

// X returns the particle's position.
func (p *Particle) X() [3]float32 {
	return [3]float32{p.Pos[0], p.Pos[1], p.Pos[2]}
}

// V returns the particle's velocity.
func (p *Particle) V() [3]float32 {
	return [3]float32{p.Pos[3], p.Pos[4], p.Pos[5]}
}

// Grow appends n zeroed particles to p. It returns the extended slice and the
// new region, which aliases the end of the extended slice.
func Grow(p []Particle, n int64) (all, added []Particle) {
	if n < 0 {
		panic(fmt.Sprintf("Internal error: cannot grow particles by %d.", n))
	}

	start := len(p)
	if free := int64(cap(p) - len(p)); free >= n {
		p = p[:start+int(n)]
		clear(p[start:])
	} else {
		p = append(p, make([]Particle, n)...)
	}

	return p, p[start:]
}
