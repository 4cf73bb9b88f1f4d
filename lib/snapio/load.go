package snapio

import (
	"math"
	"path/filepath"

	"go.uber.org/zap"

	g_error "github.com/phil-mansfield/mpgio/lib/error"
	"github.com/phil-mansfield/mpgio/lib/header"
	"github.com/phil-mansfield/mpgio/lib/particles"
)

// Result contains the quantities derived while reading a snapshot. Lengths
// are in Mpc/h and masses are in Msun/h.
type Result struct {
	Attrs *header.Attrs

	BoxSize, H100, OmegaM, OmegaL float64
	Scale, Redshift               float64

	// ParticleMass is the mass of a halo-finding particle and
	// AvgParticleSpacing is the mean distance between them.
	ParticleMass, AvgParticleSpacing float64

	// Counts gives the number of particles of each species and NumParticles
	// the total number.
	Counts       [header.NTypes]int64
	NumParticles int64
}

// Load reads the snapshot in the directory root and appends its particles to
// p. Particles are stored species by species, and within a species in the
// order of the field headers. Species without any particles are skipped
// without touching their directories.
//
// If Load returns an error, the contents of the returned slice are undefined.
func Load(
	root string, cfg *Config, p []particles.Particle,
) ([]particles.Particle, *Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := cfg.logger()

	res, err := readResult(root, cfg)
	if err != nil {
		return p, nil, err
	}

	// Every count and every shard size is checked before the output grows
	// or any shard is read.
	cats, err := openCatalogs(root, res)
	if err != nil {
		return p, nil, err
	}
	if _, err := checkShards(cats, cfg); err != nil {
		return p, nil, err
	}

	p, out := particles.Grow(p, res.NumParticles)

	speciesOrigin := int64(0)
	for species, n := range res.Counts {
		if n == 0 {
			continue
		}
		dst := out[speciesOrigin : speciesOrigin+n]

		category, err := particles.SpeciesCategory(species)
		if err != nil {
			return p, nil, err
		}
		for i := range dst {
			dst[i].Type = category
		}

		for _, cat := range cats[species] {
			if err := assemble(dst, cat, cfg); err != nil {
				return p, nil, err
			}
		}

		log.Debug("read species", zap.Int("species", species),
			zap.Stringer("category", category), zap.Int64("particles", n),
			zap.Int64("origin", speciesOrigin))
		speciesOrigin += n
	}

	log.Info("loaded snapshot", zap.String("root", root),
		zap.Int64("particles", res.NumParticles),
		zap.Float64("particle_mass", res.ParticleMass),
		zap.Float64("avg_particle_spacing", res.AvgParticleSpacing),
		zap.Float64("box_size", res.BoxSize),
		zap.Float64("scale", res.Scale))

	return p, res, nil
}

// Check does everything that Load does except decoding particles: it reads
// the global and field headers, checks that all counts agree, and checks that
// every shard has the right size.
func Check(root string, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	res, err := readResult(root, cfg)
	if err != nil {
		return nil, err
	}
	cats, err := openCatalogs(root, res)
	if err != nil {
		return nil, err
	}

	shards, err := checkShards(cats, cfg)
	if err != nil {
		return nil, err
	}

	cfg.logger().Info("checked snapshot", zap.String("root", root),
		zap.Int64("particles", res.NumParticles), zap.Int("shards", shards))

	return res, nil
}

// checkShards opens every shard of every catalog, which checks its size, and
// returns the number of shards.
func checkShards(cats [header.NTypes][]*Catalog, cfg *Config) (int, error) {
	shards := 0
	for _, fields := range cats {
		for _, cat := range fields {
			hd := cat.Header
			for i, s := range hd.Shards {
				rd, err := OpenShard(cat.ShardPath(i), hd.DType, hd.NMemb,
					s.N, cfg.order())
				if err != nil {
					return shards, err
				}
				rd.Close()
				shards++
			}
		}
	}
	return shards, nil
}

// openCatalogs opens the catalog of every field of every species with
// particles and checks it against the species' count.
func openCatalogs(root string, res *Result) ([header.NTypes][]*Catalog, error) {
	cats := [header.NTypes][]*Catalog{}
	for species, n := range res.Counts {
		if n == 0 {
			continue
		}
		for _, field := range Fields {
			cat, err := OpenCatalog(root, species, field)
			if err != nil {
				return cats, err
			}
			if err := cat.Check(n); err != nil {
				return cats, err
			}
			cats[species] = append(cats[species], cat)
		}
	}
	return cats, nil
}

// readResult reads the global header and derives the particle mass and
// spacing from it.
func readResult(root string, cfg *Config) (*Result, error) {
	path := filepath.Join(root, AttrsPath)
	hd, err := header.ReadAttrs(path)
	if err != nil {
		return nil, err
	}

	return derive(hd, path, cfg)
}

func derive(hd *header.Attrs, path string, cfg *Config) (*Result, error) {
	t := cfg.HaloParticleType
	if t < 0 || t >= header.NTypes {
		return nil, g_error.New(g_error.InvalidConfig, path, "",
			"the halo particle type, %d, is not a valid species. It must be "+
				"in the range [0, %d)", t, header.NTypes)
	}

	res := &Result{
		Attrs: hd, Counts: hd.TotNumPart,
		BoxSize: cfg.Units.LengthOf(hd.BoxSize), H100: hd.HubbleParam,
		OmegaM: cfg.OmegaM, OmegaL: cfg.OmegaL,
		Scale: hd.Time,
	}
	if hd.Has(header.Omega0) {
		res.OmegaM = hd.Omega0
	}
	if hd.Has(header.OmegaLambda) {
		res.OmegaL = hd.OmegaLambda
	}
	if hd.Has(header.Time) && hd.Time > 0 {
		res.Redshift = hd.Redshift()
	}

	for _, n := range res.Counts {
		res.NumParticles += n
	}

	// The spacing always comes from the mass table, even if the particle
	// mass is rescaled afterwards.
	rhoM := res.OmegaM * cfg.CriticalDensity
	res.ParticleMass = cfg.Units.MassOf(hd.MassTable[t])
	res.AvgParticleSpacing = math.Cbrt(res.ParticleMass / rhoM)

	if cfg.RescaleParticleMass {
		if res.Counts[t] == 0 {
			return nil, g_error.New(g_error.CountMismatch, path,
				header.TotNumPart, "the particle mass can't be rescaled "+
					"because species %d has no particles", t)
		}
		l := res.BoxSize
		res.ParticleMass = rhoM * l * l * l / float64(res.Counts[t])
	}

	return res, nil
}
