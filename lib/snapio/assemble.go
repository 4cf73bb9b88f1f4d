package snapio

import (
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	g_error "github.com/phil-mansfield/mpgio/lib/error"
	"github.com/phil-mansfield/mpgio/lib/particles"
	"github.com/phil-mansfield/mpgio/lib/units"
)

// assemble reads every shard of a field into out, which must be exactly the
// particles of the catalog's species. Shards are placed one after another in
// the order the field header declares them.
func assemble(out []particles.Particle, cat *Catalog, cfg *Config) error {
	total := int64(len(out))
	path := cat.Dir

	// Shard origins are fixed before anything is written so that shards can
	// be read in any order.
	offsets := cat.Offsets()
	if end := offsets[len(offsets)-1]; end != total {
		return g_error.New(g_error.CountMismatch, path, cat.Field.String(),
			"the shards hold %d records, but %d particles are expected",
			end, total)
	}

	info := cat.Field.info()
	read := make([]int64, len(cat.Header.Shards))
	readShard := func(i int) error {
		dst := out[offsets[i]:offsets[i+1]]
		var err error
		if info.integer {
			read[i], err = fillShard(dst, cat, i, cfg, info.setInt, nil)
		} else {
			factor := info.factor(cfg.Units)
			convert := func(x []float64) { units.Scale(factor, x) }
			read[i], err = fillShard(dst, cat, i, cfg, info.setFloat, convert)
		}
		return err
	}

	if workers := cfg.workers(); workers > 1 && len(read) > 1 {
		g := &errgroup.Group{}
		g.SetLimit(workers)
		for i := range read {
			i := i
			g.Go(func() error { return readShard(i) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for i := range read {
			if err := readShard(i); err != nil {
				return err
			}
		}
	}

	shardOrigin := int64(0)
	for _, n := range read {
		shardOrigin += n
	}
	if shardOrigin != total {
		return g_error.New(g_error.CountMismatch, path, cat.Field.String(),
			"%d records were read, but %d particles are expected",
			shardOrigin, total)
	}

	cfg.logger().Debug("read field",
		zap.Int("species", cat.Species), zap.Stringer("field", cat.Field),
		zap.Int("shards", len(read)), zap.Int64("records", shardOrigin))

	return nil
}

// fillShard streams shard i of cat into dst, converting each block of records
// with convert (if it isn't nil) and storing component c of each record
// through set. It returns the number of records read.
func fillShard[T Number](
	dst []particles.Particle, cat *Catalog, i int, cfg *Config,
	set func(p *particles.Particle, c int, x T), convert func(x []T),
) (int64, error) {
	hd := cat.Header
	s := hd.Shards[i]
	rd, err := OpenShard(cat.ShardPath(i), hd.DType, hd.NMemb, s.N, cfg.order())
	if err != nil {
		return 0, err
	}
	defer rd.Close()

	rows := cfg.blockRows()
	if int64(rows) > s.N && s.N > 0 {
		rows = int(s.N)
	}
	g := NewGrid[T](rows, hd.NMemb)

	row := int64(0)
	for {
		n, err := ReadRows(rd, g)
		if err == io.EOF {
			break
		} else if err != nil {
			return row, err
		}

		if convert != nil {
			convert(g.Data())
		}
		for r := 0; r < n; r++ {
			p := &dst[row+int64(r)]
			for c := 0; c < g.Cols(); c++ {
				set(p, c, g.At(r, c))
			}
		}
		row += int64(n)
	}

	cfg.logger().Debug("read shard", zap.String("path", cat.ShardPath(i)),
		zap.Int64("records", row))

	return row, nil
}
