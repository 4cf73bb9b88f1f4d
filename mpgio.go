package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phil-mansfield/mpgio/lib/config"
	g_error "github.com/phil-mansfield/mpgio/lib/error"
	"github.com/phil-mansfield/mpgio/lib/particles"
	"github.com/phil-mansfield/mpgio/lib/pipe"
	"github.com/phil-mansfield/mpgio/lib/snapio"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "mpgio",
	Short: "mpgio reads MP-Gadget bigfile snapshots for the Rockstar halo finder",
	Long: `mpgio reads the particles in MP-Gadget bigfile snapshots, converts them to
Rockstar's units, and writes them to Rockstar's particle pipe format.

Every mode takes a config file, and the flags below override the values set
in it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <config>",
	Short: "Check that every snapshot's headers agree with its shards",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var loadCmd = &cobra.Command{
	Use:   "load <config>",
	Short: "Read every snapshot and report what was found",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

var dumpCmd = &cobra.Command{
	Use:   "dump <config>",
	Short: "Read every snapshot and write its halo particles to Output",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("snapshots", "0", "sequence of snapshots to read, e.g. 0..10 - 3")
	flags.String("output", "", "template for output files, e.g. out_{%03d,snapshot}")
	flags.Bool("compress", false, "compress output files with zstd")
	flags.String("byte-order", "native", "byte order of shards: native, little, or big")
	flags.Int("workers", 1, "number of shards read at once")
	flags.Bool("rescale", false, "recompute the halo particle mass from OmegaM")
	flags.String("log-level", "info", "log level: debug, info, warn, or error")

	rootCmd.AddCommand(checkCmd, loadCmd, dumpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		g_error.External("%s", exitMessage(err))
	}
}

// exitMessage describes err for the user. Snapshot errors start with a
// sentence describing their kind.
func exitMessage(err error) string {
	switch g_error.KindOf(err) {
	case g_error.IoError:
		return "A snapshot file is missing or unreadable.\n" + err.Error()
	case g_error.MalformedHeader, g_error.CountMismatch,
		g_error.TruncatedShard:
		return "The snapshot is corrupt or was written incompletely.\n" +
			err.Error()
	case g_error.InvalidConfig:
		return "The config file asks for something no snapshot can " +
			"provide.\n" + err.Error()
	}
	return err.Error()
}

// readArgs parses the config file, applies command line overrides, and
// starts the logger.
func readArgs(cmd *cobra.Command, configFile string) (*config.Args, error) {
	raw, err := config.ParseConfigFile(configFile)
	if err != nil {
		return nil, err
	}
	if err := raw.Overwrite(cmd.Flags()); err != nil {
		return nil, err
	}
	args, err := raw.Process()
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(args.LogLevel)
	logger, err = zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return args, nil
}

// runCheck runs mpgio's "check" mode, which tests every snapshot for
// inconsistencies without reading any particles.
func runCheck(cmd *cobra.Command, cmdArgs []string) error {
	args, err := readArgs(cmd, cmdArgs[0])
	if err != nil {
		return err
	}
	cfg := args.SnapConfig(logger)

	for _, snap := range args.Snapshots {
		dir, err := args.SnapshotDir(snap)
		if err != nil {
			return err
		}
		if _, err := snapio.Check(dir, cfg); err != nil {
			return err
		}
	}
	fmt.Println("No errors detected.")
	return nil
}

// runLoad runs mpgio's "load" mode, which reads every snapshot and prints
// the quantities Rockstar would be given.
func runLoad(cmd *cobra.Command, cmdArgs []string) error {
	args, err := readArgs(cmd, cmdArgs[0])
	if err != nil {
		return err
	}
	cfg := args.SnapConfig(logger)

	var p []particles.Particle
	for _, snap := range args.Snapshots {
		dir, err := args.SnapshotDir(snap)
		if err != nil {
			return err
		}
		var res *snapio.Result
		p, res, err = snapio.Load(dir, cfg, p[:0])
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d particles, z = %.4f, L = %g Mpc/h, "+
			"m_p = %.4g Msun/h, spacing = %.4g Mpc/h\n", dir,
			res.NumParticles, res.Redshift, res.BoxSize,
			res.ParticleMass, res.AvgParticleSpacing)
	}
	return nil
}

// runDump runs mpgio's "dump" mode, which writes the halo particles of every
// snapshot to a pipe file.
func runDump(cmd *cobra.Command, cmdArgs []string) error {
	args, err := readArgs(cmd, cmdArgs[0])
	if err != nil {
		return err
	}
	cfg := args.SnapConfig(logger)

	cat, err := particles.SpeciesCategory(args.HaloParticleType)
	if err != nil {
		g_error.Internal("HaloParticleType %d passed validation, but: %s",
			args.HaloParticleType, err.Error())
	}

	var p []particles.Particle
	for _, snap := range args.Snapshots {
		dir, err := args.SnapshotDir(snap)
		if err != nil {
			return err
		}
		out, err := args.OutputFile(snap)
		if err != nil {
			return err
		}

		var res *snapio.Result
		p, res, err = snapio.Load(dir, cfg, p[:0])
		if err != nil {
			return err
		}

		if err := writePipe(out, res, p, cat, args.Compress); err != nil {
			return fmt.Errorf("could not write '%s': %w", out, err)
		}
		logger.Info("wrote pipe", zap.String("file", out),
			zap.Int("snapshot", snap), zap.Stringer("category", cat))
	}
	return nil
}

func writePipe(
	name string, res *snapio.Result, p []particles.Particle,
	cat particles.Category, compress bool,
) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := pipe.Write(w, pipe.NewHeader(res), p, cat, compress); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
