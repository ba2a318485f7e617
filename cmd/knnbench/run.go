package main

import (
	"fmt"
	"io"
	"math/rand"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gammaray/spatialindex"
	"github.com/gammaray/spatialindex/config"
	"github.com/gammaray/spatialindex/geom"
	"github.com/gammaray/spatialindex/search"
	"github.com/gammaray/spatialindex/source"
)

type runOptions struct {
	points    int
	seed      int64
	extent    []float64
	tolerance float64
	queries   int
	config    string
	strategy  string
	backend   string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "knnbench",
		Short:        "Benchmark neighbourhood searches over a synthetic point cloud",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fill an index and compare both search algorithms",
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.verbose {
				log.SetLevel(log.DebugLevel)
			}
			return run(o, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.points, "points", 100000, "number of synthetic points")
	f.Int64Var(&o.seed, "seed", 1, "random seed")
	f.Float64SliceVar(&o.extent, "extent", []float64{1000, 1000, 100}, "size of the point cloud along x,y,z")
	f.Float64Var(&o.tolerance, "tolerance", 0, "half size of the box indexed around each point")
	f.IntVar(&o.queries, "queries", 1000, "number of queries per algorithm")
	f.StringVar(&o.config, "config", "", "TOML strategy file; a 50 unit sphere is used when empty")
	f.StringVar(&o.strategy, "strategy", "", "strategy name in the config file")
	f.StringVar(&o.backend, "backend", "packed", "tree backend: packed or rtree")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func loadStrategy(o *runOptions) (search.Strategy, error) {
	if o.config == "" {
		nb, err := search.NewSphere(50)
		if err != nil {
			return search.Strategy{}, err
		}
		return search.NewStrategy(nb, 16, 0, 1)
	}
	c, err := config.Load(o.config)
	if err != nil {
		return search.Strategy{}, err
	}
	name := o.strategy
	if name == "" && len(c.Strategies) > 0 {
		name = c.Strategies[0].Name
	}
	return c.Lookup(name)
}

func syntheticPoints(rng *rand.Rand, n int, extent []float64) (*source.PointSet, error) {
	if len(extent) != 3 {
		return nil, fmt.Errorf("extent needs 3 values, got %d", len(extent))
	}
	locs := make([]geom.Location, n)
	values := make([]float64, n)
	for i := range locs {
		locs[i] = geom.Location{
			X: rng.Float64() * extent[0],
			Y: rng.Float64() * extent[1],
			Z: rng.Float64() * extent[2],
		}
		values[i] = rng.NormFloat64()
	}
	return source.NewPointSet(locs, values)
}

func run(o *runOptions, out io.Writer) error {
	backend, err := spatialindex.ParseBackend(o.backend)
	if err != nil {
		return err
	}
	strategy, err := loadStrategy(o)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(o.seed))
	ps, err := syntheticPoints(rng, o.points, o.extent)
	if err != nil {
		return err
	}

	idx := spatialindex.New(spatialindex.WithBackend(backend), spatialindex.WithLogger(log.StandardLogger()))
	start := time.Now()
	if err := idx.FillPoints(ps, o.tolerance); err != nil {
		return err
	}
	log.WithFields(log.Fields{"points": o.points, "backend": backend, "duration": time.Since(start)}).Info("index built")

	records := make([]int, o.queries)
	for i := range records {
		records[i] = rng.Intn(max(ps.RecordCount(), 1))
	}

	results := map[spatialindex.Algorithm][][]int{}
	for _, alg := range []spatialindex.Algorithm{spatialindex.GenericRTreeBased, spatialindex.TunedForLargeDataSets} {
		durations := make([]float64, 0, len(records))
		found := make([][]int, 0, len(records))
		for _, r := range records {
			cell, ok := idx.Cell(r, 0)
			if !ok {
				continue
			}
			t0 := time.Now()
			var got []int
			if alg == spatialindex.TunedForLargeDataSets {
				got = idx.NearestWithinTunedForLargeDataSets(cell, strategy)
			} else {
				got = idx.NearestWithinGenericRTreeBased(cell, strategy)
			}
			durations = append(durations, float64(time.Since(t0).Microseconds()))
			found = append(found, got)
		}
		results[alg] = found
		report(out, alg, durations, found)
	}

	generic, tuned := results[spatialindex.GenericRTreeBased], results[spatialindex.TunedForLargeDataSets]
	mismatches := 0
	for i := range generic {
		if !slices.Equal(generic[i], tuned[i]) {
			mismatches++
			log.WithFields(log.Fields{"record": records[i], "generic": generic[i], "tuned": tuned[i]}).Warn("algorithms disagree")
		}
	}
	fmt.Fprintf(out, "mismatches: %d of %d\n", mismatches, len(generic))
	if mismatches > 0 {
		return fmt.Errorf("%d queries differ between algorithms", mismatches)
	}
	return nil
}

func report(out io.Writer, alg spatialindex.Algorithm, durations []float64, found [][]int) {
	if len(durations) == 0 {
		fmt.Fprintf(out, "%-8s no queries\n", alg)
		return
	}
	sizes := make([]float64, len(found))
	empty := 0
	for i, f := range found {
		sizes[i] = float64(len(f))
		if len(f) == 0 {
			empty++
		}
	}
	sorted := slices.Clone(durations)
	slices.Sort(sorted)
	fmt.Fprintf(out, "%-8s mean %.1fµs p50 %.1fµs p95 %.1fµs max %.1fµs  samples/query %.1f  empty %d\n",
		alg,
		stat.Mean(durations, nil),
		stat.Quantile(0.5, stat.Empirical, sorted, nil),
		stat.Quantile(0.95, stat.Empirical, sorted, nil),
		floats.Max(durations),
		stat.Mean(sizes, nil),
		empty,
	)
}
