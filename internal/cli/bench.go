package cli

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"kestrel/internal/telemetry"
	"kestrel/pkg/vm"
)

type benchOptions struct {
	sites    int
	ops      int
	seed     int64
	detailed bool
	record   bool
	label    string
}

// NewBenchCommand creates the bench command: a synthetic polymorphic
// workload over a fresh cache manager, followed by a report.
func NewBenchCommand(root *RootOptions) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic polymorphic workload and report cache behavior",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := vm.LoadConfig(root.ConfigPath)
			if err != nil {
				return err
			}
			m := vm.NewCacheManager(cfg)
			runWorkload(m, opts.sites, opts.ops, opts.seed)

			fmt.Fprint(cmd.OutOrStdout(), m.GenerateReport(opts.detailed))

			if opts.record {
				store, err := telemetry.Open(root.DBPath)
				if err != nil {
					return err
				}
				defer store.Close()

				id, err := store.RecordSnapshot(cmd.Context(), m, opts.label)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nrecorded snapshot %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.sites, "sites", 16, "number of simulated dispatch sites")
	cmd.Flags().IntVar(&opts.ops, "ops", 10000, "number of simulated operations")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "workload random seed")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include per-cache detail in the report")
	cmd.Flags().BoolVar(&opts.record, "record", false, "record a telemetry snapshot after the run")
	cmd.Flags().StringVar(&opts.label, "label", "", "label for the recorded snapshot")

	return cmd
}

// typeKey fingerprints the dispatch-relevant type of a value, the way
// compiled code keys its cache entries: a small code per primitive
// type, the shape for objects.
func typeKey(v vm.Value) uint64 {
	switch {
	case v.IsInt32():
		return 1
	case v.IsNumber():
		return 2
	case v.IsString():
		return 3
	case v.IsBoolean():
		return 4
	case v.IsObject():
		return 0x100 + v.AsObject().Shape
	default:
		return 5
	}
}

func runWorkload(m *vm.CacheManager, sites, ops int, seed int64) {
	if sites < 1 {
		sites = 1
	}
	rng := rand.New(rand.NewSource(seed))

	shapes := make([]*vm.Object, 4)
	for i := range shapes {
		shapes[i] = &vm.Object{Shape: uint64(i + 1)}
	}

	types := []vm.ICType{vm.ICProperty, vm.ICMethod, vm.ICBinaryOp, vm.ICComparison, vm.ICTypeCheck}
	caches := make([]*vm.InlineCache, sites)
	for i := range caches {
		typ := types[i%len(types)]
		caches[i] = m.GetOrCreateCache(fmt.Sprintf("site-%02d:%s", i, typ), typ, 0)
	}

	for i := 0; i < ops; i++ {
		v := randomValue(rng, shapes)
		c := caches[rng.Intn(len(caches))]
		key := typeKey(v)
		if _, res := c.Lookup(key); res != vm.ICHit {
			c.Add(key, key*31+7, 0)
		}
	}
}

func randomValue(rng *rand.Rand, shapes []*vm.Object) vm.Value {
	switch rng.Intn(6) {
	case 0:
		return vm.IntegerValue(rng.Int31())
	case 1:
		return vm.NumberValue(rng.Float64() * 1e6)
	case 2:
		return vm.NewString("xy")
	case 3:
		return vm.NewString("a longer heap string")
	case 4:
		return vm.BooleanValue(rng.Intn(2) == 0)
	default:
		return vm.NewObject(shapes[rng.Intn(len(shapes))])
	}
}
