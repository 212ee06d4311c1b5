// Command jobsim drives the scheduler through a handful of named
// end-to-end scenarios and reports whether each one's invariant held,
// the way job_system.cpp's original test harness exercised the C++
// implementation by hand.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/kestrelcore/corert/alloc"
	"github.com/kestrelcore/corert/job"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		dumpPath   string
		scenario   string
		checkLeaks bool
		workers    int
		jobsCount  int
		ringCap    int
	)

	cmd := &cobra.Command{
		Use:   "jobsim",
		Short: "Exercise the job scheduler against a fixed set of concurrency scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSimConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("jobs") {
				cfg.Jobs = jobsCount
			}
			if cmd.Flags().Changed("ring-capacity") {
				cfg.RingCapacity = ringCap
			}

			names, err := selectScenarios(scenario)
			if err != nil {
				return err
			}

			if err := job.Init(job.WithWorkers(cfg.Workers), job.WithMetrics(true)); err != nil {
				return fmt.Errorf("starting scheduler: %w", err)
			}
			defer job.Shutdown()

			var failures []string
			for _, name := range names {
				s := scenarios[name]
				if err := s.run(cfg); err != nil {
					fmt.Fprintf(os.Stdout, "FAIL %s: %v\n", name, err)
					failures = append(failures, name)
					continue
				}
				fmt.Fprintf(os.Stdout, "PASS %s\n", name)
			}

			if dumpPath != "" {
				b, err := job.Dump()
				if err != nil {
					return fmt.Errorf("dumping metrics: %w", err)
				}
				if err := os.WriteFile(dumpPath, b, 0o644); err != nil {
					return fmt.Errorf("writing dump: %w", err)
				}
			}

			if checkLeaks {
				if leaks := alloc.CheckLeaks(); len(leaks) > 0 {
					for _, l := range leaks {
						fmt.Fprintf(os.Stdout, "LEAK %d bytes, tag=%q\n", l.Size, l.Tag)
					}
					return fmt.Errorf("%d allocations still live at exit", len(leaks))
				}
			}

			if len(failures) > 0 {
				return fmt.Errorf("%d scenario(s) failed: %v", len(failures), failures)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML file with workers/jobs/ring_capacity")
	cmd.Flags().StringVar(&dumpPath, "dump", "", "write a msgpack metrics snapshot to this path after running")
	cmd.Flags().StringVar(&scenario, "scenario", "all", "scenario to run, or \"all\" ("+scenarioNames()+")")
	cmd.Flags().BoolVar(&checkLeaks, "check-leaks", false, "fail if any allocation is still live at exit (requires building with -tags corert_debug)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (overrides config)")
	cmd.Flags().IntVar(&jobsCount, "jobs", 0, "job count per scenario (overrides config)")
	cmd.Flags().IntVar(&ringCap, "ring-capacity", 0, "sets per-producer item count (2x, at least 16) for the ring-overflow scenario, whose ring capacity is fixed at 4 (overrides config)")

	return cmd
}

func selectScenarios(name string) ([]string, error) {
	if name == "all" || name == "" {
		names := make([]string, 0, len(scenarios))
		for n := range scenarios {
			names = append(names, n)
		}
		sort.Strings(names)
		return names, nil
	}
	if _, ok := scenarios[name]; !ok {
		return nil, fmt.Errorf("unknown scenario %q (want one of %s or \"all\")", name, scenarioNames())
	}
	return []string{name}, nil
}

func scenarioNames() string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
