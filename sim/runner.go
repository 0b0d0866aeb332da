// Package sim drives a whole simulation: generated Poisson input flows
// through the spike ring into the history core, sealed recording segments
// go to an archive store, and maintenance (recycling, compaction) runs on
// a tick cadence under a resource controller.
package sim

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/synaptik/tracearena"
	"github.com/synaptik/tracearena/blobstore"
	"github.com/synaptik/tracearena/config"
	"github.com/synaptik/tracearena/poisson"
	"github.com/synaptik/tracearena/recording"
	"github.com/synaptik/tracearena/resource"
	"github.com/synaptik/tracearena/ringbuf"
)

// segmentTargetBytes caps a recording batch before it is sealed.
const segmentTargetBytes = 64 * 1024

// maintenanceInterval is how many ticks pass between maintenance checks.
const maintenanceInterval = 16

// Options tune a Runner beyond the simulation profile.
type Options struct {
	// Store receives recording segments. nil disables recording.
	Store blobstore.Store

	// Run names the archive stream. Defaults to a timestamped name.
	Run string

	// Compression for recording segments.
	Compression recording.Compression

	// Resources bounds maintenance work. nil means default limits.
	Resources *resource.Controller

	// TicksPerSecond paces the loop in wall time. 0 runs unpaced.
	TicksPerSecond float64

	// Logger for structured progress output. nil disables logging.
	Logger *tracearena.Logger
}

// Runner owns one simulation.
type Runner struct {
	cfg  *config.Sim
	core *tracearena.Core

	input *ringbuf.Buffer
	pop   *poisson.Population

	builder  *recording.Builder
	archiver *recording.Archiver

	res    *resource.Controller
	pacer  *rate.Limiter
	logger *tracearena.Logger

	// per-neuron spike totals, encoded into trace payloads
	spikeCounts []uint32
	// last tick appended per neuron, to collapse same-tick duplicates
	lastAppend []uint32

	// arena + staging bytes reserved against the controller at boot
	regionBytes int64

	tick uint32
}

// archiveStore charges archival uploads against the resource controller:
// the sealed frame counts toward the memory budget for the duration of the
// upload, and its bytes draw from the IO budget.
type archiveStore struct {
	inner blobstore.Store
	res   *resource.Controller
}

func (s *archiveStore) Put(ctx context.Context, name string, data []byte) error {
	n := int64(len(data))
	if err := s.res.AcquireMemory(ctx, n); err != nil {
		return err
	}
	defer s.res.ReleaseMemory(n)
	if err := s.res.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	return s.inner.Put(ctx, name, data)
}

func (s *archiveStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	return s.inner.Open(ctx, name)
}

func (s *archiveStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

func (s *archiveStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// New builds a runner from a validated profile.
func New(cfg *config.Sim, opts Options) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	coreOpts := []tracearena.Option{}
	if opts.Logger != nil {
		coreOpts = append(coreOpts, tracearena.WithLogger(opts.Logger))
	}
	core, err := tracearena.New(tracearena.Config{
		Neurons:         cfg.Neurons,
		BaseCapacity:    cfg.BaseCapacity,
		SlackEvents:     cfg.SlackEvents,
		TraceSize:       cfg.TraceSize,
		FragmentCount:   cfg.FragmentCount,
		Generations:     cfg.Generations,
		GenerationWidth: cfg.GenerationWidth,
	}, coreOpts...)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:         cfg,
		core:        core,
		input:       ringbuf.New(cfg.InputBuffer),
		res:         opts.Resources,
		logger:      opts.Logger,
		spikeCounts: make([]uint32, cfg.Neurons),
		lastAppend:  make([]uint32, cfg.Neurons),
	}
	if r.logger == nil {
		r.logger = tracearena.NoopLogger()
	}
	if r.res == nil {
		r.res = resource.NewController(resource.Config{})
	}

	// The arena and its staging mirror are the two fixed regions; charge
	// them against the memory budget for the lifetime of the run.
	r.regionBytes = 2 * int64(core.Stats().ArenaBytes)
	if !r.res.TryAcquireMemory(r.regionBytes) {
		core.Close()
		return nil, fmt.Errorf("sim: memory budget too small for %d region bytes", r.regionBytes)
	}

	if opts.TicksPerSecond > 0 {
		r.pacer = rate.NewLimiter(rate.Limit(opts.TicksPerSecond), 1)
	}

	if cfg.SpikeRate > 0 {
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
		r.pop = poisson.NewPopulation()
		for n := 0; n < cfg.Neurons; n++ {
			r.pop.Add(poisson.NewSource(uint32(n), cfg.SpikeRate, 0, cfg.Ticks, rng))
		}
	}

	if opts.Store != nil {
		run := opts.Run
		if run == "" {
			run = time.Now().UTC().Format("run-20060102-150405")
		}
		r.builder = recording.NewBuilder(cfg.TraceSize, opts.Compression)
		guarded := &archiveStore{inner: opts.Store, res: r.res}
		r.archiver = recording.NewArchiver(guarded, run, cfg.TraceSize, 2)
	}

	return r, nil
}

// Core exposes the underlying history core, mainly for inspection in tests
// and tooling.
func (r *Runner) Core() *tracearena.Core { return r.core }

// Tick returns the current simulation tick.
func (r *Runner) Tick() uint32 { return r.tick }

// Inject feeds an external spike into the ingress ring. Safe to call from
// one producer goroutine concurrent with Run.
func (r *Runner) Inject(neuron uint32) bool {
	return r.input.Add(neuron)
}

// Run executes the configured number of ticks, or until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	for r.cfg.Ticks == 0 || r.tick < r.cfg.Ticks {
		if err := ctx.Err(); err != nil {
			return r.finish(err)
		}
		if r.pacer != nil {
			if err := r.pacer.Wait(ctx); err != nil {
				return r.finish(err)
			}
		}
		if err := r.step(ctx); err != nil {
			return r.finish(err)
		}
	}
	return r.finish(nil)
}

// step advances one tick: generate, ingest, record, maintain.
func (r *Runner) step(ctx context.Context) error {
	r.tick++

	if r.pop != nil {
		r.pop.Tick(r.tick, func(neuron uint32) {
			r.input.Add(neuron)
		})
	}

	var err error
	r.input.Drain(func(spike uint32) bool {
		if int(spike) >= r.cfg.Neurons {
			return true // foreign key, drop
		}
		if r.lastAppend[spike] == r.tick {
			return true // one history event per neuron per tick
		}
		r.lastAppend[spike] = r.tick
		r.spikeCounts[spike]++

		trace := r.encodeTrace(r.spikeCounts[spike])
		r.core.Append(int(spike), r.tick, trace)

		if r.builder != nil {
			if rerr := r.builder.Record(recording.Event{
				Neuron: spike,
				Time:   r.tick,
				Trace:  trace,
			}); rerr != nil {
				err = rerr
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	if r.builder != nil && r.builder.PayloadBytes() >= segmentTargetBytes {
		if err := r.flushSegment(ctx); err != nil {
			return err
		}
	}

	if r.tick%maintenanceInterval == 0 {
		r.maintain(ctx)
	}
	return nil
}

// encodeTrace packs a neuron's running spike count into a little-endian
// payload of the configured width.
func (r *Runner) encodeTrace(count uint32) []byte {
	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], count)
	trace := make([]byte, r.cfg.TraceSize)
	copy(trace, raw[:])
	return trace
}

func (r *Runner) flushSegment(ctx context.Context) error {
	frame, meta, err := r.builder.Seal()
	if err != nil {
		return err
	}
	return r.archiver.Archive(ctx, frame, meta)
}

// maintain runs one bounded slice of background work if the history is due
// and a worker slot is free. Skipping is always safe; the next interval
// picks it up.
func (r *Runner) maintain(ctx context.Context) {
	if r.tick <= r.cfg.RetentionTicks {
		return
	}
	horizon := r.tick - r.cfg.RetentionTicks

	if !r.res.TryAcquireMaintenance() {
		return
	}
	defer r.res.ReleaseMaintenance()

	if r.core.MaintenanceDue(horizon) {
		recycled := r.core.Scan(horizon)
		if recycled > 0 {
			r.core.CompactOneFragment()
		}
	}
}

// finish seals pending recording state and closes the core. The first
// error wins; closing always proceeds.
func (r *Runner) finish(cause error) error {
	if r.builder != nil && r.builder.Len() > 0 {
		if err := r.flushSegment(context.Background()); err != nil && cause == nil {
			cause = err
		}
	}
	if r.archiver != nil {
		if err := r.archiver.Close(context.Background()); err != nil && cause == nil {
			cause = fmt.Errorf("sim: archive close: %w", err)
		}
	}
	if err := r.core.Close(); err != nil && cause == nil {
		cause = err
	}
	r.res.ReleaseMemory(r.regionBytes)
	r.logger.Info("simulation finished", "ticks", r.tick)
	return cause
}
