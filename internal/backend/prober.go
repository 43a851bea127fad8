package backend

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

// Availability is the result of one probe round.
type Availability struct {
	Backends []Descriptor `json:"backends"`
	Image    bool         `json:"image"`
}

// Has reports whether kind is in the available set.
func (a Availability) Has(kind Kind) bool {
	for _, d := range a.Backends {
		if d.ID == kind {
			return true
		}
	}
	return false
}

// IDs returns the available backend identifiers in display order.
func (a Availability) IDs() []Kind {
	ids := make([]Kind, len(a.Backends))
	for i, d := range a.Backends {
		ids[i] = d.ID
	}
	return ids
}

// Prober determines which backends are usable right now.
type Prober struct {
	registry *Registry
	image    Checker
	pool     *ants.Pool
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewProber creates a prober. image may be nil when illustrations are not
// offered; pool may be nil, in which case probes run sequentially.
func NewProber(registry *Registry, image Checker, pool *ants.Pool, timeout time.Duration, logger zerolog.Logger) *Prober {
	return &Prober{
		registry: registry,
		image:    image,
		pool:     pool,
		timeout:  timeout,
		logger:   logger,
	}
}

// Probe checks every backend and the image service concurrently. Unusable
// services are omitted; no error is surfaced.
func (p *Prober) Probe(ctx context.Context) Availability {
	backends := p.registry.All()
	results := make([]bool, len(backends))
	imageOK := false

	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		p.run(func() {
			defer wg.Done()
			results[i] = p.check(ctx, b)
			if !results[i] {
				p.logger.Debug().Str("backend", b.Kind().String()).Msg("backend unavailable")
			}
		})
	}
	if p.image != nil {
		wg.Add(1)
		p.run(func() {
			defer wg.Done()
			imageOK = p.check(ctx, p.image)
		})
	}
	wg.Wait()

	availability := Availability{Backends: []Descriptor{}, Image: imageOK}
	for i, b := range backends {
		if results[i] {
			availability.Backends = append(availability.Backends, Describe(b))
		}
	}

	return availability
}

// check probes a single service with the prober timeout.
func (p *Prober) check(ctx context.Context, c Checker) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return c.Available(ctx)
}

// run submits task to the pool, falling back to the calling goroutine when
// the pool is absent or refuses the task.
func (p *Prober) run(task func()) {
	if p.pool != nil {
		err := p.pool.Submit(task)
		if err == nil {
			return
		}
		p.logger.Warn().Err(err).Msg("probe pool rejected task, running inline")
	}
	task()
}
