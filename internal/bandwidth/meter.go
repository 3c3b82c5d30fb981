package bandwidth

import (
	"context"
	"math/rand/v2"
)

// Meter reports the number of bytes shared during the last measurement
// interval. Implementations may be slow or failing; the monitor treats the
// meter as an opaque external source and calls it once per tick.
type Meter interface {
	Sample(ctx context.Context) (uint64, error)
}

// MeterFunc adapts a function to the Meter interface.
type MeterFunc func(ctx context.Context) (uint64, error)

func (f MeterFunc) Sample(ctx context.Context) (uint64, error) { return f(ctx) }

// SimulatedMeter is a placeholder that reports a random sample between 1 MiB
// and 10 MiB per interval, standing in for real link measurement.
type SimulatedMeter struct{}

func (SimulatedMeter) Sample(context.Context) (uint64, error) {
	return MiB + rand.Uint64N(9*MiB), nil
}
