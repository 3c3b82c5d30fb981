package bandwidth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/crypto-node/cryptonode/internal/ledger"
	"github.com/crypto-node/cryptonode/internal/logging"
)

type mockCrediter struct {
	credits    atomic.Int64
	total      atomic.Value // float64
	creditFunc func(ctx context.Context, id uuid.UUID, amount float64) (ledger.Wallet, error)
}

func (m *mockCrediter) CreditWallet(ctx context.Context, id uuid.UUID, amount float64) (ledger.Wallet, error) {
	m.credits.Add(1)
	if m.creditFunc != nil {
		return m.creditFunc(ctx, id, amount)
	}
	prev, _ := m.total.Load().(float64)
	m.total.Store(prev + amount)
	return ledger.Wallet{ID: id, Balance: prev + amount}, nil
}

func (m *mockCrediter) credited() float64 {
	v, _ := m.total.Load().(float64)
	return v
}

type countingMeter struct {
	samples atomic.Int64
	bytes   uint64
	err     error
}

func (m *countingMeter) Sample(context.Context) (uint64, error) {
	m.samples.Add(1)
	return m.bytes, m.err
}

func newTestMonitor(t *testing.T, clock clockwork.Clock, store Crediter, meter Meter) *Monitor {
	t.Helper()
	m, err := NewMonitor(Config{
		Logger:       logging.Discard(),
		Clock:        clock,
		Store:        store,
		Meter:        meter,
		Interval:     time.Minute,
		RewardRate:   0.0001,
		MinBandwidth: MiB,
	})
	require.NoError(t, err)
	return m
}

func TestMonitorTickPaysReward(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &mockCrediter{}
	meter := &countingMeter{bytes: 2 * MiB} // 2,097,152 bytes
	m := newTestMonitor(t, clock, store, meter)
	defer m.Close()

	walletID := uuid.New()
	require.NoError(t, m.StartMonitoring(context.Background(), walletID))

	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		return m.Snapshot().TotalBytesShared == 2*MiB
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return m.Snapshot().LastReward != nil
	}, time.Second, time.Millisecond)

	snap := m.Snapshot()
	require.InDelta(t, 34952.533, snap.CurrentRate, 0.001)
	require.Equal(t, time.Minute, snap.Uptime)
	require.InDelta(t, 0.0002, snap.RewardsPaid, 1e-12)
	require.InDelta(t, 0.0002, store.credited(), 1e-12)
	require.Empty(t, snap.LastError)

	require.InDelta(t, 0.0002, m.TotalRewards(), 1e-12)
	require.InDelta(t, 0.012, m.EstimatedHourlyRewards(), 1e-9)
}

func TestMonitorBelowThresholdSkipsReward(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &mockCrediter{}
	meter := &countingMeter{bytes: 512 * 1024}
	m := newTestMonitor(t, clock, store, meter)
	defer m.Close()

	require.NoError(t, m.StartMonitoring(context.Background(), uuid.New()))

	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		return m.Snapshot().TotalBytesShared == 512*1024
	}, time.Second, time.Millisecond)

	snap := m.Snapshot()
	require.Equal(t, time.Minute, snap.Uptime)
	require.Nil(t, snap.LastReward)
	require.Zero(t, snap.RewardsPaid)
	require.Zero(t, store.credits.Load())
}

func TestMonitorZeroRatePaysNothing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &mockCrediter{}
	meter := &countingMeter{bytes: 2 * MiB}
	m, err := NewMonitor(Config{
		Logger:       logging.Discard(),
		Clock:        clock,
		Store:        store,
		Meter:        meter,
		Interval:     time.Minute,
		RewardRate:   0,
		MinBandwidth: MiB,
	})
	require.NoError(t, err)
	defer m.Close()

	// A zero rate means rewards are disabled, not unset.
	require.Zero(t, m.RewardRate())

	require.NoError(t, m.StartMonitoring(context.Background(), uuid.New()))

	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		return m.Snapshot().TotalBytesShared == 2*MiB
	}, time.Second, time.Millisecond)

	snap := m.Snapshot()
	require.Equal(t, time.Minute, snap.Uptime)
	require.Nil(t, snap.LastReward)
	require.Zero(t, snap.RewardsPaid)
	require.Zero(t, store.credits.Load())
	require.Zero(t, m.TotalRewards())
}

func TestMonitorAccruesAcrossTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &mockCrediter{}
	meter := &countingMeter{bytes: MiB}
	m := newTestMonitor(t, clock, store, meter)
	defer m.Close()

	require.NoError(t, m.StartMonitoring(context.Background(), uuid.New()))

	const ticks = 3
	for i := 1; i <= ticks; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Minute)
		want := uint64(i) * MiB
		require.Eventually(t, func() bool {
			return m.Snapshot().TotalBytesShared == want
		}, time.Second, time.Millisecond)
	}

	snap := m.Snapshot()
	require.Equal(t, uint64(ticks*MiB), snap.TotalBytesShared)
	require.Equal(t, ticks*time.Minute, snap.Uptime)
	require.InDelta(t, ticks*0.0001, store.credited(), 1e-12)
}

func TestMonitorSurvivesCreditFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &mockCrediter{
		creditFunc: func(context.Context, uuid.UUID, float64) (ledger.Wallet, error) {
			return ledger.Wallet{}, ledger.ErrNotFound
		},
	}
	meter := &countingMeter{bytes: 2 * MiB}
	m := newTestMonitor(t, clock, store, meter)
	defer m.Close()

	require.NoError(t, m.StartMonitoring(context.Background(), uuid.New()))

	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	// The failure is swallowed but observable, and the loop keeps ticking.
	require.Eventually(t, func() bool {
		return m.Snapshot().LastError != ""
	}, time.Second, time.Millisecond)
	snap := m.Snapshot()
	require.Nil(t, snap.LastReward)
	require.NotNil(t, snap.LastErrorAt)
	require.Equal(t, uint64(2*MiB), snap.TotalBytesShared)

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return m.Snapshot().TotalBytesShared == 4*MiB
	}, time.Second, time.Millisecond)
	require.EqualValues(t, 2, store.credits.Load())
}

func TestMonitorRecordsMeterFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &mockCrediter{}
	meter := &countingMeter{err: errors.New("link down")}
	m := newTestMonitor(t, clock, store, meter)
	defer m.Close()

	require.NoError(t, m.StartMonitoring(context.Background(), uuid.New()))

	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		return m.Snapshot().LastError != ""
	}, time.Second, time.Millisecond)
	snap := m.Snapshot()
	require.Zero(t, snap.TotalBytesShared)
	require.Zero(t, store.credits.Load())
}

func TestStopMonitoringHaltsTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &mockCrediter{}
	meter := &countingMeter{bytes: 2 * MiB}
	m := newTestMonitor(t, clock, store, meter)
	defer m.Close()

	walletID := uuid.New()
	require.NoError(t, m.StartMonitoring(context.Background(), walletID))

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return meter.samples.Load() == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, m.StopMonitoring(walletID))
	m.Close() // wait for the loop to drain before advancing again

	clock.Advance(10 * time.Minute)
	require.EqualValues(t, 1, meter.samples.Load())

	require.ErrorIs(t, m.StopMonitoring(walletID), ledger.ErrNotFound)
}

func TestStartMonitoringIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &mockCrediter{}
	m := newTestMonitor(t, clock, store, &countingMeter{bytes: MiB})
	defer m.Close()

	walletID := uuid.New()
	require.NoError(t, m.StartMonitoring(context.Background(), walletID))
	require.NoError(t, m.StartMonitoring(context.Background(), walletID))

	// Only one loop exists, so only one ticker is waiting on the clock.
	clock.BlockUntil(1)
}

func TestNewMonitorRejectsNegativeRate(t *testing.T) {
	_, err := NewMonitor(Config{
		Logger:     logging.Discard(),
		Store:      &mockCrediter{},
		RewardRate: -0.0001,
	})
	require.Error(t, err)
}

func TestUpdateRewardRate(t *testing.T) {
	m := newTestMonitor(t, clockwork.NewFakeClock(), &mockCrediter{}, &countingMeter{})
	defer m.Close()

	require.ErrorIs(t, m.UpdateRewardRate(-1.0), ledger.ErrInvalidInput)
	require.NoError(t, m.UpdateRewardRate(0.0))
	require.Zero(t, m.RewardRate())
	require.NoError(t, m.UpdateRewardRate(0.5))
	require.Equal(t, 0.5, m.RewardRate())
}

func TestUpdateMinBandwidth(t *testing.T) {
	m := newTestMonitor(t, clockwork.NewFakeClock(), &mockCrediter{}, &countingMeter{})
	defer m.Close()

	require.ErrorIs(t, m.UpdateMinBandwidth(0), ledger.ErrInvalidInput)
	require.NoError(t, m.UpdateMinBandwidth(2*MiB))
	require.Equal(t, uint64(2*MiB), m.MinBandwidth())
}

func TestDerivedTotalUsesCurrentRate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &mockCrediter{}
	meter := &countingMeter{bytes: 2 * MiB}
	m := newTestMonitor(t, clock, store, meter)
	defer m.Close()

	require.NoError(t, m.StartMonitoring(context.Background(), uuid.New()))
	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return m.Snapshot().RewardsPaid > 0
	}, time.Second, time.Millisecond)

	// Doubling the rate after the fact doubles the derived total but leaves
	// the accrued sum at what was actually credited.
	require.NoError(t, m.UpdateRewardRate(0.0002))
	require.InDelta(t, 0.0004, m.TotalRewards(), 1e-12)
	require.InDelta(t, 0.0002, m.Snapshot().RewardsPaid, 1e-12)
}

func TestSimulatedMeterRange(t *testing.T) {
	meter := SimulatedMeter{}
	for i := 0; i < 100; i++ {
		sample, err := meter.Sample(context.Background())
		require.NoError(t, err)
		require.GreaterOrEqual(t, sample, uint64(MiB))
		require.Less(t, sample, uint64(10*MiB))
	}
}
