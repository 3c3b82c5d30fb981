package bandwidth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/crypto-node/cryptonode/internal/ledger"
	"github.com/crypto-node/cryptonode/internal/metrics"
)

// Crediter is the slice of the ledger store the monitor needs: an atomic
// per-wallet balance credit.
type Crediter interface {
	CreditWallet(ctx context.Context, id uuid.UUID, amount float64) (ledger.Wallet, error)
}

// Config assembles the monitor's dependencies and tunables.
type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Store  Crediter
	Meter  Meter

	// Interval between measurement ticks. Defaults to a minute.
	Interval time.Duration
	// RewardRate is the reward credited per MiB shared in an interval.
	// Zero is a valid rate and disables rewards.
	RewardRate float64
	// MinBandwidth is the minimum sample, in bytes, that earns a reward.
	MinBandwidth uint64
}

const (
	DefaultInterval     = time.Minute
	DefaultMinBandwidth = MiB
)

func (cfg *Config) validate() error {
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Meter == nil {
		cfg.Meter = SimulatedMeter{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RewardRate < 0 {
		return errors.New("reward rate cannot be negative")
	}
	if cfg.MinBandwidth == 0 {
		cfg.MinBandwidth = DefaultMinBandwidth
	}
	return nil
}

// Monitor runs one measurement loop per monitored wallet and converts
// contribution samples into ledger credits. Per wallet, ticks are strictly
// sequential; loops for different wallets are independent. A failed tick never
// stops the loop: the failure is recorded in the snapshot's health fields and
// the reward for that interval is lost, not retried.
type Monitor struct {
	log   *slog.Logger
	clock clockwork.Clock
	store Crediter
	meter Meter

	mu           sync.RWMutex
	m            Metrics
	interval     time.Duration
	rewardRate   float64
	minBandwidth uint64

	loopMu sync.Mutex
	loops  map[uuid.UUID]context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor builds a monitor. A zero interval or threshold takes the default;
// a zero reward rate is honored and pays nothing.
func NewMonitor(cfg Config) (*Monitor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Monitor{
		log:          cfg.Logger,
		clock:        cfg.Clock,
		store:        cfg.Store,
		meter:        cfg.Meter,
		m:            Metrics{StartTime: cfg.Clock.Now().UTC()},
		interval:     cfg.Interval,
		rewardRate:   cfg.RewardRate,
		minBandwidth: cfg.MinBandwidth,
		loops:        make(map[uuid.UUID]context.CancelFunc),
	}, nil
}

// StartMonitoring launches the periodic loop for a wallet and returns
// immediately. Starting an already-monitored wallet is a no-op. The loop runs
// until StopMonitoring, Close, or cancellation of ctx.
func (m *Monitor) StartMonitoring(ctx context.Context, walletID uuid.UUID) error {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()

	if _, running := m.loops[walletID]; running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.loops[walletID] = cancel
	metrics.WalletsMonitored.Inc()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(loopCtx, walletID)
	}()

	m.log.Info("bandwidth monitoring started", "wallet_id", walletID, "interval", m.interval)
	return nil
}

// StopMonitoring cancels the loop for a wallet. Unknown wallets return
// ErrNotFound.
func (m *Monitor) StopMonitoring(walletID uuid.UUID) error {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()

	cancel, ok := m.loops[walletID]
	if !ok {
		return fmt.Errorf("wallet %s is not monitored: %w", walletID, ledger.ErrNotFound)
	}
	cancel()
	delete(m.loops, walletID)
	metrics.WalletsMonitored.Dec()
	m.log.Info("bandwidth monitoring stopped", "wallet_id", walletID)
	return nil
}

// Close stops every loop and waits for them to drain.
func (m *Monitor) Close() {
	m.loopMu.Lock()
	for id, cancel := range m.loops {
		cancel()
		delete(m.loops, id)
		metrics.WalletsMonitored.Dec()
	}
	m.loopMu.Unlock()
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context, walletID uuid.UUID) {
	ticker := m.clock.NewTicker(m.currentInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.tick(ctx, walletID)
		}
	}
}

func (m *Monitor) tick(ctx context.Context, walletID uuid.UUID) {
	sample, err := m.meter.Sample(ctx)
	if err != nil {
		m.recordError(fmt.Errorf("sample bandwidth: %w", err))
		metrics.TickErrorsTotal.WithLabelValues("sample").Inc()
		return
	}

	m.mu.Lock()
	interval := m.interval
	m.m.TotalBytesShared += sample
	m.m.CurrentRate = float64(sample) / interval.Seconds()
	m.m.Uptime += interval
	rate := m.rewardRate
	minBandwidth := m.minBandwidth
	m.mu.Unlock()

	metrics.BytesSharedTotal.Add(float64(sample))

	if sample < minBandwidth {
		return
	}

	reward := float64(sample) / MiB * rate
	if reward == 0 {
		return
	}
	if _, err := m.store.CreditWallet(ctx, walletID, reward); err != nil {
		// Keep looping: a single bad tick must not kill reward accrual.
		// The interval's reward is lost, not deferred.
		m.recordError(fmt.Errorf("credit wallet %s: %w", walletID, err))
		metrics.TickErrorsTotal.WithLabelValues("credit").Inc()
		m.log.Warn("reward application skipped", "wallet_id", walletID, "error", err)
		return
	}

	now := m.clock.Now().UTC()
	m.mu.Lock()
	m.m.LastReward = &now
	m.m.RewardsPaid += reward
	m.mu.Unlock()

	metrics.RewardsPaidTotal.Add(reward)
	m.log.Debug("reward credited", "wallet_id", walletID, "bytes", sample, "reward", reward)
}

func (m *Monitor) recordError(err error) {
	now := m.clock.Now().UTC()
	m.mu.Lock()
	m.m.LastError = err.Error()
	m.m.LastErrorAt = &now
	m.mu.Unlock()
}

func (m *Monitor) currentInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interval
}

// Snapshot returns a copy of the current metrics.
func (m *Monitor) Snapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.m
}

// UpdateRewardRate changes the per-MiB reward rate for subsequent ticks.
// Negative rates are rejected; zero disables rewards.
func (m *Monitor) UpdateRewardRate(rate float64) error {
	if rate < 0 {
		return fmt.Errorf("reward rate cannot be negative: %w", ledger.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rewardRate = rate
	return nil
}

// UpdateMinBandwidth changes the reward threshold for subsequent ticks.
func (m *Monitor) UpdateMinBandwidth(min uint64) error {
	if min == 0 {
		return fmt.Errorf("minimum bandwidth cannot be zero: %w", ledger.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minBandwidth = min
	return nil
}

// TotalRewards is the derived lifetime reward: cumulative bytes priced at the
// current rate. It diverges from the accrued RewardsPaid snapshot field when
// the rate changed mid-history; RewardsPaid is the sum actually credited.
func (m *Monitor) TotalRewards() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.m.TotalBytesShared) / MiB * m.rewardRate
}

// EstimatedHourlyRewards projects an hourly reward from the latest
// instantaneous rate only.
func (m *Monitor) EstimatedHourlyRewards() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.m.CurrentRate * 3600 / MiB * m.rewardRate
}

// RewardRate returns the current per-MiB reward rate.
func (m *Monitor) RewardRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rewardRate
}

// MinBandwidth returns the current reward threshold in bytes.
func (m *Monitor) MinBandwidth() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.minBandwidth
}
