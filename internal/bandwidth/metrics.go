package bandwidth

import "time"

// MiB is the reward accounting unit: rewards accrue per mebibyte shared.
const MiB = 1 << 20

// Metrics is a point-in-time snapshot of the node's bandwidth contribution,
// aggregated across every monitored wallet. TotalBytesShared and Uptime only
// ever grow; CurrentRate is recomputed each tick from the latest sample.
type Metrics struct {
	TotalBytesShared uint64  `json:"total_bytes_shared"`
	CurrentRate      float64 `json:"current_rate"` // bytes per second
	// Uptime sums measured intervals over all loops, so with N wallets
	// monitored it advances N times faster than wall time.
	Uptime      time.Duration `json:"uptime"`
	RewardsPaid float64       `json:"rewards_paid"`
	LastReward  *time.Time    `json:"last_reward,omitempty"`
	StartTime   time.Time     `json:"start_time"`

	// LastError records the most recent swallowed tick failure so stuck
	// reward accrual is observable from outside the loop.
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
}
