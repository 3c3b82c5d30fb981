package ledger

import "github.com/google/uuid"

// SeedBalance is a test helper that sets a wallet balance directly when using
// the in-memory store.
func SeedBalance(s Store, id uuid.UUID, balance float64) {
	if mem, ok := s.(*MemoryStore); ok {
		mem.walletMu.Lock()
		defer mem.walletMu.Unlock()
		if w, exists := mem.wallets[id]; exists {
			w.Balance = balance
			mem.wallets[id] = w
		}
	}
}
