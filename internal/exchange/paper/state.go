package paper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"vibetrader/internal/logger"
)

// persisted is the on-disk shape of the simulated account.
type persisted struct {
	SavedAt        time.Time   `json:"saved_at"`
	InitialBalance float64     `json:"initial_balance"`
	Balance        float64     `json:"balance"`
	Positions      []*position `json:"positions"`
	Orders         []order     `json:"orders"`
	TotalTrades    int         `json:"total_trades"`
	WinningTrades  int         `json:"winning_trades"`
	LosingTrades   int         `json:"losing_trades"`
	RealizedPnL    float64     `json:"realized_pnl"`
	TotalFees      float64     `json:"total_fees"`
}

func (a *Adapter) loadState() error {
	if a.statePath == "" {
		return nil
	}
	data, err := os.ReadFile(a.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var st persisted
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	a.balance = st.Balance
	if st.InitialBalance > 0 {
		a.initialBalance = st.InitialBalance
	}
	a.positions = make(map[string]*position, len(st.Positions))
	for _, p := range st.Positions {
		a.positions[p.Symbol] = p
	}
	a.orders = st.Orders
	a.totalTrades = st.TotalTrades
	a.wins = st.WinningTrades
	a.losses = st.LosingTrades
	a.realized = st.RealizedPnL
	a.fees = st.TotalFees
	logger.Infof("paper: restored state from %s (balance=%.2f, positions=%d)",
		a.statePath, a.balance, len(a.positions))
	return nil
}

// saveStateLocked writes the account to disk via a temp-file rename so a
// crash mid-write cannot corrupt the previous state. Caller holds the lock.
func (a *Adapter) saveStateLocked() {
	if a.statePath == "" {
		return
	}
	st := persisted{
		SavedAt:        time.Now(),
		InitialBalance: a.initialBalance,
		Balance:        a.balance,
		Orders:         a.orders,
		TotalTrades:    a.totalTrades,
		WinningTrades:  a.wins,
		LosingTrades:   a.losses,
		RealizedPnL:    a.realized,
		TotalFees:      a.fees,
	}
	for _, p := range a.positions {
		st.Positions = append(st.Positions, p)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		logger.Errorf("paper: state marshal failed: %v", err)
		return
	}
	if dir := filepath.Dir(a.statePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Errorf("paper: state dir create failed: %v", err)
			return
		}
	}
	tmp := a.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logger.Errorf("paper: state write failed: %v", err)
		return
	}
	if err := os.Rename(tmp, a.statePath); err != nil {
		logger.Errorf("paper: state rename failed: %v", err)
	}
}
