package journal

import (
	"context"
	"strings"
	"time"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
	"trade-journal/internal/risk"
	"trade-journal/internal/sizing"
	"trade-journal/internal/store"
)

// NewTrade is the trade-entry form.
type NewTrade struct {
	Symbol     string
	Side       models.Side
	EntryPrice float64
	Capital    float64
	Leverage   float64
	Mode       sizing.Mode
	EntryDate  time.Time
	Exchange   string
	TradeType  models.TradeType
	AccountID  string

	// RiskPercent is the share of balance used as margin in RISK mode.
	RiskPercent float64

	StopLoss       *float64
	TakeProfit     *float64
	Strategy       string
	StrategyID     string
	Notes          string
	EntryReasons   []string
	MentalState    []string
	Tags           []string
	Setups         []string
	EntryChecklist []string
}

// OpenTrade sizes and records a new OPEN trade. LIVE entries are refused with
// a RiskLockError while the account's risk lock is active.
func (s *Service) OpenTrade(ctx context.Context, in NewTrade) (*models.Trade, sizing.Result, error) {
	logger := s.log(ctx, "open_trade")
	now := s.now()

	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return nil, sizing.Result{}, jerrors.NewValidationError("symbol", in.Symbol, "must not be empty")
	}
	side := in.Side
	if side == "" {
		side = models.SideLong
	}
	tradeType := in.TradeType
	if tradeType == "" {
		tradeType = models.TradeTypeLive
	}
	entryDate := in.EntryDate
	if entryDate.IsZero() {
		entryDate = now
	}

	var account *models.Account
	if in.AccountID != "" {
		acc, err := s.store.GetAccount(ctx, in.AccountID)
		if err != nil {
			return nil, sizing.Result{}, err
		}
		account = acc
	}

	leverage := in.Leverage
	if leverage == 0 && account != nil && account.Leverage >= 1 {
		leverage = account.Leverage
	}
	if leverage == 0 {
		leverage = 1
	}
	exchange := in.Exchange
	if exchange == "" && account != nil {
		exchange = account.Exchange
	}
	fees := metrics.FeeFor(exchange, s.opts.Metrics)
	if account != nil && account.Fees.Type != "" {
		fees = account.Fees
	}

	balance, err := s.AccountBalance(ctx, in.AccountID)
	if err != nil {
		return nil, sizing.Result{}, err
	}

	res, err := sizing.Calculate(sizing.Input{
		Symbol:           symbol,
		Side:             side,
		EntryPrice:       in.EntryPrice,
		Capital:          in.Capital,
		Leverage:         leverage,
		StopLoss:         in.StopLoss,
		TakeProfit:       in.TakeProfit,
		Fees:             fees,
		Mode:             in.Mode,
		RiskPercent:      in.RiskPercent,
		PortfolioBalance: balance,
	})
	if err != nil {
		return nil, sizing.Result{}, err
	}

	if tradeType == models.TradeTypeLive {
		existing, err := s.store.ListTrades(ctx, store.TradeQuery{AccountID: in.AccountID})
		if err != nil {
			return nil, sizing.Result{}, err
		}
		state := risk.Evaluate(models.ForAccount(existing, in.AccountID), s.opts.Risk, balance, now)
		if state.IsLocked {
			logger.Warn().Str("reason", state.LockReason).Msg("Trade refused by risk lock")
			return nil, res, jerrors.NewRiskLockError(state.LockReason)
		}
		if err := risk.CheckRiskPerTrade(res.Capital, balance, s.opts.Risk); err != nil {
			return nil, res, err
		}
	}

	t := &models.Trade{
		ID:             newTradeID(now),
		Symbol:         symbol,
		Side:           side,
		EntryPrice:     in.EntryPrice,
		Quantity:       res.Quantity,
		Capital:        res.Capital,
		Leverage:       leverage,
		EntryDate:      entryDate,
		Status:         models.StatusOpen,
		Exchange:       exchange,
		TradeType:      tradeType,
		Strategy:       in.Strategy,
		StrategyID:     in.StrategyID,
		StopLoss:       in.StopLoss,
		TakeProfit:     in.TakeProfit,
		Notes:          in.Notes,
		EntryReasons:   in.EntryReasons,
		MentalState:    in.MentalState,
		Tags:           in.Tags,
		Setups:         in.Setups,
		EntryChecklist: in.EntryChecklist,
		Fees:           models.Float(res.EstFees),
		AccountID:      in.AccountID,
	}
	if res.RiskReward > 0 {
		t.RiskReward = models.Float(res.RiskReward)
	}

	if err := t.Validate(); err != nil {
		return nil, res, err
	}
	if err := s.store.SaveTrade(ctx, t); err != nil {
		return nil, res, jerrors.Wrap(err, "failed to save trade")
	}

	logging.LogTradeOpened(logger, t.ID, t.Symbol, string(t.Side), t.Quantity, t.EntryPrice)
	return t, res, nil
}

// CloseTrade closes an OPEN trade at exitPrice. A non-empty reason is noted
// on the trade, e.g. "Stop Loss" for auto-closes.
func (s *Service) CloseTrade(ctx context.Context, id string, exitPrice float64, exitDate time.Time, reason string) (*models.Trade, error) {
	if exitPrice <= 0 {
		return nil, jerrors.ErrMissingExitPrice
	}
	if exitDate.IsZero() {
		exitDate = s.now()
	}

	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	t, err := s.store.GetTrade(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.Close(exitPrice, exitDate, reason); err != nil {
		return nil, err
	}
	if err := s.store.SaveTrade(ctx, t); err != nil {
		return nil, jerrors.Wrap(err, "failed to save trade")
	}

	logging.LogTradeClosed(s.log(ctx, "close_trade"), t.ID, t.Symbol, reason, exitPrice, t.PnLValue())
	return t, nil
}

// Annotation holds the post-trade review fields that may be added after a
// close.
type Annotation struct {
	ExitReasons   []string
	ExitChecklist []string
	ExitQuality   int
	Notes         string
}

// Annotate records the exit review of a closed trade. Entry and exit figures
// are never touched.
func (s *Service) Annotate(ctx context.Context, id string, a Annotation) (*models.Trade, error) {
	if a.ExitQuality < 0 || a.ExitQuality > 5 {
		return nil, jerrors.NewValidationError("exitQuality", a.ExitQuality, "must be between 1 and 5")
	}

	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	t, err := s.store.GetTrade(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsClosed() {
		return nil, jerrors.NewValidationError("status", t.Status, "only closed trades can be reviewed")
	}
	if a.ExitReasons != nil {
		t.ExitReasons = a.ExitReasons
	}
	if a.ExitChecklist != nil {
		t.ExitChecklist = a.ExitChecklist
	}
	if a.ExitQuality > 0 {
		t.ExitQuality = a.ExitQuality
	}
	if a.Notes != "" {
		if t.Notes == "" {
			t.Notes = a.Notes
		} else {
			t.Notes += "\n" + a.Notes
		}
	}
	if err := s.store.SaveTrade(ctx, t); err != nil {
		return nil, jerrors.Wrap(err, "failed to save trade")
	}
	return t, nil
}

// OpenTrades lists every OPEN trade, oldest first.
func (s *Service) OpenTrades(ctx context.Context) ([]models.Trade, error) {
	return s.store.ListTrades(ctx, store.TradeQuery{Status: models.StatusOpen})
}
