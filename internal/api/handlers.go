package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/calendar"
	"trade-journal/internal/csvimport"
	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/filter"
	"trade-journal/internal/journal"
	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
	"trade-journal/internal/ranking"
	"trade-journal/internal/sizing"
)

// scope reads the account and filter query parameters shared by the
// analytics endpoints.
func (s *Server) scope(c *gin.Context) (journal.Scope, error) {
	loc := s.journal.Now().Location()
	date, err := filter.ParseDateFilter(c.Query("range"), loc)
	if err != nil {
		return journal.Scope{}, err
	}
	return journal.Scope{
		AccountID: c.Query("account"),
		Filters: filter.Filters{
			Symbol:   strings.ToUpper(c.Query("symbol")),
			Strategy: c.Query("strategy"),
			Setup:    c.Query("setup"),
			Side:     c.Query("side"),
			Quality:  c.Query("quality"),
			Tag:      c.Query("tag"),
			Date:     date,
		},
	}, nil
}

func (s *Server) handleListTrades(c *gin.Context) {
	sc, err := s.scope(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	trades, err := s.journal.Trades(c.Request.Context(), sc)
	if err != nil {
		s.fail(c, err)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	successResponse(c, trades)
}

func (s *Server) handleFilterOptions(c *gin.Context) {
	trades, err := s.journal.Trades(c.Request.Context(), journal.Scope{AccountID: c.Query("account")})
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, filter.Options(trades))
}

type openTradeRequest struct {
	Symbol         string           `json:"symbol" binding:"required"`
	Side           models.Side      `json:"side"`
	EntryPrice     float64          `json:"entryPrice" binding:"required"`
	Capital        float64          `json:"capital"`
	Leverage       float64          `json:"leverage"`
	Mode           sizing.Mode      `json:"mode"`
	RiskPercent    float64          `json:"riskPercent"`
	EntryDate      *time.Time       `json:"entryDate"`
	Exchange       string           `json:"exchange"`
	TradeType      models.TradeType `json:"tradeType"`
	AccountID      string           `json:"accountId"`
	StopLoss       *float64         `json:"stopLoss"`
	TakeProfit     *float64         `json:"takeProfit"`
	Strategy       string           `json:"strategy"`
	StrategyID     string           `json:"strategyId"`
	Notes          string           `json:"notes"`
	EntryReasons   []string         `json:"entryReasons"`
	MentalState    []string         `json:"mentalState"`
	Tags           []string         `json:"tags"`
	Setups         []string         `json:"setups"`
	EntryChecklist []string         `json:"entryChecklist"`
}

func (s *Server) handleOpenTrade(c *gin.Context) {
	var req openTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	in := journal.NewTrade{
		Symbol:         req.Symbol,
		Side:           models.Side(strings.ToUpper(string(req.Side))),
		EntryPrice:     req.EntryPrice,
		Capital:        req.Capital,
		Leverage:       req.Leverage,
		Mode:           sizing.Mode(strings.ToUpper(string(req.Mode))),
		RiskPercent:    req.RiskPercent,
		Exchange:       req.Exchange,
		TradeType:      models.TradeType(strings.ToUpper(string(req.TradeType))),
		AccountID:      req.AccountID,
		StopLoss:       req.StopLoss,
		TakeProfit:     req.TakeProfit,
		Strategy:       req.Strategy,
		StrategyID:     req.StrategyID,
		Notes:          req.Notes,
		EntryReasons:   req.EntryReasons,
		MentalState:    req.MentalState,
		Tags:           req.Tags,
		Setups:         req.Setups,
		EntryChecklist: req.EntryChecklist,
	}
	if req.EntryDate != nil {
		in.EntryDate = *req.EntryDate
	}

	trade, res, err := s.journal.OpenTrade(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    trade,
		"sizing":  res,
	})
}

type closeTradeRequest struct {
	ExitPrice float64    `json:"exitPrice"`
	ExitDate  *time.Time `json:"exitDate"`
	Reason    string     `json:"reason"`
}

func (s *Server) handleCloseTrade(c *gin.Context) {
	var req closeTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	var exitDate time.Time
	if req.ExitDate != nil {
		exitDate = *req.ExitDate
	}

	trade, err := s.journal.CloseTrade(c.Request.Context(), c.Param("id"), req.ExitPrice, exitDate, req.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, trade)
}

type reviewRequest struct {
	ExitReasons   []string `json:"exitReasons"`
	ExitChecklist []string `json:"exitChecklist"`
	ExitQuality   int      `json:"exitQuality"`
	Notes         string   `json:"notes"`
}

func (s *Server) handleReviewTrade(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	trade, err := s.journal.Annotate(c.Request.Context(), c.Param("id"), journal.Annotation{
		ExitReasons:   req.ExitReasons,
		ExitChecklist: req.ExitChecklist,
		ExitQuality:   req.ExitQuality,
		Notes:         req.Notes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, trade)
}

type bulkDeleteRequest struct {
	IDs     []string `json:"ids"`
	Confirm bool     `json:"confirm"`
}

func (s *Server) handleBulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	batch, err := s.journal.BulkDelete(c.Request.Context(), req.IDs, req.Confirm)
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, batch)
}

func (s *Server) handleUndo(c *gin.Context) {
	batch, err := s.journal.Undo(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, batch)
}

func (s *Server) handleMetrics(c *gin.Context) {
	sc, err := s.scope(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	m, _, err := s.journal.Metrics(c.Request.Context(), sc)
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, m)
}

func (s *Server) handleRank(c *gin.Context) {
	sc, err := s.scope(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	m, _, err := s.journal.Metrics(c.Request.Context(), sc)
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, ranking.DefaultTable().Progress(m.ProfitFactor, m.MaxDrawdownPct, m.RealizedRR))
}

func (s *Server) handleBreakdown(c *gin.Context) {
	key, ok := calendar.KeyFuncs[strings.ToLower(c.Param("by"))]
	if !ok {
		errorResponse(c, http.StatusBadRequest, fmt.Sprintf("unknown breakdown %q", c.Param("by")))
		return
	}
	sc, err := s.scope(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	trades, err := s.journal.Trades(c.Request.Context(), sc)
	if err != nil {
		s.fail(c, err)
		return
	}
	buckets := calendar.Group(trades, key)
	if buckets == nil {
		buckets = []calendar.Bucket{}
	}
	successResponse(c, buckets)
}

func (s *Server) handleCalendar(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		errorResponse(c, http.StatusBadRequest, "invalid month")
		return
	}

	trades, err := s.journal.Trades(c.Request.Context(), journal.Scope{AccountID: c.Query("account")})
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, calendar.Month(trades, year, time.Month(month), s.journal.Now().Location()))
}

type sizeRequest struct {
	Symbol           string            `json:"symbol"`
	Side             models.Side       `json:"side"`
	EntryPrice       float64           `json:"entryPrice"`
	Capital          float64           `json:"capital"`
	Leverage         float64           `json:"leverage"`
	StopLoss         *float64          `json:"stopLoss"`
	TakeProfit       *float64          `json:"takeProfit"`
	Exchange         string            `json:"exchange"`
	Fees             *models.FeeConfig `json:"fees"`
	Mode             sizing.Mode       `json:"mode"`
	RiskPercent      float64           `json:"riskPercent"`
	PortfolioBalance float64           `json:"portfolioBalance"`
}

func (s *Server) handleSize(c *gin.Context) {
	var req sizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	fees := metrics.FeeFor(req.Exchange, s.journal.Options().Metrics)
	if req.Fees != nil {
		fees = *req.Fees
	}
	leverage := req.Leverage
	if leverage == 0 {
		leverage = 1
	}
	side := models.Side(strings.ToUpper(string(req.Side)))
	if side == "" {
		side = models.SideLong
	}

	res, err := sizing.Calculate(sizing.Input{
		Symbol:           strings.ToUpper(req.Symbol),
		Side:             side,
		EntryPrice:       req.EntryPrice,
		Capital:          req.Capital,
		Leverage:         leverage,
		StopLoss:         req.StopLoss,
		TakeProfit:       req.TakeProfit,
		Fees:             fees,
		Mode:             sizing.Mode(strings.ToUpper(string(req.Mode))),
		RiskPercent:      req.RiskPercent,
		PortfolioBalance: req.PortfolioBalance,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, res)
}

func (s *Server) handleImport(c *gin.Context) {
	source := c.Query("source")
	if source == "" {
		source = "api"
	}
	res, err := s.journal.Import(c.Request.Context(), c.Request.Body, source, c.Query("account"))
	if err != nil {
		if jerrors.Is(err, jerrors.ErrMissingColumns) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   true,
				"message": err.Error(),
				"errors":  res.Errors,
			})
			return
		}
		s.fail(c, err)
		return
	}
	successResponse(c, gin.H{
		"imported": len(res.Trades),
		"skipped":  res.Skipped,
	})
}

func (s *Server) handleExport(c *gin.Context) {
	sc, err := s.scope(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	xlsx := strings.EqualFold(c.Query("format"), "xlsx")
	now := s.journal.Now()
	name := csvimport.ExportFilename(now)
	contentType := "text/csv"
	if xlsx {
		name = csvimport.ExportXLSXFilename(now)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := s.journal.Export(c.Request.Context(), c.Writer, sc, xlsx); err != nil {
		s.logger.Error().Err(err).Msg("Export failed")
	}
}

func (s *Server) handleListAccounts(c *gin.Context) {
	accounts, err := s.journal.Accounts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	successResponse(c, accounts)
}

func (s *Server) handleAddAccount(c *gin.Context) {
	var req models.Account
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := s.journal.AddAccount(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": acc})
}

func (s *Server) handleBalance(c *gin.Context) {
	accountID := c.Query("account")
	bal, err := s.journal.AccountBalance(c.Request.Context(), accountID)
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, gin.H{"accountId": accountID, "balance": bal})
}

type transactionRequest struct {
	Type      models.TransactionType `json:"type" binding:"required"`
	Amount    float64                `json:"amount"`
	AccountID string                 `json:"accountId"`
	Note      string                 `json:"note"`
}

func (s *Server) handleTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var (
		tx  *models.Transaction
		err error
	)
	switch models.TransactionType(strings.ToUpper(string(req.Type))) {
	case models.TransactionDeposit:
		tx, err = s.journal.Deposit(c.Request.Context(), req.AccountID, req.Amount, req.Note)
	case models.TransactionWithdrawal:
		tx, err = s.journal.Withdraw(c.Request.Context(), req.AccountID, req.Amount, req.Note)
	default:
		errorResponse(c, http.StatusBadRequest, "type must be DEPOSIT or WITHDRAWAL")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": tx})
}

func (s *Server) handleRisk(c *gin.Context) {
	report, err := s.journal.Risk(c.Request.Context(), c.Query("account"))
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, report)
}

func (s *Server) handlePrice(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	price, err := s.prices.FetchPrice(c.Request.Context(), symbol)
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, models.Quote{Symbol: symbol, Price: price, Timestamp: s.journal.Now()})
}
