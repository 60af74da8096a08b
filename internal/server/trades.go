package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/intake"
	"mindful-trader/internal/journal"
	"mindful-trader/internal/stats"
	"mindful-trader/internal/stream"
	"mindful-trader/pkg/response"
	"mindful-trader/pkg/utils"
)

// CreateTradeRequest is the body of POST /api/trades: both wizard steps at once.
type CreateTradeRequest struct {
	Mindset                  intake.Mindset `json:"mindset"`
	Details                  intake.Details `json:"details"`
	AcknowledgeEmotionalRisk bool           `json:"acknowledgeEmotionalRisk"`
}

// CloseTradeRequest is the body of POST /api/trades/:id/close.
type CloseTradeRequest struct {
	ExitPrice        string `json:"exitPrice"`
	ExitCandleNumber string `json:"exitCandleNumber"`
	UserNotes        string `json:"userNotes"`
}

// NotesRequest is the body of PUT /api/trades/:id/notes.
type NotesRequest struct {
	UserNotes string `json:"userNotes"`
}

func (s *Server) registerTradeRoutes(rg *gin.RouterGroup) {
	trades := rg.Group("/trades")
	{
		trades.GET("", s.ListTrades)
		trades.POST("", s.CreateTrade)
		trades.GET("/:id", s.GetTrade)
		trades.PATCH("/:id", s.EditTrade)
		trades.DELETE("/:id", s.DeleteTrade)
		trades.POST("/:id/close", s.CloseTrade)
		trades.PUT("/:id/notes", s.SetNotes)
		trades.POST("/:id/analyze", s.AnalyzeTrade)
	}
}

// ListTrades returns the trades of one date, newest first
// GET /api/trades?date=YYYY-MM-DD | ?all=true
func (s *Server) ListTrades(c *gin.Context) {
	all := s.journal.All()
	if c.Query("all") == "true" {
		response.Success(c, all)
		return
	}
	date := c.DefaultQuery("date", s.journal.SelectedDate())
	response.Success(c, stats.ForDate(all, date))
}

// CreateTrade runs the intake checks and records the trade
// POST /api/trades
func (s *Server) CreateTrade(c *gin.Context) {
	var req CreateTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	w := intake.New(s.journal.SelectedDate()).WithTimeframe(s.cfg.DefaultTimeframe)
	w.SetMindset(req.Mindset)
	if req.AcknowledgeEmotionalRisk {
		w.AcknowledgeEmotionalRisk()
	}
	if err := w.Next(); err != nil {
		s.fail(c, err)
		return
	}

	details := req.Details
	if details.Date == "" {
		details.Date = w.Details().Date
	}
	if details.Timeframe == "" {
		details.Timeframe = w.Details().Timeframe
	}
	w.SetDetails(details)

	draft, err := w.Submit()
	if err != nil {
		s.fail(c, err)
		return
	}
	trade, err := s.journal.Create(c.Request.Context(), draft)
	s.respond(c, http.StatusCreated, trade, err)
	s.emit(stream.TradeCreated, trade.ID, trade.Date, err)
}

// GetTrade returns one trade
// GET /api/trades/:id
func (s *Server) GetTrade(c *gin.Context) {
	t, err := s.journal.Trade(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	response.Success(c, t)
}

// EditTrade applies a partial update
// PATCH /api/trades/:id
func (s *Server) EditTrade(c *gin.Context) {
	var e journal.Edit
	if err := c.ShouldBindJSON(&e); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	t, err := s.journal.Edit(c.Request.Context(), c.Param("id"), e)
	s.respond(c, http.StatusOK, t, err)
	s.emit(stream.TradeUpdated, t.ID, t.Date, err)
}

// DeleteTrade removes a trade. Without confirm=true the trade is returned
// as a preview and nothing is deleted
// DELETE /api/trades/:id?confirm=true
func (s *Server) DeleteTrade(c *gin.Context) {
	id := c.Param("id")
	t, err := s.journal.Trade(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !confirmed(c) {
		response.ConfirmRequired(c, t, "deleting a trade cannot be undone; repeat with confirm=true")
		return
	}
	err = s.journal.Delete(c.Request.Context(), id)
	s.respond(c, http.StatusOK, gin.H{"deleted": id}, err)
	s.emit(stream.TradeDeleted, id, t.Date, err)
}

// CloseTrade records the exit of a trade
// POST /api/trades/:id/close
func (s *Server) CloseTrade(c *gin.Context) {
	var req CloseTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	exit, err := utils.ParsePrice(req.ExitPrice)
	if err != nil {
		s.fail(c, apperrors.NewValidationError("exitPrice", req.ExitPrice, err.Error()))
		return
	}
	t, err := s.journal.Close(c.Request.Context(), c.Param("id"), exit, req.ExitCandleNumber, req.UserNotes)
	s.respond(c, http.StatusOK, t, err)
	s.emit(stream.TradeClosed, t.ID, t.Date, err)
}

// SetNotes replaces the review notes of a trade
// PUT /api/trades/:id/notes
func (s *Server) SetNotes(c *gin.Context) {
	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	t, err := s.journal.SetNotes(c.Request.Context(), c.Param("id"), req.UserNotes)
	s.respond(c, http.StatusOK, t, err)
	s.emit(stream.TradeUpdated, t.ID, t.Date, err)
}

// AnalyzeTrade asks the coach to review a trade and returns the updated trade
// POST /api/trades/:id/analyze
func (s *Server) AnalyzeTrade(c *gin.Context) {
	t, err := s.journal.Analyze(c.Request.Context(), c.Param("id"))
	s.respond(c, http.StatusOK, t, err)
	s.emit(stream.TradeAnalyzed, t.ID, t.Date, err)
}
