package server

import (
	"github.com/gin-gonic/gin"

	"mindful-trader/internal/models"
	"mindful-trader/internal/stats"
	"mindful-trader/internal/stream"
	"mindful-trader/pkg/response"
)

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Daily      models.DailyStats `json:"daily"`
	AllTime    float64           `json:"allTimePoints"`
	Limit      int               `json:"dailyTradeLimit"`
	Dates      []string          `json:"dates"`
	ByStrategy []stats.Group     `json:"byStrategy"`
}

// SelectDateRequest is the body of PUT /api/date.
type SelectDateRequest struct {
	Date string `json:"date" binding:"required"`
}

func (s *Server) registerStatsRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", s.GetStats)
	rg.GET("/date", s.GetSelectedDate)
	rg.PUT("/date", s.SelectDate)
}

// GetStats returns the summary of one date and the all-time result
// GET /api/stats?date=YYYY-MM-DD
func (s *Server) GetStats(c *gin.Context) {
	all := s.journal.All()
	date := c.DefaultQuery("date", s.journal.SelectedDate())
	response.Success(c, StatsResponse{
		Daily:      stats.Daily(all, date, s.journal.DailyTradeLimit()),
		AllTime:    stats.AllTime(all),
		Limit:      s.journal.DailyTradeLimit(),
		Dates:      stats.Dates(all),
		ByStrategy: stats.ByStrategy(all),
	})
}

// GetSelectedDate returns the date new trades default to
// GET /api/date
func (s *Server) GetSelectedDate(c *gin.Context) {
	response.Success(c, gin.H{"date": s.journal.SelectedDate()})
}

// SelectDate changes the selected date
// PUT /api/date
func (s *Server) SelectDate(c *gin.Context) {
	var req SelectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := s.journal.SelectDate(req.Date); err != nil {
		s.fail(c, err)
		return
	}
	response.Success(c, gin.H{"date": req.Date})
	s.emit(stream.DateSelected, "", req.Date, nil)
}
