package server

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"mindful-trader/internal/backup"
	"mindful-trader/internal/stream"
	"mindful-trader/pkg/response"
)

// ImportPreview describes what an import would do.
type ImportPreview struct {
	Current    int    `json:"current"`
	Incoming   int    `json:"incoming"`
	LatestDate string `json:"latestDate"`
}

func (s *Server) registerBackupRoutes(rg *gin.RouterGroup) {
	rg.GET("/backup/export", s.ExportBackup)
	rg.POST("/backup/import", s.ImportBackup)
	rg.POST("/reset", s.Reset)
}

// ExportBackup downloads every trade
// GET /api/backup/export?format=json|yaml|csv
func (s *Server) ExportBackup(c *gin.Context) {
	format, err := backup.ParseFormat(c.Query("format"))
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := backup.Export(&buf, s.journal.All(), format); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+backup.FileName(s.now(), format)+`"`)
	c.Data(http.StatusOK, backup.ContentType(format), buf.Bytes())
}

// ImportBackup replaces the journal with the posted backup document. The
// document is always validated; without confirm=true only a preview is
// returned
// POST /api/backup/import?format=json|yaml&confirm=true
func (s *Server) ImportBackup(c *gin.Context) {
	format, err := backup.ParseFormat(c.Query("format"))
	if err != nil {
		s.fail(c, err)
		return
	}
	trades, err := backup.Decode(c.Request.Body, format)
	if err != nil {
		s.fail(c, err)
		return
	}

	preview := ImportPreview{
		Current:    len(s.journal.All()),
		Incoming:   len(trades),
		LatestDate: backup.LatestDate(trades),
	}
	if !confirmed(c) {
		response.ConfirmRequired(c, preview, "importing replaces every trade; repeat with confirm=true")
		return
	}

	err = s.journal.ApplyImport(c.Request.Context(), trades)
	s.respond(c, http.StatusOK, gin.H{
		"imported":     len(trades),
		"selectedDate": s.journal.SelectedDate(),
	}, err)
	s.emit(stream.JournalImported, "", s.journal.SelectedDate(), err)
}

// Reset deletes every trade and starts a new chat session
// POST /api/reset?confirm=true
func (s *Server) Reset(c *gin.Context) {
	if !confirmed(c) {
		response.ConfirmRequired(c, gin.H{"trades": len(s.journal.All())}, "reset deletes every trade; repeat with confirm=true")
		return
	}
	err := s.journal.Reset(c.Request.Context())
	s.respond(c, http.StatusOK, gin.H{"selectedDate": s.journal.SelectedDate()}, err)
	s.emit(stream.JournalReset, "", s.journal.SelectedDate(), err)
}
