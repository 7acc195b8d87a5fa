package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/waterbill/internal/ledger"
)

// ForceReminders pushes the monthly reminder to every subscriber right away,
// opted out or not.
func (s *Server) ForceReminders(c *gin.Context) {
	res, err := s.sched.ForceReminders(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"sent":    res.Sent,
		"failed":  res.Failed,
		"skipped": res.Skipped,
	}})
}

// CreateBackup snapshots the ledger document on demand, outside the daily
// schedule.
func (s *Server) CreateBackup(c *gin.Context) {
	name, err := s.store.CreateBackup(ledger.BackupManual)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"backup": name}})
}
