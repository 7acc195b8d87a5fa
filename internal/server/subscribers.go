package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/waterbill/internal/ledger/domain"
)

// GetSubscriber returns the subscriber record, creating it with the default
// profile on first contact.
func (s *Server) GetSubscriber(c *gin.Context) {
	subscriberID := strings.TrimSpace(c.Param("id"))
	if subscriberID == "" {
		AbortWithError(c, newValidationError("id", "invalid_subscriber_id", "invalid subscriber id"))
		return
	}

	sub, err := s.store.GetSubscriber(subscriberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sub})
}

type updateSubscriberRequest struct {
	FirstName        *string `json:"first_name"`
	Username         *string `json:"username"`
	ReminderEnabled  *bool   `json:"reminder_enabled"`
	NotificationTime *string `json:"notification_time"`
}

// UpdateSubscriber applies a partial profile update. Toggling
// reminder_enabled is the opt-in/opt-out switch for scheduled reminders.
func (s *Server) UpdateSubscriber(c *gin.Context) {
	subscriberID := strings.TrimSpace(c.Param("id"))
	if subscriberID == "" {
		AbortWithError(c, newValidationError("id", "invalid_subscriber_id", "invalid subscriber id"))
		return
	}

	var req updateSubscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	sub, err := s.store.UpdateSubscriber(subscriberID, ledgerdomain.SubscriberUpdate{
		FirstName:        req.FirstName,
		Username:         req.Username,
		ReminderEnabled:  req.ReminderEnabled,
		NotificationTime: req.NotificationTime,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sub})
}

// ExportSubscriber returns the subscriber's full invoice history as one
// portable document.
func (s *Server) ExportSubscriber(c *gin.Context) {
	subscriberID := strings.TrimSpace(c.Param("id"))
	if subscriberID == "" {
		AbortWithError(c, newValidationError("id", "invalid_subscriber_id", "invalid subscriber id"))
		return
	}

	export := s.store.ExportSubscriber(subscriberID)
	c.JSON(http.StatusOK, gin.H{"data": export})
}
