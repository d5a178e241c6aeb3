package session

import (
	"errors"
	"net/http"

	"macronata/internal/auth"
	"macronata/internal/wallet"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// BookWithWallet books a tutoring session paid from the wallet. No funds
// move at booking time; the cap is locked when the session starts.
func (h *Handler) BookWithWallet(c *gin.Context) {
	learnerID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountInCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking request"})
		return
	}

	sess, err := h.service.Book(c.Request.Context(), learnerID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrTutorNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Tutor not found"})
		case errors.Is(err, ErrSelfBooking), errors.Is(err, ErrPastBooking):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to book session"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"msg":     "Session booked successfully! The tutor has been notified.",
		"status":  sess.Status,
		"session": sess,
	})
}

// Control starts or ends a session. Start locks the cap in escrow; end
// meters the final cost and settles.
func (h *Handler) Control(c *gin.Context) {
	requesterID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and action (start|end) are required"})
		return
	}

	switch req.Action {
	case "start":
		sess, err := h.service.Start(c.Request.Context(), req.SessionID, requesterID)
		if err != nil {
			h.controlError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       sess.Status,
			"locked_funds": sess.MaxCostCapCents,
		})

	case "end":
		settlement, err := h.service.End(c.Request.Context(), req.SessionID, requesterID)
		if err != nil {
			h.controlError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       settlement.Session.Status,
			"duration_sec": settlement.DurationSec,
			"final_cost":   settlement.FinalCost,
			"refund":       settlement.Refund,
		})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be start or end"})
	}
}

func (h *Handler) controlError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, ErrNotLearner), errors.Is(err, ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "Session is not in a valid state for this action"})
	case errors.Is(err, wallet.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient funds to cover the session cap"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session"})
	}
}

// MySessions lists the caller's sessions as learner or tutor.
func (h *Handler) MySessions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	sessions, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sessions"})
		return
	}

	c.JSON(http.StatusOK, sessions)
}
