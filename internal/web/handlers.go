package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ineffablesam/cf-ai-meetmate/internal/core"
	"github.com/ineffablesam/cf-ai-meetmate/internal/notify"
)

const maxAssetSize = 64 << 20 // 64MB

func (s *Server) handleHome(c *gin.Context) {
	c.String(http.StatusOK, "MeetMate Backend is running")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleState(c *gin.Context) {
	state := s.sessions.GetState()
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"state":          state,
		"elapsedSeconds": int(state.Elapsed().Seconds()),
	})
}

type createSessionRequest struct {
	Name    string `json:"name"`
	OwnerID string `json:"ownerId"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if req.Name == "" || req.OwnerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "meeting name and owner ID required",
		})
		return
	}

	sess, err := s.sessions.Create(req.Name, req.OwnerID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrValidation) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"sessionId": sess.ID,
	})
}

// handleUploadChunk transcribes a single audio chunk immediately, for
// clients that want realtime feedback while still recording.
func (s *Server) handleUploadChunk(c *gin.Context) {
	audio, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAssetSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	transcription := s.transcriber.Transcribe(c.Request.Context(), audio)

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"transcription": transcription,
	})
}

type completeSessionRequest struct {
	RawAudioAsset string `json:"rawAudioAsset"`
}

func (s *Server) handleCompleteSession(c *gin.Context) {
	id := c.Param("id")

	var req completeSessionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	result, err := s.sessions.Complete(c.Request.Context(), id, req.RawAudioAsset)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"sessionId":       result.SessionID,
		"transcript":      result.Transcript,
		"summaryJSON":     result.SummaryJSON,
		"summaryMarkdown": result.SummaryMarkdown,
		"timing":          result.Timing,
	})
}

func (s *Server) handleCancelSession(c *gin.Context) {
	id := c.Param("id")

	if err := s.sessions.Cancel(id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": id,
		"message":   "Recording cancelled successfully",
	})
}

func (s *Server) handleListSessions(c *gin.Context) {
	ownerID := c.Query("ownerId")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "ownerId parameter required",
		})
		return
	}

	sessions, err := s.reader.ListSessions(ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	views := make([]gin.H, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView(sess))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": views,
	})
}

func (s *Server) handleGetSession(c *gin.Context) {
	id := c.Param("id")

	sess, err := s.reader.GetSession(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "session not found",
		})
		return
	}

	history, err := s.reader.StatusHistory(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	events := make([]gin.H, 0, len(history))
	for _, event := range history {
		events = append(events, eventView(event))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"session":           sessionView(sess),
		"processingHistory": events,
	})
}

func (s *Server) handleEmailNotification(c *gin.Context) {
	var req notify.EmailRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if req.UserEmail == "" || req.MeetingName == "" || req.Summary == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "missing required fields",
		})
		return
	}

	if err := s.notifier.QueueEmail(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to send email notification",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email notification queued successfully",
	})
}

// sessionView adds the derived processingTimeSeconds field clients render.
func sessionView(sess *core.Session) gin.H {
	return gin.H{
		"id":                    sess.ID,
		"ownerId":               sess.OwnerID,
		"name":                  sess.Name,
		"status":                sess.Status,
		"transcript":            sess.Transcript,
		"summary":               sess.Summary,
		"createdAt":             sess.CreatedAt,
		"processingStartedAt":   sess.ProcessingStartedAt,
		"processingCompletedAt": sess.ProcessingCompletedAt,
		"processingDurationMs":  sess.ProcessingDurationMs,
		"processingTimeSeconds": sess.ProcessingTimeSeconds(),
	}
}

// eventView adds the derived durationSeconds field per ledger event.
func eventView(event *core.StatusEvent) gin.H {
	return gin.H{
		"id":              event.ID,
		"sessionId":       event.SessionID,
		"step":            event.Step,
		"status":          event.Status,
		"errorMessage":    event.ErrorMessage,
		"durationMs":      event.DurationMs,
		"timestamp":       event.Timestamp,
		"durationSeconds": event.DurationSeconds(),
	}
}
