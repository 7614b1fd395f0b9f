package httpserver

import (
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

type startCallRequest struct {
	PhoneNumber string           `json:"phone_number"`
	Facts       record.CallFacts `json:"facts"`
}

type startCallResponse struct {
	CallID  string `json:"call_id"`
	CallSID string `json:"call_sid,omitempty"`
	Status  string `json:"status"`
}

type callStateResponse struct {
	CallID            string          `json:"call_id"`
	State             string          `json:"state"`
	StageIndex        int             `json:"stage_index,omitempty"`
	StageName         string          `json:"stage_name,omitempty"`
	Category          record.Category `json:"category,omitempty"`
	TerminationReason string          `json:"termination_reason,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// handleStartCall resolves the call facts, dials out and parks the call
// until its media stream attaches.
func (s *Server) handleStartCall(c echo.Context) error {
	var req startCallRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "phone_number is required"})
	}

	callID := uuid.NewString()
	facts := record.ResolveFacts(record.CallFacts{}, req.Facts)

	s.mu.Lock()
	s.pending[callID] = facts
	s.mu.Unlock()

	sid, err := s.dialer.StartCall(req.PhoneNumber, callID)
	if err != nil {
		s.mu.Lock()
		delete(s.pending, callID)
		s.mu.Unlock()
		log.Printf("[http] call=%s dial failed: %v", callID, err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to place call"})
	}

	return c.JSON(http.StatusAccepted, startCallResponse{
		CallID:  callID,
		CallSID: sid,
		Status:  "dialing",
	})
}

// handleGetCall reports live progress for an active call, or the outcome
// for a finished one.
func (s *Server) handleGetCall(c echo.Context) error {
	id := c.Param("id")

	if sess, ok := s.manager.Get(id); ok {
		return c.JSON(http.StatusOK, callStateResponse{
			CallID:     id,
			State:      "active",
			StageIndex: sess.StageIndex(),
			StageName:  sess.StageName(),
		})
	}

	s.mu.Lock()
	rec, done := s.outcomes[id]
	_, pending := s.pending[id]
	s.mu.Unlock()

	if done {
		return c.JSON(http.StatusOK, callStateResponse{
			CallID:            id,
			State:             "completed",
			Category:          rec.Category,
			TerminationReason: rec.TerminationReason,
		})
	}
	if pending {
		return c.JSON(http.StatusOK, callStateResponse{CallID: id, State: "dialing"})
	}
	return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown call"})
}

// handleCallStatus consumes Twilio status callbacks. A terminal carrier
// status while the session is still live is a remote hangup.
func (s *Server) handleCallStatus(c echo.Context) error {
	id := c.Param("id")
	params, _ := c.Get("twilioParams").(map[string]string)
	status := params["CallStatus"]
	log.Printf("[http] call=%s carrier status: %s", id, status)

	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		if sess, ok := s.manager.Get(id); ok {
			sess.Hangup()
		}
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}
	return c.String(http.StatusOK, "OK")
}
