package httpserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mrtheegala/Outbound-GenVoice/internal/agent"
	"github.com/mrtheegala/Outbound-GenVoice/internal/config"
	"github.com/mrtheegala/Outbound-GenVoice/internal/llm"
	"github.com/mrtheegala/Outbound-GenVoice/internal/postcall"
	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
	"github.com/mrtheegala/Outbound-GenVoice/internal/stt"
	"github.com/mrtheegala/Outbound-GenVoice/internal/telephony"
	"github.com/mrtheegala/Outbound-GenVoice/internal/tts"
)

// Dialer places the outbound call leg. Satisfied by *telephony.Dialer and
// faked in tests.
type Dialer interface {
	StartCall(toNumber, callID string) (string, error)
}

// Server bundles the HTTP surface: the call API, the Twilio webhooks and
// the media-stream websocket.
type Server struct {
	Router http.Handler

	cfg       config.Config
	dialer    Dialer
	manager   *agent.Manager
	processor *postcall.Processor

	mu sync.Mutex
	// pending holds dialed calls whose media stream has not attached yet;
	// outcomes keeps the finished record per call id.
	pending  map[string]record.CallFacts
	outcomes map[string]record.OutcomeRecord
}

// New constructs the HTTP server with routes.
func New(cfg config.Config, dialer Dialer, processor *postcall.Processor) *Server {
	s := &Server{
		cfg:       cfg,
		dialer:    dialer,
		manager:   agent.NewManager(),
		processor: processor,
		pending:   make(map[string]record.CallFacts),
		outcomes:  make(map[string]record.OutcomeRecord),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(telephony.WebhookAuth(func() string { return cfg.TwilioAuthToken }))

	e.GET("/healthz", s.handleHealth)
	e.POST("/calls", s.handleStartCall)
	e.GET("/calls/:id", s.handleGetCall)

	media := telephony.NewMediaHandler(s.startSession)
	e.GET("/twilio/media/:id", media.Handle)
	e.POST("/twilio/status/:id", s.handleCallStatus)

	s.Router = e
	return s
}

// startSession builds and starts the conversation session once the media
// stream for a dialed call attaches.
func (s *Server) startSession(callID string, sink *telephony.StreamWriter) (telephony.ActiveCall, error) {
	s.mu.Lock()
	facts, ok := s.pending[callID]
	if ok {
		delete(s.pending, callID)
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no pending call %s", callID)
	}

	transcriber := stt.NewRecognizer(s.cfg.AssemblyAIKey)
	generator := llm.NewCerebrasClient(s.cfg.CerebrasKey, s.cfg.CerebrasModelID)
	synth := tts.NewSynthesizer(s.cfg.DeepgramKey, s.cfg.DeepgramVoice)

	sess := agent.NewSession(callID, facts, transcriber, generator, synth, sink, func(completed record.CompletedCall) {
		rec := s.processor.Process(context.Background(), completed)
		s.mu.Lock()
		s.outcomes[completed.ID] = rec
		s.mu.Unlock()
		s.manager.Remove(completed.ID)
	})
	if err := s.manager.Register(sess); err != nil {
		return nil, err
	}
	if _, err := sess.Start(context.Background()); err != nil {
		s.manager.Remove(callID)
		return nil, err
	}
	log.Printf("[http] call=%s session started (%d active)", callID, s.manager.ActiveCount())
	return sess, nil
}
