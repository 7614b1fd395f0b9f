package agent

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mrtheegala/Outbound-GenVoice/internal/dialogue"
	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

const (
	generateTimeout = 20 * time.Second
	// maxAttempts bounds adapter retries within one turn.
	maxAttempts  = 3
	retryBackoff = 400 * time.Millisecond
	// failedTurnBudget is the number of consecutive turns allowed to fail
	// after retries before the call is force-terminated.
	failedTurnBudget = 2

	historyTailTurns = 24
	defaultMaxTurns  = 60
)

const apologyText = "I apologize, I'm having some technical difficulty on my end. Could you please repeat that?"

// segmentChunker accumulates streamed text segments and emits sentence-like
// chunks at '.', '!', '?' and newlines so synthesis can start before the
// full utterance is generated.
type segmentChunker struct {
	b strings.Builder
}

func (c *segmentChunker) push(segment string) []string {
	var chunks []string
	for _, r := range segment {
		switch r {
		case '.', '!', '?':
			c.b.WriteRune(r)
			if chunk := strings.TrimSpace(c.b.String()); chunk != "" {
				chunks = append(chunks, chunk)
			}
			c.b.Reset()
		case '\n', '\r':
			if chunk := strings.TrimSpace(c.b.String()); chunk != "" {
				chunks = append(chunks, chunk)
			}
			c.b.Reset()
		default:
			c.b.WriteRune(r)
		}
	}
	return chunks
}

func (c *segmentChunker) flush() string {
	tail := strings.TrimSpace(c.b.String())
	c.b.Reset()
	return tail
}

// stripMarkers removes control markers from text headed for synthesis or the
// transcript.
func stripMarkers(text string) string {
	text = strings.ReplaceAll(text, dialogue.EndOfCallMarker, "")
	text = strings.ReplaceAll(text, dialogue.AdvanceStageMarker, "")
	return strings.TrimSpace(text)
}

// Session orchestrates STT -> generation -> TTS for a single call. It is the
// only writer of the transcript and stage for its lifetime; the streaming
// adapters feed it through channels.
type Session struct {
	id          string
	facts       record.CallFacts
	transcriber Transcriber
	generator   Generator
	tts         TTS
	sink        PCM48kSink
	machine     *dialogue.StateMachine
	detector    *Detector
	transcript  *Transcript

	// onComplete receives the read-only session snapshot once terminal.
	onComplete func(record.CompletedCall)

	mu               sync.Mutex
	speaking         bool
	ttsCancel        context.CancelFunc
	bargeInRequested bool
	terminal         bool
	reason           string
	turnCount        int
	failedTurns      int

	startedAt  time.Time
	cancel     context.CancelFunc
	done       chan struct{}
	finishOnce sync.Once
}

// NewSession constructs a Session for one call.
func NewSession(id string, facts record.CallFacts, t Transcriber, g Generator, tts TTS, sink PCM48kSink, onComplete func(record.CompletedCall)) *Session {
	if sink == nil {
		sink = nopSink{}
	}
	machine := dialogue.NewStateMachine(dialogue.ScriptFor(facts.Purpose))
	if facts.InitialStage > 0 {
		machine.SkipTo(facts.InitialStage)
	}
	return &Session{
		id:          id,
		facts:       facts,
		transcriber: t,
		generator:   g,
		tts:         tts,
		sink:        sink,
		machine:     machine,
		detector:    NewDetector(defaultMaxTurns),
		transcript:  NewTranscript(),
		onComplete:  onComplete,
		done:        make(chan struct{}),
	}
}

// Start connects the transcriber and begins the call loop. It returns a stop
// function that cancels the session (treated as a remote hangup).
func (s *Session) Start(ctx context.Context) (func(), error) {
	if err := s.transcriber.Connect(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.startedAt = time.Now().UTC()

	// Interim hypotheses: keep the latest visible and barge in when the
	// counterparty starts talking over synthesis.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-s.transcriber.Partials():
				if !ok {
					return
				}
				if p == "" {
					continue
				}
				s.transcript.ObserveInterim(p)
				if s.IsSpeaking() && s.transcriber.RecentlyDetectedVoice(300*time.Millisecond) {
					s.BargeIn()
				}
			}
		}
	}()

	go s.run(ctx)

	stop := func() { s.finish(ReasonRemoteHangup) }
	return stop, nil
}

// run is the call loop: one finalized inbound utterance per iteration until
// terminal. All transcript and stage mutation happens here.
func (s *Session) run(ctx context.Context) {
	// Agent opens the call: outbound dialing means we speak first.
	s.runTurn(ctx, "")
	if s.isTerminal() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			s.finish(ReasonRemoteHangup)
			return
		case utterance, ok := <-s.transcriber.Finalize():
			if !ok {
				s.finish(ReasonRemoteHangup)
				return
			}
			heard := strings.TrimSpace(utterance)
			if heard == "" {
				continue
			}
			log.Printf("session %s heard(final): %s", s.id, heard)
			s.transcript.AppendFinal(record.SpeakerCounterparty, heard, s.StageIndex())

			// Require a short silence window before replying to avoid
			// talking over the counterparty.
			waitCtx, waitCancel := context.WithTimeout(ctx, 3*time.Second)
			for waitCtx.Err() == nil {
				if !s.transcriber.RecentlyDetectedVoice(500 * time.Millisecond) {
					break
				}
				time.Sleep(50 * time.Millisecond)
			}
			waitCancel()

			s.runTurn(ctx, heard)
			if s.isTerminal() {
				return
			}
		}
	}
}

// runTurn generates and speaks one agent utterance, records it, applies
// stage signals and checks for completion. heard is the latest finalized
// counterparty utterance ("" for the opening turn).
func (s *Session) runTurn(ctx context.Context, heard string) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	stage := s.machine.Current()
	s.mu.Unlock()
	req := GenerateRequest{
		Facts:   s.facts,
		Stage:   stage,
		History: s.transcript.Tail(historyTailTurns),
	}

	fullText, spokenText, err := s.generateAndSpeak(ctx, req)
	if err != nil {
		log.Printf("session %s turn failed after retries: %v", s.id, err)
		s.mu.Lock()
		s.failedTurns++
		exhausted := s.failedTurns > failedTurnBudget
		s.mu.Unlock()
		if exhausted {
			s.finish(ReasonTransportFailure)
			return
		}
		// Fallback utterance so the counterparty is not left hanging.
		_, _ = s.speakChunk(ctx, apologyText)
		spokenText = apologyText
		fullText = apologyText
	} else {
		s.mu.Lock()
		s.failedTurns = 0
		s.mu.Unlock()
	}

	if clean := stripMarkers(spokenText); clean != "" {
		s.transcript.AppendFinal(record.SpeakerAgent, clean, s.StageIndex())
	}
	s.mu.Lock()
	s.turnCount++
	turns := s.turnCount
	if strings.Contains(fullText, dialogue.AdvanceStageMarker) {
		s.machine.Advance(dialogue.SignalAdvance)
	} else if sig := s.machine.Observe(); sig != dialogue.SignalNone {
		s.machine.Advance(sig)
	}
	s.mu.Unlock()

	if terminal, reason := s.detector.IsTerminal(fullText, heard, turns); terminal {
		s.sink.FlushTail()
		s.finish(reason)
	}
}

// generateAndSpeak streams the generator output, forwarding sentence chunks
// to synthesis as they arrive. It retries a failed generation start with
// backoff up to maxAttempts. Returns the full generated text and the text
// actually spoken (possibly truncated by barge-in).
func (s *Session) generateAndSpeak(ctx context.Context, req GenerateRequest) (full string, spoken string, err error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", "", ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
		full, spoken, lastErr = s.streamOnce(ctx, req)
		if lastErr == nil || full != "" {
			// A mid-stream error after text was produced is not retried:
			// use what we have rather than repeating ourselves.
			return full, spoken, nil
		}
	}
	return "", "", lastErr
}

func (s *Session) streamOnce(ctx context.Context, req GenerateRequest) (string, string, error) {
	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	segCh, errCh := s.generator.Stream(genCtx, buildPrompt(req))

	s.mu.Lock()
	s.speaking = true
	s.bargeInRequested = false
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.speaking = false
		s.ttsCancel = nil
		s.mu.Unlock()
	}()

	var fullBuilder, spokenBuilder strings.Builder
	var chunker segmentChunker
	var streamErr error

	speak := func(chunk string) bool {
		clean := stripMarkers(chunk)
		if clean == "" {
			return true
		}
		spoke, err := s.speakChunk(ctx, clean)
		if err != nil {
			log.Printf("session %s tts error: %v", s.id, err)
		}
		if spoke {
			if spokenBuilder.Len() > 0 {
				spokenBuilder.WriteString(" ")
			}
			spokenBuilder.WriteString(clean)
		}
		return spoke
	}

	open := true
	for open {
		select {
		case <-ctx.Done():
			return fullBuilder.String(), spokenBuilder.String(), ctx.Err()
		case e, ok := <-errCh:
			if ok && e != nil {
				streamErr = e
			}
			if !ok {
				errCh = nil
			}
			if segCh == nil && errCh == nil {
				open = false
			}
		case seg, ok := <-segCh:
			if !ok {
				segCh = nil
				if errCh == nil {
					open = false
				}
				continue
			}
			fullBuilder.WriteString(seg)
			for _, chunk := range chunker.push(seg) {
				if barged := !speak(chunk); barged {
					// Stop forwarding chunks; keep draining the stream so
					// the full text (and its markers) is still captured.
					speak = func(string) bool { return false }
				}
			}
		}
	}
	if tail := chunker.flush(); tail != "" {
		speak(tail)
	}
	if !s.wasBarged() {
		s.sink.FlushTail()
	}
	return fullBuilder.String(), spokenBuilder.String(), streamErr
}

// speakChunk synthesizes one sentence chunk and writes its audio to the
// sink. Returns whether any audio was delivered before a barge-in.
func (s *Session) speakChunk(ctx context.Context, chunk string) (bool, error) {
	s.mu.Lock()
	if s.bargeInRequested {
		s.mu.Unlock()
		return false, nil
	}
	ttsCtx, cancel := context.WithCancel(ctx)
	s.ttsCancel = cancel
	s.mu.Unlock()
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
		pcmCh, errCh := s.tts.StreamPCM48k(ttsCtx, chunk)
		wrote := false
		openPCM, openErr := true, true
		lastErr = nil
		for openPCM || openErr {
			select {
			case b, ok := <-pcmCh:
				if !ok {
					openPCM = false
					continue
				}
				if len(b) == 0 {
					continue
				}
				s.mu.Lock()
				drop := s.bargeInRequested
				s.mu.Unlock()
				if !drop {
					s.sink.WritePCM(b)
					wrote = true
				}
			case e, ok := <-errCh:
				if ok && e != nil {
					lastErr = e
				}
				openErr = false
			case <-ttsCtx.Done():
				openPCM, openErr = false, false
			}
		}
		if s.wasBarged() {
			return wrote, nil
		}
		if lastErr == nil {
			return wrote, nil
		}
		if wrote {
			// Partial audio already played; retrying would repeat it.
			return true, lastErr
		}
	}
	return false, lastErr
}

func (s *Session) wasBarged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bargeInRequested
}

// finish marks the session terminal exactly once, releases adapter
// resources and hands the snapshot to the post-call pipeline. Every
// terminal path runs the pipeline, including hangups with partial data.
func (s *Session) finish(reason string) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.terminal = true
		s.reason = reason
		turns := s.turnCount
		s.mu.Unlock()

		_ = s.transcriber.Close()
		if s.cancel != nil {
			s.cancel()
		}
		log.Printf("session %s terminal: %s (%d turns)", s.id, reason, turns)

		completed := record.CompletedCall{
			ID:         s.id,
			Facts:      s.facts,
			StartedAt:  s.startedAt,
			EndedAt:    time.Now().UTC(),
			Reason:     reason,
			TurnCount:  turns,
			Transcript: s.transcript.Utterances(),
		}
		close(s.done)
		if s.onComplete != nil {
			go s.onComplete(completed)
		}
	})
}

// FeedPCM16KLE sends inbound call audio to the transcriber.
func (s *Session) FeedPCM16KLE(pcm []byte) {
	_ = s.transcriber.SendPCM16KLE(pcm)
}

// Hangup cancels the call externally (transport hangup signal).
func (s *Session) Hangup() { s.finish(ReasonRemoteHangup) }

// IsSpeaking reports whether synthesis is currently active.
func (s *Session) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// BargeIn cancels current synthesis and drops queued audio immediately.
func (s *Session) BargeIn() {
	s.mu.Lock()
	cancel := s.ttsCancel
	if s.speaking {
		s.bargeInRequested = true
	}
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.sink.Reset()
}

// ID returns the call identifier.
func (s *Session) ID() string { return s.id }

// StageName returns the name of the current stage (query surface).
func (s *Session) StageName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current().Name
}

// StageIndex returns the current stage index.
func (s *Session) StageIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Index()
}

// Terminal reports whether the call has ended and with what reason.
func (s *Session) Terminal() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal, s.reason
}

func (s *Session) isTerminal() bool {
	t, _ := s.Terminal()
	return t
}

// Done is closed when the session becomes terminal.
func (s *Session) Done() <-chan struct{} { return s.done }

// Transcript exposes the recorder for observability reads.
func (s *Session) Transcript() *Transcript { return s.transcript }
