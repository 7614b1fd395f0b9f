package stt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gorilla/websocket"
)

const streamEndpoint = "wss://streaming.assemblyai.com/v3/ws"

// silenceThreshold is the inactivity window required before an utterance is
// considered complete. Conservative, so the counterparty is not cut off
// mid-sentence.
const silenceThreshold = 700 * time.Millisecond

// continuationExtension is added to the silence threshold when the last word
// suggests the speaker will keep going ("and", "if", "to", ...).
const continuationExtension = 1200 * time.Millisecond

// stabilizationGrace absorbs late transcript updates from the recognizer
// after the silence threshold has been crossed.
const stabilizationGrace = 250 * time.Millisecond

// voiceRMS is the PCM energy above which a chunk counts as speech.
const voiceRMS = 250.0

// Recognizer streams 16 kHz PCM to AssemblyAI and turns the rolling
// transcript into finalized utterances. It satisfies the conversation
// engine's Transcriber contract: Partials for barge-in, Finalize for turns.
type Recognizer struct {
	apiKey string

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool

	partials  chan string
	finals    chan string
	audioData chan []byte
	stopCh    chan struct{}

	accMu        sync.Mutex
	rolling      string // latest full transcript from the recognizer
	committed    string // portion already delivered downstream
	lastTextAt   time.Time
	lastVoiceAt  time.Time
	silenceTimer *time.Timer
}

func NewRecognizer(apiKey string) *Recognizer {
	return &Recognizer{
		apiKey:    apiKey,
		partials:  make(chan string, 100),
		finals:    make(chan string, 10),
		audioData: make(chan []byte, 1000),
		stopCh:    make(chan struct{}),
	}
}

// Partials exposes raw rolling transcript fragments, used for barge-in.
func (r *Recognizer) Partials() <-chan string { return r.partials }

// Finalize emits one element per completed counterparty utterance.
func (r *Recognizer) Finalize() <-chan string { return r.finals }

// Connect opens the streaming websocket. Safe to call once per call session.
func (r *Recognizer) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connected {
		return nil
	}
	if r.apiKey == "" {
		return fmt.Errorf("assemblyai api key is empty")
	}

	params := url.Values{}
	params.Set("sample_rate", "16000")
	params.Set("format_turns", "false")
	params.Set("encoding", "pcm_s16le")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(streamEndpoint+"?"+params.Encode(), map[string][]string{
		"Authorization": {r.apiKey},
	})
	if err != nil {
		if resp != nil {
			log.Printf("[stt] connect failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("connect to assemblyai: %w", err)
	}

	r.conn = conn
	r.connected = true
	now := time.Now()
	r.accMu.Lock()
	r.lastTextAt = now
	r.lastVoiceAt = now
	r.accMu.Unlock()

	go r.readLoop()
	go r.writeLoop()
	log.Printf("[stt] assemblyai stream connected")
	return nil
}

// SendPCM16KLE queues 16-bit little-endian mono PCM at 16 kHz. Drops under
// backpressure rather than stalling the media path.
func (r *Recognizer) SendPCM16KLE(pcm []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.connected {
		return fmt.Errorf("recognizer not connected")
	}
	r.observeVoiceEnergy(pcm)
	select {
	case r.audioData <- pcm:
	default:
		log.Printf("[stt] audio buffer full, dropping packet")
	}
	return nil
}

// RecentlyDetectedVoice reports whether speech energy was heard within the
// window. This gates barge-in so recognizer echo alone cannot trigger it.
func (r *Recognizer) RecentlyDetectedVoice(window time.Duration) bool {
	r.accMu.Lock()
	last := r.lastVoiceAt
	r.accMu.Unlock()
	return time.Since(last) <= window
}

// Close terminates the stream and flushes any uncommitted tail utterance.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return nil
	}
	close(r.stopCh)
	r.accMu.Lock()
	if r.silenceTimer != nil {
		r.silenceTimer.Stop()
		r.silenceTimer = nil
	}
	r.accMu.Unlock()
	if r.conn != nil {
		_ = r.conn.WriteJSON(map[string]string{"type": "Terminate"})
		_ = r.conn.Close()
	}
	r.connected = false
	r.conn = nil
	r.flushPendingTail()
	// The channels stay open: the read loop or a late silence timer may
	// still be mid-send, and consumers terminate on the session context,
	// not on channel closure.
	return nil
}

// observeVoiceEnergy updates lastVoiceAt when the chunk's RMS crosses the
// speech threshold. Sparse sampling keeps it cheap on large chunks.
func (r *Recognizer) observeVoiceEnergy(pcm []byte) {
	const minSamples = 160 // 10ms at 16kHz
	if len(pcm) < minSamples*2 {
		return
	}
	step := 2
	if len(pcm) > 3200 {
		step = 4
	}
	var sumSquares float64
	count := 0
	for i := 0; i+1 < len(pcm); i += 2 * step {
		v := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		sumSquares += float64(v) * float64(v)
		count++
	}
	if count == 0 {
		return
	}
	if math.Sqrt(sumSquares/float64(count)) >= voiceRMS {
		r.accMu.Lock()
		r.lastVoiceAt = time.Now()
		r.accMu.Unlock()
	}
}

type turnMessage struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (r *Recognizer) readLoop() {
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}
		r.mu.RLock()
		conn := r.conn
		r.mu.RUnlock()
		if conn == nil {
			return
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-r.stopCh:
			default:
				log.Printf("[stt] read: %v", err)
			}
			return
		}
		r.handleMessage(message)
	}
}

func (r *Recognizer) handleMessage(message []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		log.Printf("[stt] unmarshal: %v", err)
		return
	}
	switch envelope.Type {
	case "Begin":
		log.Printf("[stt] recognizer session began")
	case "Turn":
		var msg turnMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Transcript == "" {
			return
		}
		select {
		case r.partials <- msg.Transcript:
		default:
		}
		r.accMu.Lock()
		r.rolling = msg.Transcript
		r.lastTextAt = time.Now()
		r.armSilenceTimerLocked(silenceThreshold)
		r.accMu.Unlock()
	case "Termination":
		r.flushPendingTail()
	case "Error":
		var msg errorMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			log.Printf("[stt] recognizer error: %s", msg.Error)
		}
	}
}

func (r *Recognizer) armSilenceTimerLocked(d time.Duration) {
	if r.silenceTimer == nil {
		r.silenceTimer = time.AfterFunc(d, r.finalizeAfterSilence)
		return
	}
	r.silenceTimer.Stop()
	r.silenceTimer.Reset(d)
}

// finalizeAfterSilence fires once the silence window elapses and commits the
// uncommitted transcript tail as one utterance. It re-arms itself while text
// or voice activity is still fresh.
func (r *Recognizer) finalizeAfterSilence() {
	select {
	case <-r.stopCh:
		return
	default:
	}

	r.accMu.Lock()
	now := time.Now()
	threshold := silenceThreshold
	if continuationLikely(r.rolling) {
		threshold += continuationExtension
	}
	sinceText := now.Sub(r.lastTextAt)
	sinceVoice := now.Sub(r.lastVoiceAt)
	if sinceText < threshold || sinceVoice < threshold {
		wait := threshold
		if rem := threshold - sinceText; sinceText < threshold && rem < wait {
			wait = rem
		}
		if rem := threshold - sinceVoice; sinceVoice < threshold && rem < wait {
			wait = rem
		}
		if wait < 10*time.Millisecond {
			wait = 10 * time.Millisecond
		}
		r.armSilenceTimerLocked(wait)
		r.accMu.Unlock()
		return
	}
	textAt := r.lastTextAt
	r.accMu.Unlock()

	// Late recognizer updates can still land; give them a beat.
	time.Sleep(stabilizationGrace)

	r.accMu.Lock()
	if r.lastTextAt.After(textAt) {
		r.armSilenceTimerLocked(silenceThreshold)
		r.accMu.Unlock()
		return
	}
	delta := r.commitTailLocked()
	r.accMu.Unlock()

	if delta == "" {
		return
	}
	select {
	case <-r.stopCh:
	case r.finals <- delta:
	}
}

// commitTailLocked advances committed to the full rolling transcript and
// returns the newly finalized portion. Caller holds accMu.
func (r *Recognizer) commitTailLocked() string {
	delta := strings.TrimSpace(strings.TrimPrefix(r.rolling, r.committed))
	if delta == "" && r.committed != "" {
		if idx := strings.LastIndex(r.rolling, r.committed); idx >= 0 {
			delta = strings.TrimSpace(r.rolling[idx+len(r.committed):])
		}
	}
	r.committed = r.rolling
	return delta
}

func (r *Recognizer) flushPendingTail() {
	r.accMu.Lock()
	delta := r.commitTailLocked()
	r.accMu.Unlock()
	if delta == "" {
		return
	}
	select {
	case r.finals <- delta:
	case <-time.After(200 * time.Millisecond):
		log.Printf("[stt] flush: timed out delivering final utterance")
	}
}

func (r *Recognizer) writeLoop() {
	for {
		select {
		case <-r.stopCh:
			return
		case pcm, ok := <-r.audioData:
			if !ok {
				return
			}
			r.mu.RLock()
			conn := r.conn
			r.mu.RUnlock()
			if conn == nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
				log.Printf("[stt] send audio: %v", err)
				return
			}
		}
	}
}

// continuationLikely reports whether the last word of the transcript implies
// the speaker has more to say, warranting a longer silence window.
func continuationLikely(text string) bool {
	w := lastWord(text)
	if w == "" {
		return false
	}
	_, ok := continuationWords[w]
	return ok
}

func lastWord(text string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(text), func(r rune) bool { return !unicode.IsLetter(r) })
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[len(fields)-1])
}

var continuationWords = map[string]struct{}{
	"and": {}, "or": {}, "but": {}, "nor": {}, "yet": {}, "so": {},
	"if": {}, "when": {}, "while": {}, "though": {}, "although": {},
	"because": {}, "since": {}, "unless": {}, "until": {}, "whereas": {},
	"also": {}, "plus": {}, "um": {}, "uh": {}, "like": {},
	"about": {}, "with": {}, "to": {}, "of": {}, "for": {}, "on": {}, "in": {}, "at": {},
}
