package telephony

import (
	"encoding/base64"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// ActiveCall is the slice of the conversation session the media stream
// needs: inbound audio in, hangup signaling, and completion.
type ActiveCall interface {
	FeedPCM16KLE(pcm []byte)
	Hangup()
	Done() <-chan struct{}
}

// SessionStarter builds and starts the conversation session for callID once
// its media stream attaches, using the given writer as the audio sink. The
// returned session must already be running.
type SessionStarter func(callID string, sink *StreamWriter) (ActiveCall, error)

// MediaHandler terminates Twilio media-stream websockets. One connection
// carries one call: mu-law frames in, paced mu-law frames out.
type MediaHandler struct {
	start    SessionStarter
	upgrader websocket.Upgrader
}

func NewMediaHandler(start SessionStarter) *MediaHandler {
	return &MediaHandler{
		start: start,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Twilio's media host does not send an Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

type mediaEnvelope struct {
	Event string `json:"event"`
	Start *struct {
		StreamSid string `json:"streamSid"`
		CallSid   string `json:"callSid"`
	} `json:"start,omitempty"`
	Media *struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
}

// Handle runs the read loop for one media stream connection.
func (h *MediaHandler) Handle(c echo.Context) error {
	callID := c.Param("id")
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	var (
		call   ActiveCall
		writer *StreamWriter
	)
	defer func() {
		if writer != nil {
			writer.Close()
		}
		if call != nil {
			call.Hangup()
		}
	}()

	for {
		var msg mediaEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("[media] call=%s stream closed: %v", callID, err)
			return nil
		}
		switch msg.Event {
		case "connected":
			// Protocol preamble, nothing to do yet.
		case "start":
			if msg.Start == nil {
				continue
			}
			log.Printf("[media] call=%s stream started sid=%s", callID, msg.Start.StreamSid)
			writer = NewStreamWriter(msg.Start.StreamSid, send)
			call, err = h.start(callID, writer)
			if err != nil {
				log.Printf("[media] call=%s session start failed: %v", callID, err)
				return nil
			}
			// When the session ends first (agent-side completion), close the
			// socket so Twilio tears the call down.
			go func(done <-chan struct{}) {
				<-done
				writeMu.Lock()
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call complete"))
				writeMu.Unlock()
				_ = conn.Close()
			}(call.Done())
		case "media":
			if call == nil || msg.Media == nil {
				continue
			}
			payload, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
			if err != nil {
				continue
			}
			call.FeedPCM16KLE(DecodeMulawTo16k(payload))
		case "stop":
			log.Printf("[media] call=%s stream stopped", callID)
			return nil
		}
	}
}
