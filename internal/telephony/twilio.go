package telephony

import (
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	// PublicHost is the externally reachable host for webhooks and the
	// media-stream websocket, e.g. "calls.example.com".
	PublicHost string
}

// Dialer places outbound calls and points their audio at our media-stream
// endpoint.
type Dialer struct {
	cfg    Config
	client *twilio.RestClient
}

func NewDialer(cfg Config) *Dialer {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Dialer{cfg: cfg, client: client}
}

// StreamTwiML renders the call instructions: connect the call's audio to the
// bidirectional media stream for callID.
func (d *Dialer) StreamTwiML(callID string) (string, error) {
	stream := &twiml.VoiceStream{
		Url: fmt.Sprintf("wss://%s/twilio/media/%s", d.cfg.PublicHost, callID),
	}
	connect := &twiml.VoiceConnect{
		InnerElements: []twiml.Element{stream},
	}
	doc, err := twiml.Voice([]twiml.Element{connect})
	if err != nil {
		return "", fmt.Errorf("render twiml: %w", err)
	}
	return doc, nil
}

// StartCall dials the payer's number. The returned SID identifies the call
// leg at the carrier; callID remains our identifier throughout.
func (d *Dialer) StartCall(toNumber, callID string) (string, error) {
	doc, err := d.StreamTwiML(callID)
	if err != nil {
		return "", err
	}
	params := &twilioApi.CreateCallParams{}
	params.SetTo(toNumber)
	params.SetFrom(d.cfg.FromNumber)
	params.SetTwiml(doc)
	params.SetStatusCallback(fmt.Sprintf("https://%s/twilio/status/%s", d.cfg.PublicHost, callID))
	params.SetStatusCallbackMethod("POST")
	params.SetStatusCallbackEvent([]string{"completed", "busy", "failed", "no-answer"})

	resp, err := d.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("create call: %w", err)
	}
	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	log.Printf("[telephony] dialed %s call=%s sid=%s", toNumber, callID, sid)
	return sid, nil
}
