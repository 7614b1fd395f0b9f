package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

// SMTPConfig carries the mail relay settings. Notifications are disabled
// when the host is empty.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Enabled reports whether enough is configured to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Username != "" && c.Password != "" && c.To != ""
}

// EmailNotifier mails a call summary to billing staff after every call.
type EmailNotifier struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(cfg SMTPConfig) *EmailNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = "noreply@priorauth.local"
	}
	return &EmailNotifier{cfg: cfg, send: smtp.SendMail}
}

func (n *EmailNotifier) Notify(_ context.Context, rec record.OutcomeRecord) error {
	if !n.cfg.Enabled() {
		return fmt.Errorf("smtp not configured")
	}
	msg := buildMessage(n.cfg.From, n.cfg.To, Subject(rec), Body(rec))
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	if err := n.send(addr, auth, n.cfg.From, []string{n.cfg.To}, msg); err != nil {
		return fmt.Errorf("send notification mail: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// Subject builds the one-line summary used as the mail subject.
func Subject(rec record.OutcomeRecord) string {
	patient := rec.Draft.Patient.Name
	if patient == "" {
		patient = rec.CallID
	}
	switch rec.Draft.Authorization.Status {
	case record.StatusApproved:
		return fmt.Sprintf("Prior Auth APPROVED - %s - %s", patient, rec.Draft.Procedure.CPTCode)
	case record.StatusDenied:
		return fmt.Sprintf("Prior Auth DENIED - %s - Action Required", patient)
	case record.StatusPending:
		return fmt.Sprintf("Prior Auth PENDING - %s - Documentation Needed", patient)
	}
	return fmt.Sprintf("Prior Auth Update - %s - %s", patient, strings.ToUpper(string(rec.Draft.Authorization.Status)))
}

// Body renders the plain-text call summary.
func Body(rec record.OutcomeRecord) string {
	d := rec.Draft
	var b strings.Builder
	line := func(format string, args ...any) { fmt.Fprintf(&b, format+"\n", args...) }

	line("AUTHORIZATION CALL SUMMARY")
	line(strings.Repeat("=", 60))
	line("")
	line("Status: %s", strings.ToUpper(string(d.Authorization.Status)))
	line("Outcome: %s", rec.Category)
	line("Call Date: %s", rec.EndedAt.Format("2006-01-02 15:04:05"))
	line("")
	if d.Patient.Name != "" {
		line("PATIENT")
		line("Name: %s", d.Patient.Name)
		if d.Patient.MemberID != "" {
			line("Member ID: %s", d.Patient.MemberID)
		}
		line("")
	}
	if d.Procedure.CPTCode != "" {
		line("PROCEDURE")
		line("CPT Code: %s", d.Procedure.CPTCode)
		if d.Procedure.Description != "" {
			line("Description: %s", d.Procedure.Description)
		}
		line("")
	}
	if d.Authorization.AuthorizationNumber != "" {
		line("Authorization Number: %s", d.Authorization.AuthorizationNumber)
	}
	if d.Authorization.ReferenceNumber != "" {
		line("Reference Number: %s", d.Authorization.ReferenceNumber)
	}
	if d.Representative.Name != "" {
		line("Spoke With: %s", d.Representative.Name)
	}
	if len(rec.NextSteps) > 0 {
		line("")
		line("NEXT STEPS")
		for i, s := range rec.NextSteps {
			line("%d. %s", i+1, s)
		}
	}
	if len(rec.Validation.MissingFields) > 0 {
		line("")
		line("MISSING INFORMATION: %s", strings.Join(rec.Validation.MissingFields, ", "))
	}
	return b.String()
}

// LogNotifier is the fallback when mail is not configured: the summary goes
// to the process log instead of being dropped.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, rec record.OutcomeRecord) error {
	log.Printf("[notify] call=%s category=%s status=%s next_steps=%d",
		rec.CallID, rec.Category, rec.Draft.Authorization.Status, len(rec.NextSteps))
	return nil
}
