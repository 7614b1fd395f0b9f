package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrtheegala/Outbound-GenVoice/internal/config"
	"github.com/mrtheegala/Outbound-GenVoice/internal/extract"
	"github.com/mrtheegala/Outbound-GenVoice/internal/httpserver"
	"github.com/mrtheegala/Outbound-GenVoice/internal/llm"
	"github.com/mrtheegala/Outbound-GenVoice/internal/notify"
	"github.com/mrtheegala/Outbound-GenVoice/internal/postcall"
	"github.com/mrtheegala/Outbound-GenVoice/internal/store"
	"github.com/mrtheegala/Outbound-GenVoice/internal/telephony"
	"github.com/mrtheegala/Outbound-GenVoice/internal/validate"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	srv := httpserver.New(cfg, buildDialer(cfg), buildProcessor(cfg))

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}

func buildDialer(cfg config.Config) *telephony.Dialer {
	return telephony.NewDialer(telephony.Config{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
		PublicHost: cfg.PublicHost,
	})
}

func buildProcessor(cfg config.Config) *postcall.Processor {
	var completer extract.Completer
	if cfg.CerebrasKey != "" {
		completer = llm.NewCerebrasClient(cfg.CerebrasKey, cfg.CerebrasModelID)
	}

	rules := validate.DefaultRuleSet()
	if cfg.ValidationRulesPath != "" {
		f, err := os.Open(cfg.ValidationRulesPath)
		if err != nil {
			log.Printf("validation rules: %v, using defaults", err)
		} else {
			rules, err = validate.LoadRuleSet(f)
			f.Close()
			if err != nil {
				log.Printf("validation rules: %v, using defaults", err)
			}
		}
	}

	var recordStore postcall.Store
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceRoleKey != "" {
		s, err := store.NewSupabase(store.Config{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseServiceRoleKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			log.Printf("supabase store unavailable: %v, writing records to %s", err, cfg.RecordsDir)
			recordStore = store.NewDir(cfg.RecordsDir)
		} else {
			recordStore = s
		}
	} else {
		recordStore = store.NewDir(cfg.RecordsDir)
	}

	var notifier postcall.Notifier = notify.LogNotifier{}
	smtpCfg := notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		To:       cfg.NotifyEmail,
	}
	if smtpCfg.Enabled() {
		notifier = notify.NewEmail(smtpCfg)
	} else {
		log.Println("email notifications disabled - SMTP not configured")
	}

	return postcall.NewProcessor(extract.New(completer), validate.New(rules), recordStore, notifier)
}
