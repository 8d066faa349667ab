package main

// This file defines pluggable alert handlers for when the e-stop trips.

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TripEvent describes a latched e-stop together with the settings in force
// when it was reported.
type TripEvent struct {
	Time     time.Time
	Settings Configuration
}

// AlertHandler represents a mechanism that can send an alert when the e-stop
// trips.  Send runs in an ordinary goroutine, never in the edge path, so it
// may block on the network.  If an error is returned, the caller logs it and
// moves on to the next handler.
type AlertHandler interface {
	Name() string
	Send(event TripEvent, logger *EventLogger) error
}

// LogAlert records the trip in the event journal.  It is always installed.
type LogAlert struct{}

// Name returns the type name of the alert handler.
func (LogAlert) Name() string { return "log" }

// Send writes an alert to the event log.
func (LogAlert) Send(event TripEvent, logger *EventLogger) error {
	logger.Log("alert: e-stop tripped (alliance %s)", event.Settings.AllianceColor)
	return nil
}

// EmailAlert mails the trip to an operator through an SMTP relay.  Auth is
// attempted only when Username is set, so an open relay on the field network
// works without credentials.
type EmailAlert struct {
	SMTPServer string
	SMTPPort   int
	Username   string
	Password   string
	From       string
	To         string
	Subject    string
}

// Name returns the type name of the alert handler.
func (EmailAlert) Name() string { return "email" }

// Send mails a plaintext notice naming the alliance, the time and the arena
// address the device reports to.
func (e EmailAlert) Send(event TripEvent, logger *EventLogger) error {
	var auth smtp.Auth
	if e.Username != "" {
		auth = smtp.PlainAuth("", e.Username, e.Password, e.SMTPServer)
	}
	addr := net.JoinHostPort(e.SMTPServer, strconv.Itoa(e.SMTPPort))
	if err := smtp.SendMail(addr, auth, e.From, []string{e.To}, e.message(event)); err != nil {
		return fmt.Errorf("mail %s via %s: %w", e.To, addr, err)
	}
	logger.Log("alert: mailed %s", e.To)
	return nil
}

func (e EmailAlert) message(event TripEvent) []byte {
	subject := e.Subject
	if subject == "" {
		subject = fmt.Sprintf("%s alliance e-stop tripped", event.Settings.AllianceColor)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.From)
	fmt.Fprintf(&b, "To: %s\r\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", event.Time.Format(time.RFC1123Z))
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Alliance: %s\r\n", event.Settings.AllianceColor)
	fmt.Fprintf(&b, "Tripped at: %s\r\n", event.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Arena: %s\r\n", net.JoinHostPort(event.Settings.ArenaIP, event.Settings.ArenaPort))
	return []byte(b.String())
}

// ArenaAlert notifies the arena controller configured in the operator
// settings.  It opens a TCP connection to ArenaIP:ArenaPort and writes a
// single JSON line.
type ArenaAlert struct {
	Timeout time.Duration
}

// arenaMessage is the line sent to the arena controller.
type arenaMessage struct {
	Event    string `json:"event"`
	Alliance string `json:"alliance"`
	DeviceIP string `json:"device_ip,omitempty"`
	Time     string `json:"time"`
}

// Name returns the type name of the alert handler.
func (ArenaAlert) Name() string { return "arena" }

// Send dials the arena and writes the trip notification.
func (a ArenaAlert) Send(event TripEvent, logger *EventLogger) error {
	cfg := event.Settings
	if cfg.ArenaIP == "" || cfg.ArenaPort == "" {
		return fmt.Errorf("arena address not configured")
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(cfg.ArenaIP, cfg.ArenaPort), timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))

	msg := arenaMessage{
		Event:    "estop",
		Alliance: string(cfg.AllianceColor),
		Time:     event.Time.UTC().Format(time.RFC3339),
	}
	if !cfg.UseDHCP {
		msg.DeviceIP = cfg.DeviceIP
	}
	return json.NewEncoder(conn).Encode(msg)
}

// initAlertHandlers constructs the alert handlers selected by opts.  A
// LogAlert is always first so that trips are recorded even if every network
// alert fails.
func initAlertHandlers(opts AlertOptions) []AlertHandler {
	handlers := []AlertHandler{LogAlert{}}
	if opts.Arena {
		handlers = append(handlers, ArenaAlert{Timeout: opts.ArenaTimeout})
	}
	if strings.TrimSpace(opts.Email.To) != "" && opts.Email.SMTPServer != "" {
		handlers = append(handlers, EmailAlert{
			SMTPServer: opts.Email.SMTPServer,
			SMTPPort:   opts.Email.SMTPPort,
			Username:   opts.Email.Username,
			Password:   opts.Email.Password,
			From:       opts.Email.From,
			To:         opts.Email.To,
			Subject:    opts.Email.Subject,
		})
	}
	return handlers
}

// TripReporter does the follow-up work for a trip that must not happen in
// the edge path: logging, journaling and alerts.
type TripReporter struct {
	monitor  *EStopMonitor
	store    *ConfigStore
	handlers []AlertHandler
	logger   *zap.Logger
	events   *EventLogger
	now      func() time.Time
}

// NewTripReporter returns a reporter for monitor.
func NewTripReporter(monitor *EStopMonitor, store *ConfigStore, handlers []AlertHandler, logger *zap.Logger, events *EventLogger) *TripReporter {
	return &TripReporter{
		monitor:  monitor,
		store:    store,
		handlers: handlers,
		logger:   logger,
		events:   events,
		now:      time.Now,
	}
}

// Run waits for the monitor to trip and then reports it once.  It returns
// nil when ctx is cancelled first.
func (r *TripReporter) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-r.monitor.Tripped():
	}
	event := TripEvent{Time: r.now(), Settings: r.store.Snapshot()}
	r.logger.Error("E-STOP TRIGGERED", zap.String("alliance_color", string(event.Settings.AllianceColor)))
	r.events.Log("e-stop tripped")
	for _, h := range r.handlers {
		if err := h.Send(event, r.events); err != nil {
			r.logger.Warn("Alert handler failed", zap.String("handler", h.Name()), zap.Error(err))
			r.events.Log("alert handler %s error: %v", h.Name(), err)
		}
	}
	return nil
}
