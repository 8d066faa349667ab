package main

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//go:embed web/*.html
var pageFiles embed.FS

var pages = template.Must(template.ParseFS(pageFiles, "web/*.html"))

// Response is a complete HTTP response.  The connection is always closed
// after it is written.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// WriteTo serializes the response as HTTP/1.1.
func (r Response) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.Status, http.StatusText(r.Status))
	fmt.Fprintf(&buf, "Content-Type: %s\r\n", r.ContentType)
	fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(r.Body))
	buf.WriteString("Connection: close\r\n\r\n")
	buf.Write(r.Body)
	return buf.WriteTo(w)
}

// ConfigService renders the settings pages.  It holds no per-request state;
// everything it shows comes from the ConfigStore and the EStopMonitor.
type ConfigService struct {
	store   *ConfigStore
	monitor *EStopMonitor
	logger  *zap.Logger
	events  *EventLogger
}

// NewConfigService wires the service to its collaborators.  events may be nil.
func NewConfigService(store *ConfigStore, monitor *EStopMonitor, logger *zap.Logger, events *EventLogger) *ConfigService {
	return &ConfigService{store: store, monitor: monitor, logger: logger, events: events}
}

// Handle routes a parsed request.  Paths match exactly; only /setConfig
// looks at the method.
func (s *ConfigService) Handle(req Request) Response {
	switch {
	case req.Path == "/":
		return s.handleHome()
	case req.Path == "/setup":
		return s.handleSetup()
	case req.Path == "/setConfig" && req.Method == "POST" && req.Body != nil:
		return s.handleSetConfig(req.Body)
	default:
		return s.handleNotFound()
	}
}

func (s *ConfigService) handleHome() Response {
	return s.render(http.StatusOK, "home", struct{ State EStopState }{s.monitor.State()})
}

// handleSetup renders the settings form pre-filled from a single snapshot so
// the form never mixes values from two updates.
func (s *ConfigService) handleSetup() Response {
	cfg := s.store.Snapshot()
	return s.render(http.StatusOK, "setup", struct {
		Configuration
		Colors []AllianceColor
	}{cfg, []AllianceColor{AllianceRed, AllianceBlue, AllianceField}})
}

// handleSetConfig applies the submitted form.  Empty values leave a field
// alone; the dhcp checkbox is on when its key is present at all.
func (s *ConfigService) handleSetConfig(body []byte) Response {
	changes := formChanges(body)
	cfg, err := s.store.Update(changes)

	var view struct {
		SaveFailed bool
		Rejected   []*ValidationError
	}
	for _, e := range multierr.Errors(err) {
		var verr *ValidationError
		var perr *PersistenceError
		switch {
		case errors.As(e, &verr):
			view.Rejected = append(view.Rejected, verr)
			s.logger.Warn("Rejected settings field", zap.String("field", verr.Field), zap.String("value", verr.Value))
		case errors.As(e, &perr):
			view.SaveFailed = true
			s.logger.Warn("Failed to save settings", zap.Error(perr))
			s.events.Log("settings save failed: %v", perr)
		}
	}
	s.logger.Info("Settings updated",
		zap.String("alliance_color", string(cfg.AllianceColor)),
		zap.String("device_ip", cfg.DeviceIP),
		zap.String("arena_ip", cfg.ArenaIP),
		zap.String("arena_port", cfg.ArenaPort),
		zap.Bool("use_dhcp", cfg.UseDHCP),
	)
	s.events.Log("settings updated: color=%s ip=%s arena=%s:%s dhcp=%t",
		cfg.AllianceColor, cfg.DeviceIP, cfg.ArenaIP, cfg.ArenaPort, cfg.UseDHCP)
	return s.render(http.StatusOK, "updated", view)
}

func (s *ConfigService) handleNotFound() Response {
	return s.render(http.StatusNotFound, "notfound", nil)
}

// formChanges turns a /setConfig body into a change set.  Only non-empty
// values are applied; UseDHCP is always set.
func formChanges(body []byte) ConfigChanges {
	var changes ConfigChanges
	nonEmpty := func(key string) *string {
		if v, ok := DecodeFormValue(body, key); ok && v != "" {
			return &v
		}
		return nil
	}
	changes.AllianceColor = nonEmpty("color")
	changes.DeviceIP = nonEmpty("ip")
	changes.ArenaIP = nonEmpty("arenaIP")
	changes.ArenaPort = nonEmpty("arenaPort")
	dhcp := HasFormKey(body, "dhcp")
	changes.UseDHCP = &dhcp
	return changes
}

func (s *ConfigService) render(status int, page string, data any) Response {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, page, data); err != nil {
		s.logger.Error("Failed to render page", zap.String("page", page), zap.Error(err))
		return Response{
			Status:      http.StatusInternalServerError,
			ContentType: "text/html",
			Body:        []byte("<html><body><h1>500 Internal Server Error</h1></body></html>"),
		}
	}
	return Response{Status: status, ContentType: "text/html", Body: buf.Bytes()}
}
