package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
	"whatsapp-ai-agent/internal/infra/logging"
	"whatsapp-ai-agent/internal/infra/metrics"
)

const (
	pathIncoming = "/api/whatsapp/webhook/incoming-message"
	pathSimulate = "/api/whatsapp/webhook/simulate"
	pathModels   = "/api/ai-models"

	maxBodyBytes = 1 << 20
)

// MessageProcessor is the orchestrator surface the webhook needs.
type MessageProcessor interface {
	ProcessIncomingMessage(ctx context.Context, meta *model.AccountMetadata, req model.MessageRequest) model.MessageResponse
	ProcessSimulatedMessage(ctx context.Context, meta *model.AccountMetadata, userMessage string, history []model.HistoryEntry) model.MessageResponse
}

// Pinger is a dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	JWTSecret      string
	JWTIssuer      string
	RequestTimeout time.Duration
	Checks         map[string]Pinger
}

// Server exposes the bridge webhook, health and metrics endpoints.
type Server struct {
	proc   MessageProcessor
	models repository.AIModelRepository
	opts   Options
	log    *zerolog.Logger
}

func NewServer(proc MessageProcessor, models repository.AIModelRepository, opts Options, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "WebhookServer").Logger()
	return &Server{proc: proc, models: models, opts: opts, log: &l}
}

// Router builds the chi router with the middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(s.log), RequestLog(s.log), Recover(s.log))
	if s.opts.RequestTimeout > 0 {
		r.Use(Timeout(s.opts.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BridgeAuth(s.opts.JWTSecret, s.opts.JWTIssuer, s.log))
		r.Post(pathIncoming, s.handleIncoming)
		r.Post(pathSimulate, s.handleSimulate)
		if s.models != nil {
			r.Get(pathModels, s.handleListModels)
		}
	})
	return r
}

// ---- payloads ----

type bridgeMessage struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	Body        string `json:"body"`
	Timestamp   int64  `json:"timestamp"`
	Type        string `json:"type"`
	IsGroup     bool   `json:"isGroup"`
	ContactName string `json:"contactName,omitempty"`
	PushName    string `json:"pushName,omitempty"`
}

type incomingPayload struct {
	SessionID   string         `json:"session_id"`
	SessionName string         `json:"session_name"`
	Message     *bridgeMessage `json:"message"`
}

func (p *incomingPayload) validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(p.SessionID) == "" {
		errs["session_id"] = "required"
	}
	if p.Message == nil {
		errs["message"] = "required"
		return errs
	}
	if strings.TrimSpace(p.Message.ID) == "" {
		errs["message.id"] = "required"
	}
	if strings.TrimSpace(p.Message.From) == "" {
		errs["message.from"] = "required"
	}
	return errs
}

type simulatePayload struct {
	SessionID string               `json:"session_id"`
	Message   string               `json:"message"`
	Context   []model.HistoryEntry `json:"context"`
}

type webhookReply struct {
	Success         bool    `json:"success"`
	Processed       bool    `json:"processed"`
	ResponseMessage *string `json:"response_message,omitempty"`
	ResponseTime    string  `json:"response_time,omitempty"`
	TypingDelayMs   int64   `json:"typing_delay_ms,omitempty"`
	SkipReason      string  `json:"skip_reason,omitempty"`
}

type errorReply struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ---- handlers ----

func (s *Server) handleIncoming(w http.ResponseWriter, r *http.Request) {
	var p incomingPayload
	if code, ok := s.decode(w, r, pathIncoming, &p); !ok {
		metrics.IncWebhookRequest(pathIncoming, code)
		return
	}
	if errs := p.validate(); len(errs) > 0 {
		s.reject(w, pathIncoming, errs)
		return
	}
	if !s.sessionAllowed(w, r, pathIncoming, p.SessionID) {
		return
	}

	ctx := logging.WithSessID(r.Context(), p.SessionID)
	m := p.Message
	res := s.proc.ProcessIncomingMessage(ctx,
		&model.AccountMetadata{SessionID: p.SessionID, SessionName: p.SessionName},
		model.MessageRequest{
			ID:          m.ID,
			From:        m.From,
			Body:        m.Body,
			Timestamp:   m.Timestamp,
			Type:        m.Type,
			IsGroup:     m.IsGroup,
			ContactName: m.ContactName,
			PushName:    m.PushName,
		})

	metrics.IncWebhookRequest(pathIncoming, http.StatusOK)
	writeJSON(w, http.StatusOK, toReply(res))
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var p simulatePayload
	if code, ok := s.decode(w, r, pathSimulate, &p); !ok {
		metrics.IncWebhookRequest(pathSimulate, code)
		return
	}
	errs := map[string]string{}
	if strings.TrimSpace(p.SessionID) == "" {
		errs["session_id"] = "required"
	}
	if strings.TrimSpace(p.Message) == "" {
		errs["message"] = "required"
	}
	for _, h := range p.Context {
		if h.Role != model.RoleUser && h.Role != model.RoleAssistant {
			errs["context"] = "role must be user or assistant"
			break
		}
	}
	if len(errs) > 0 {
		s.reject(w, pathSimulate, errs)
		return
	}
	if !s.sessionAllowed(w, r, pathSimulate, p.SessionID) {
		return
	}

	ctx := logging.WithSessID(r.Context(), p.SessionID)
	res := s.proc.ProcessSimulatedMessage(ctx, &model.AccountMetadata{SessionID: p.SessionID}, p.Message, p.Context)
	metrics.IncWebhookRequest(pathSimulate, http.StatusOK)
	writeJSON(w, http.StatusOK, toReply(res))
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	items, err := s.models.ListActive(r.Context(), repository.NoTX)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("list ai models failed")
		writeJSON(w, http.StatusInternalServerError, errorReply{Error: "failed to list models"})
		return
	}
	if items == nil {
		items = []*model.AIModel{}
	}
	writeJSON(w, http.StatusOK, struct {
		Items []*model.AIModel `json:"items"`
	}{Items: items})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	code := http.StatusOK
	for name, p := range s.opts.Checks {
		if err := p.Ping(ctx); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	overall := "ok"
	if code != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, code, struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}{Status: overall, Checks: status})
}

// ---- helpers ----

func (s *Server) decode(w http.ResponseWriter, r *http.Request, endpoint string, dst any) (int, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		code, msg := http.StatusBadRequest, "invalid json body"
		if errors.Is(err, io.EOF) {
			msg = "empty body"
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code, msg = http.StatusRequestEntityTooLarge, "body too large"
		}
		logging.With(r.Context(), s.log).Debug().Err(err).Str("endpoint", endpoint).Msg("bad webhook body")
		writeJSON(w, code, errorReply{Error: msg})
		return code, false
	}
	return http.StatusOK, true
}

func (s *Server) reject(w http.ResponseWriter, endpoint string, fields map[string]string) {
	metrics.IncWebhookRequest(endpoint, http.StatusUnprocessableEntity)
	writeJSON(w, http.StatusUnprocessableEntity, errorReply{Error: "validation failed", Fields: fields})
}

func (s *Server) sessionAllowed(w http.ResponseWriter, r *http.Request, endpoint, sessionID string) bool {
	if sessionAllowed(r.Context(), sessionID) {
		return true
	}
	logging.With(r.Context(), s.log).Warn().Str("session_id", sessionID).Str("endpoint", endpoint).Msg("token not scoped to session")
	metrics.IncWebhookRequest(endpoint, http.StatusForbidden)
	writeJSON(w, http.StatusForbidden, errorReply{Error: "session not allowed for token"})
	return false
}

func toReply(res model.MessageResponse) webhookReply {
	out := webhookReply{
		Success:    true,
		Processed:  res.Processed,
		SkipReason: string(res.SkipReason),
	}
	if res.HasAIResponse && res.AIResponse != nil {
		out.ResponseMessage = res.AIResponse
		out.ResponseTime = string(res.ResponseTime)
		out.TypingDelayMs = res.TypingDelay.Milliseconds()
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
