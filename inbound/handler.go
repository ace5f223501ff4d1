package inbound

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-sessions/core"
)

// SessionService is the surface of the lifecycle service the HTTP layer
// depends on.
type SessionService interface {
	GenerateCode(ctx context.Context, req core.GenerateCodeRequest) (core.PairingResult, error)
	ForceRepair(ctx context.Context, req core.GenerateCodeRequest) (core.PairingResult, error)
	Connect(ctx context.Context, req core.ConnectRequest) (core.ConnectResult, error)
	Disconnect(ctx context.Context, req core.DisconnectRequest) (core.DisconnectResult, error)
	Delete(ctx context.Context, req core.DeleteRequest) (core.DeleteResult, error)
	Status(ctx context.Context, number string) core.StatusResult
	ListSessions(ctx context.Context) ([]core.SessionSummary, error)
}

const maxRequestBody = 1 << 20

type Handler struct {
	Service SessionService
	Logger  glog.Logger
}

func NewHandler(service SessionService, logger glog.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  glog.Ensure(logger),
	}
}

// Routes wires the control surface onto a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate-code", h.handleGenerateCode)
	mux.HandleFunc("POST /connect", h.handleConnect)
	mux.HandleFunc("POST /force-repair", h.handleForceRepair)
	mux.HandleFunc("POST /disconnect", h.handleDisconnect)
	mux.HandleFunc("GET /status/{number}", h.handleStatus)
	mux.HandleFunc("DELETE /session/{number}", h.handleDelete)
	mux.HandleFunc("GET /sessions", h.handleListSessions)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Routes().ServeHTTP(w, r)
}

type numberPayload struct {
	Number string `json:"number"`
	Force  bool   `json:"force"`
}

type pairingEnvelope struct {
	Success       bool   `json:"success"`
	Number        string `json:"number"`
	PairCode      string `json:"pairCode,omitempty"`
	Message       string `json:"message"`
	IsForceRepair bool   `json:"isForceRepair,omitempty"`
}

type connectEnvelope struct {
	Success          bool   `json:"success"`
	AlreadyConnected bool   `json:"alreadyConnected,omitempty"`
	Number           string `json:"number,omitempty"`
	Message          string `json:"message,omitempty"`
}

type messageEnvelope struct {
	Success bool   `json:"success"`
	Number  string `json:"number"`
	Message string `json:"message"`
}

type statusEnvelope struct {
	Success   bool   `json:"success"`
	Connected bool   `json:"connected"`
	Number    string `json:"number"`
	Message   string `json:"message"`
}

type sessionEntry struct {
	Number    string    `json:"number"`
	SessionID string    `json:"sessionId"`
	Connected bool      `json:"connected"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type sessionListEnvelope struct {
	Success  bool           `json:"success"`
	Count    int            `json:"count"`
	Sessions []sessionEntry `json:"sessions"`
}

type failureEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *Handler) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeNumberPayload(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Service.GenerateCode(r.Context(), core.GenerateCodeRequest{Number: payload.Number})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pairingEnvelope{
		Success:  true,
		Number:   result.Number,
		PairCode: result.PairCode,
		Message:  result.Message,
	})
}

func (h *Handler) handleForceRepair(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeNumberPayload(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Service.ForceRepair(r.Context(), core.GenerateCodeRequest{Number: payload.Number})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pairingEnvelope{
		Success:       true,
		Number:        result.Number,
		PairCode:      result.PairCode,
		Message:       result.Message,
		IsForceRepair: result.IsForceRepair,
	})
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeNumberPayload(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Service.Connect(r.Context(), core.ConnectRequest{
		Number: payload.Number,
		Force:  payload.Force,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if result.AlreadyConnected {
		writeJSON(w, http.StatusOK, connectEnvelope{
			Success:          true,
			AlreadyConnected: true,
			Message:          result.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, connectEnvelope{
		Success: true,
		Number:  result.Number,
		Message: result.Message,
	})
}

func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeNumberPayload(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Service.Disconnect(r.Context(), core.DisconnectRequest{Number: payload.Number})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageEnvelope{
		Success: true,
		Number:  result.Number,
		Message: result.Message,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Delete(r.Context(), core.DeleteRequest{Number: r.PathValue("number")})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageEnvelope{
		Success: true,
		Number:  result.Number,
		Message: result.Message,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	result := h.Service.Status(r.Context(), r.PathValue("number"))
	writeJSON(w, http.StatusOK, statusEnvelope{
		Success:   true,
		Connected: result.Connected,
		Number:    result.Number,
		Message:   result.Message,
	})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Service.ListSessions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries := make([]sessionEntry, 0, len(summaries))
	for _, summary := range summaries {
		entries = append(entries, sessionEntry{
			Number:    summary.Number,
			SessionID: summary.SessionID,
			Connected: summary.Connected,
			CreatedAt: summary.CreatedAt,
			UpdatedAt: summary.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, sessionListEnvelope{
		Success:  true,
		Count:    len(entries),
		Sessions: entries,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func decodeNumberPayload(r *http.Request) (numberPayload, error) {
	var payload numberPayload
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return payload, inboundBadInput("inbound: read request body", nil)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return payload, inboundBadInput("inbound: request body is required", nil)
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, inboundBadInput("inbound: malformed request body", map[string]any{
			"parse_error": err.Error(),
		})
	}
	if strings.TrimSpace(payload.Number) == "" {
		return payload, inboundBadInput("inbound: number is required", nil)
	}
	return payload, nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger().Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, failureEnvelope{Success: false, Error: errorMessage(err)})
}

func (h *Handler) logger() glog.Logger {
	return glog.Ensure(h.Logger)
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && strings.TrimSpace(rich.Message) != "" {
		return rich.Message
	}
	message := err.Error()
	if message == "" {
		return "unknown error"
	}
	return message
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// Encode failures after WriteHeader have nowhere to go, ignore them.
	_ = json.NewEncoder(w).Encode(payload)
}

var _ http.Handler = (*Handler)(nil)
