package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumenlearn/engage/internal/channel"
	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/pkg/httputil"
	"github.com/lumenlearn/engage/internal/pkg/logger"
	"github.com/lumenlearn/engage/internal/repository/postgres"
	"github.com/lumenlearn/engage/internal/worker"
)

// CallLogReader is the slice of the log repository the callback handlers use.
type CallLogReader interface {
	GetCallLog(ctx context.Context, id string) (*domain.CallLog, error)
	GetCallLogBySID(ctx context.Context, callSID string) (*domain.CallLog, error)
	UpdateStatusBySID(ctx context.Context, callSID string, status domain.CallStatus, durationSeconds int) error
	RecordResponseBySID(ctx context.Context, callSID, responseData string) error
}

// CallPlacer places a call directly, outside the event pipeline.
type CallPlacer interface {
	Place(ctx context.Context, userID, phoneNumber string, callType domain.CallType, message, contentID string) (channel.Result, error)
}

// JobRunner triggers a registered job on demand.
type JobRunner interface {
	RunNow(ctx context.Context, name string) error
	Names() []string
}

// Broadcaster fans a newly published content item out to interested users.
type Broadcaster interface {
	BroadcastNewContent(ctx context.Context, contentID string) error
}

// StatsProvider exposes dispatcher counters for the health endpoint.
type StatsProvider interface {
	Stats() worker.Stats
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	db            *sql.DB
	callLogs      CallLogReader
	content       channel.ContentStore
	calls         CallPlacer
	jobs          JobRunner
	broadcaster   Broadcaster
	dispatcher    StatsProvider
	publicBaseURL string
}

// NewHandlers wires the handler set.
func NewHandlers(db *sql.DB, callLogs CallLogReader, content channel.ContentStore, calls CallPlacer, jobs JobRunner, broadcaster Broadcaster, dispatcher StatsProvider, publicBaseURL string) *Handlers {
	return &Handlers{
		db:            db,
		callLogs:      callLogs,
		content:       content,
		calls:         calls,
		jobs:          jobs,
		broadcaster:   broadcaster,
		dispatcher:    dispatcher,
		publicBaseURL: publicBaseURL,
	}
}

// Health reports process liveness, database reachability, and dispatcher
// counters.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "ok"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status, dbStatus = "degraded", "unreachable"
		}
	}

	resp := map[string]any{
		"status":   status,
		"database": dbStatus,
	}
	if h.dispatcher != nil {
		resp["dispatcher"] = h.dispatcher.Stats()
	}
	httputil.OK(w, resp)
}

// providerStatuses maps the transport's callback status strings onto the
// call log lifecycle.
var providerStatuses = map[string]domain.CallStatus{
	"queued":      domain.CallQueued,
	"initiated":   domain.CallInitiated,
	"ringing":     domain.CallRinging,
	"in-progress": domain.CallAnswered,
	"answered":    domain.CallAnswered,
	"completed":   domain.CallCompleted,
	"failed":      domain.CallFailed,
	"no-answer":   domain.CallNoAnswer,
	"busy":        domain.CallBusy,
}

// CallStatus applies a telephony status callback to the call log.
func (h *Handlers) CallStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "invalid form body")
		return
	}
	sid := r.PostFormValue("CallSid")
	if sid == "" {
		httputil.BadRequest(w, "CallSid is required")
		return
	}
	status, ok := providerStatuses[strings.ToLower(r.PostFormValue("CallStatus"))]
	if !ok {
		httputil.BadRequest(w, "unknown CallStatus")
		return
	}
	duration, _ := strconv.Atoi(r.PostFormValue("CallDuration"))

	if err := h.callLogs.UpdateStatusBySID(r.Context(), sid, status, duration); err != nil {
		if isNotFound(err) {
			httputil.NotFound(w, "unknown call")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	logger.Info("call status updated", "call_sid", sid, "status", string(status))
	w.WriteHeader(http.StatusNoContent)
}

// CallResponse handles an in-call keypress: record it on the call log and
// answer with the next script document.
func (h *Handlers) CallResponse(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "invalid form body")
		return
	}
	sid := r.PostFormValue("CallSid")
	if sid == "" {
		httputil.BadRequest(w, "CallSid is required")
		return
	}

	log, err := h.callLogs.GetCallLogBySID(r.Context(), sid)
	if err != nil {
		if isNotFound(err) {
			httputil.NotFound(w, "unknown call")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	content := h.loadContent(r.Context(), log.ContentID)
	outcome := channel.HandleDigit(log, content, r.PostFormValue("Digits"), h.responseURL())

	if err := h.callLogs.RecordResponseBySID(r.Context(), sid, outcome.ResponseData); err != nil {
		logger.Error("recording call response failed", "call_sid", sid, "error", err.Error())
	}

	writeTwiML(w, outcome.Script)
}

// CallScript serves the script document the provider fetches when a call
// connects.
func (h *Handlers) CallScript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "callLogID")
	log, err := h.callLogs.GetCallLog(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			httputil.NotFound(w, "unknown call")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	content := h.loadContent(r.Context(), log.ContentID)
	writeTwiML(w, channel.Script(log, content, h.responseURL()))
}

type testCallRequest struct {
	UserID      string `json:"user_id"`
	PhoneNumber string `json:"phone_number"`
	CallType    string `json:"call_type"`
	Message     string `json:"message"`
	ContentID   string `json:"content_id"`
}

// TestCall places a call immediately, bypassing eligibility. It exists to
// verify transport configuration, not to simulate production behavior.
func (h *Handlers) TestCall(w http.ResponseWriter, r *http.Request) {
	var req testCallRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.PhoneNumber == "" {
		httputil.BadRequest(w, "user_id and phone_number are required")
		return
	}
	callType, ok := domain.ParseCallType(req.CallType)
	if !ok {
		callType = domain.CallReminder
	}

	res, err := h.calls.Place(r.Context(), req.UserID, req.PhoneNumber, callType, req.Message, req.ContentID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"success":  res.Success,
		"call_sid": res.CallSID,
		"error":    res.Error,
	})
}

// RunJob triggers a named job outside its schedule.
func (h *Handlers) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.RunNow(r.Context(), name); err != nil {
		if strings.Contains(err.Error(), "unknown job") {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "completed", "job": name})
}

type contentPublishedRequest struct {
	ContentID string `json:"content_id"`
}

// ContentPublished triggers the new-content broadcast for a published item.
func (h *Handlers) ContentPublished(w http.ResponseWriter, r *http.Request) {
	var req contentPublishedRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.ContentID == "" {
		httputil.BadRequest(w, "content_id is required")
		return
	}
	if err := h.broadcaster.BroadcastNewContent(r.Context(), req.ContentID); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "broadcast completed"})
}

func (h *Handlers) responseURL() string {
	return h.publicBaseURL + "/callbacks/call-response"
}

func (h *Handlers) loadContent(ctx context.Context, contentID string) *domain.ContentRef {
	if contentID == "" || h.content == nil {
		return nil
	}
	ref, err := h.content.GetContent(ctx, contentID)
	if err != nil {
		logger.Warn("content lookup for call script failed", "content_id", contentID, "error", err.Error())
		return nil
	}
	return ref
}

func writeTwiML(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}

func isNotFound(err error) bool {
	return errors.Is(err, postgres.ErrLogNotFound)
}
