package httpapi

import (
	"encoding/json"
	"errors"
	"expvar"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/feed"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/otp"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/queue"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/store"

	"github.com/google/uuid"
)

const (
	sessionTTL     = 8 * time.Hour
	statsFreshness = 5 * time.Second
)

type Handler struct {
	otp        *otp.Service
	aggregator *queue.Aggregator
	feed       *feed.Feed
	store      store.Store
}

func NewHandler(otpService *otp.Service, aggregator *queue.Aggregator, queueFeed *feed.Feed, store store.Store) *Handler {
	return &Handler{
		otp:        otpService,
		aggregator: aggregator,
		feed:       queueFeed,
		store:      store,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/otp/send", h.handleOTPSend)
	mux.HandleFunc("/api/otp/verify", h.handleOTPVerify)
	mux.HandleFunc("/api/queue", h.handleQueueList)
	mux.HandleFunc("/api/queue/stats", h.handleQueueStats)
	mux.HandleFunc("/api/queue/entry/", h.handleQueueEntry)
	mux.HandleFunc("/api/queue/checkin", h.handleCheckIn)
	mux.HandleFunc("/api/queue/call-next", h.handleCallNext)
	mux.HandleFunc("/api/queue/entries/", h.handleEntryAction)
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type otpSendRequest struct {
	Phone   string `json:"phone"`
	Purpose string `json:"purpose"`
}

type otpSendResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn int    `json:"expiresIn"`
}

func (h *Handler) handleOTPSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req otpSendRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.Phone = strings.TrimSpace(req.Phone)
	req.Purpose = strings.TrimSpace(req.Purpose)
	if req.Phone == "" || !validPurpose(req.Purpose) {
		writeError(w, http.StatusBadRequest, "invalid_request", "phone and purpose (login or register) are required")
		return
	}

	result, err := h.otp.RequestCode(r.Context(), req.Phone, req.Purpose)
	if err != nil {
		var limited *otp.RateLimitedError
		switch {
		case errors.Is(err, otp.ErrInvalidPhone):
			writeError(w, http.StatusBadRequest, "invalid_phone", "phone must be a valid mobile number")
		case errors.As(err, &limited):
			writeJSON(w, http.StatusTooManyRequests, rateLimitedResponse{
				Success:    false,
				Error:      responseError{Code: "rate_limited", Message: "too many verification requests"},
				RetryAfter: limited.RetryAfter,
			})
		case errors.Is(err, otp.ErrDeliveryFailed):
			writeError(w, http.StatusInternalServerError, "delivery_failed", "could not deliver verification code")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, otpSendResponse{
		Success:   true,
		Message:   "verification code sent",
		ExpiresIn: result.ExpiresIn,
	})
}

type otpVerifyRequest struct {
	Phone   string `json:"phone"`
	OTP     string `json:"otp"`
	Purpose string `json:"purpose"`
}

type sessionInfo struct {
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

type otpVerifyResponse struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	UserExists *bool        `json:"userExists,omitempty"`
	Session    *sessionInfo `json:"session,omitempty"`
}

func (h *Handler) handleOTPVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req otpVerifyRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.Phone = strings.TrimSpace(req.Phone)
	req.OTP = strings.TrimSpace(req.OTP)
	req.Purpose = strings.TrimSpace(req.Purpose)
	if req.Phone == "" || !validPurpose(req.Purpose) {
		writeError(w, http.StatusBadRequest, "invalid_request", "phone and purpose (login or register) are required")
		return
	}
	if !isValidCode(req.OTP) {
		writeError(w, http.StatusBadRequest, "invalid_request", "otp must be 6 digits")
		return
	}

	result, err := h.otp.VerifyCode(r.Context(), req.Phone, req.OTP, req.Purpose)
	if err != nil {
		switch {
		case errors.Is(err, otp.ErrNotFound):
			writeError(w, http.StatusBadRequest, "not_found", "no pending verification for this phone")
		case errors.Is(err, otp.ErrExpired):
			writeError(w, http.StatusBadRequest, "expired", "verification code expired")
		case errors.Is(err, otp.ErrMismatch):
			writeError(w, http.StatusBadRequest, "mismatch", "incorrect verification code")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return
	}

	resp := otpVerifyResponse{Success: true, Message: "phone verified"}
	if req.Purpose == otp.PurposeLogin {
		exists := result.UserExists
		resp.UserExists = &exists
		if exists {
			session, err := h.store.CreateSession(r.Context(), result.User.UserID, time.Now().UTC().Add(sessionTTL))
			if err != nil {
				// Code is already consumed; report the verification and
				// let the client fall back to password login.
				log.Printf("session create error: %v", err)
			} else {
				resp.Session = &sessionInfo{
					SessionID: session.SessionID,
					ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type queueListResponse struct {
	Success  bool           `json:"success"`
	Data     []models.Queue `json:"data"`
	Degraded bool           `json:"degraded,omitempty"`
}

func (h *Handler) handleQueueList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.aggregator.ListQueues(r.Context())
	writeJSON(w, http.StatusOK, queueListResponse{
		Success:  true,
		Data:     snapshot.Queues,
		Degraded: snapshot.Degraded,
	})
}

type queueStatsResponse struct {
	Success   bool        `json:"success"`
	Stats     queue.Stats `json:"stats"`
	FetchedAt string      `json:"fetched_at,omitempty"`
	Stale     bool        `json:"stale,omitempty"`
}

func (h *Handler) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	update := h.feed.Snapshot()
	resp := queueStatsResponse{
		Success: true,
		Stats:   update.Stats,
		Stale:   !h.feed.Fresh(statsFreshness),
	}
	if !update.FetchedAt.IsZero() {
		resp.FetchedAt = update.FetchedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

type entryResponse struct {
	models.QueueEntry
	Display queue.Display `json:"status_display"`
}

func (h *Handler) handleQueueEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	bookingID := strings.TrimPrefix(r.URL.Path, "/api/queue/entry/")
	if bookingID == "" || strings.Contains(bookingID, "/") || !isValidUUID(bookingID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "booking id must be a UUID")
		return
	}

	entry, err := h.aggregator.GetEntry(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, store.ErrEntryNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no queue entry for this booking")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, entryResponse{
		QueueEntry: entry,
		Display:    queue.StatusDisplay(entry.Status),
	})
}

type checkInRequest struct {
	RequestID string `json:"request_id"`
	SalonID   string `json:"salon_id"`
	BookingID string `json:"booking_id"`
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	var req checkInRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.SalonID = strings.TrimSpace(req.SalonID)
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.RequestID == "" || req.SalonID == "" || req.BookingID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "request_id, salon_id, and booking_id are required")
		return
	}
	if !isValidUUID(req.RequestID) || !isValidUUID(req.SalonID) || !isValidUUID(req.BookingID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "request_id, salon_id, and booking_id must be UUIDs")
		return
	}

	entry, err := h.store.CheckIn(r.Context(), store.CheckInInput{
		RequestID:   req.RequestID,
		SalonID:     req.SalonID,
		BookingID:   req.BookingID,
		CheckedInAt: time.Now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrBookingNotFound):
			writeError(w, http.StatusNotFound, "booking_not_found", "booking not found for this salon")
		case errors.Is(err, store.ErrQueueInactive):
			writeError(w, http.StatusConflict, "queue_inactive", "queue is closed for today")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

type callNextRequest struct {
	SalonID string `json:"salon_id"`
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	var req callNextRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.SalonID = strings.TrimSpace(req.SalonID)
	if req.SalonID == "" || !isValidUUID(req.SalonID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "salon_id must be a UUID")
		return
	}

	entry, err := h.store.CallNext(r.Context(), store.CallNextInput{
		SalonID:  req.SalonID,
		CalledAt: time.Now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoEntry):
			writeError(w, http.StatusConflict, "queue_empty", "no waiting entries")
		case errors.Is(err, store.ErrQueueNotFound):
			writeError(w, http.StatusNotFound, "queue_not_found", "no active queue for this salon today")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

type entryActionRequest struct {
	Action string `json:"action"`
}

func (h *Handler) handleEntryAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	trimmed := strings.TrimPrefix(r.URL.Path, "/api/queue/entries/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[1] != "action" || !isValidUUID(parts[0]) {
		writeError(w, http.StatusBadRequest, "invalid_request", "path must be /api/queue/entries/{id}/action")
		return
	}
	entryID := parts[0]

	var req entryActionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	switch req.Action {
	case "start", "complete", "no_show":
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "action must be start, complete, or no_show")
		return
	}

	entry, err := h.store.UpdateEntryStatus(r.Context(), store.EntryActionInput{
		EntryID:    entryID,
		Action:     req.Action,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEntryNotFound):
			writeError(w, http.StatusNotFound, "not_found", "queue entry not found")
		case errors.Is(err, store.ErrInvalidState):
			writeError(w, http.StatusConflict, "invalid_state", "entry cannot take this action from its current status")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool     `json:"success"`
	SessionID string   `json:"session_id"`
	ExpiresAt string   `json:"expires_at"`
	User      userInfo `json:"user"`
}

type userInfo struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Email  string `json:"email"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	user, err := h.store.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	session, err := h.store.CreateSession(r.Context(), user.UserID, time.Now().UTC().Add(sessionTTL))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		SessionID: session.SessionID,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
		User: userInfo{
			UserID: user.UserID,
			Name:   user.Name,
			Role:   user.Role,
			Email:  user.Email,
		},
	})
}

func validPurpose(purpose string) bool {
	return purpose == otp.PurposeLogin || purpose == otp.PurposeRegister
}

func isValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
