package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"engcontrol/api/internal/auth"
	"engcontrol/api/internal/authpw"
	"engcontrol/api/internal/catalog"
	"engcontrol/api/internal/export"
	"engcontrol/api/internal/store"
	"engcontrol/api/internal/util"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ready(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/catalog" {
		writeJSON(w, http.StatusOK, catalogPayload())
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/register" {
		s.handleRegister(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		s.handleLogin(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userId":        session.UserID,
			"username":      session.Username,
			"userName":      session.UserName,
			"sector":        session.Sector,
			"isDeveloper":   session.IsDeveloper,
			"avatar":        session.Avatar,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(session))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		session := Session{}
		if token := bearerToken(r); token != "" {
			if parsed, err := s.service.SessionFromToken(r.Context(), token); err == nil {
				session = parsed
			}
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), session, body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	actor := session.Actor()

	if r.Method == http.MethodGet && r.URL.Path == "/api/state" {
		events, notifications, err := s.service.LoadAll(r.Context(), actor)
		if err != nil {
			writeError(w, http.StatusBadGateway, "LOAD_FAILED", "Could not load events and notifications", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"events":        eventPayloads(events),
			"notifications": notificationPayloads(notifications),
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/events" {
		events, err := s.service.Events(r.Context(), actor)
		if err != nil {
			writeError(w, http.StatusBadGateway, "LOAD_FAILED", "Could not load events", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": eventPayloads(events)})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/events" {
		var body EventInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		event, err := s.service.CreateEvent(r.Context(), actor, body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, eventPayload(event))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/events/selected" {
		event, ok := s.service.SelectedEvent(actor)
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"selected": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"selected": eventPayload(event)})
		return
	}

	if parts := splitPath(r.URL.Path); len(parts) >= 3 && parts[0] == "api" && parts[1] == "events" {
		eventID := parts[2]

		if len(parts) == 3 {
			switch r.Method {
			case http.MethodGet:
				event, err := s.service.eventForWrite(r.Context(), actor, eventID)
				if err != nil {
					status, code, message, details := mapError(err)
					writeError(w, status, code, message, details)
					return
				}
				writeJSON(w, http.StatusOK, eventPayload(event))
				return
			case http.MethodPut:
				var body EventInput
				if err := decodeBody(r, &body); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
					return
				}
				event, changed, err := s.service.UpdateEvent(r.Context(), actor, eventID, body)
				if err != nil {
					status, code, message, details := mapError(err)
					writeError(w, status, code, message, details)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{
					"event":         eventPayload(event),
					"changedFields": changed,
				})
				return
			case http.MethodDelete:
				var body struct {
					Confirm bool `json:"confirm"`
				}
				_ = decodeBody(r, &body)
				if !body.Confirm && r.URL.Query().Get("confirm") == "true" {
					body.Confirm = true
				}
				if err := s.service.DeleteEvent(r.Context(), actor, eventID, body.Confirm); err != nil {
					status, code, message, details := mapError(err)
					writeError(w, status, code, message, details)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"ok": true})
				return
			}
		}

		if len(parts) == 4 && parts[3] == "comments" && r.Method == http.MethodPost {
			var body struct {
				Text string `json:"text"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			comment, err := s.service.AddComment(r.Context(), actor, eventID, body.Text)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusCreated, commentPayload(comment))
			return
		}

		if len(parts) == 4 && parts[3] == "select" && r.Method == http.MethodPost {
			if err := s.service.SelectEvent(actor, eventID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/notifications" {
		notifications, err := s.service.Notifications(r.Context(), actor)
		if err != nil {
			writeError(w, http.StatusBadGateway, "LOAD_FAILED", "Could not load notifications", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"notifications": notificationPayloads(notifications)})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/notifications/read-all" {
		if err := s.service.MarkAllRead(r.Context(), actor); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/notifications/clear" {
		var body struct {
			Confirm bool `json:"confirm"`
		}
		_ = decodeBody(r, &body)
		if err := s.service.ClearNotifications(r.Context(), actor, body.Confirm); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/audit" {
		entries, err := s.service.AuditLog(r.Context(), actor)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": notificationPayloads(entries)})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/stats" {
		date := strings.TrimSpace(r.URL.Query().Get("date"))
		if date == "" {
			date = util.DayStamp(time.Now())
		}
		stats, err := s.service.Stats(r.Context(), actor, date)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		limit := 20
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
				return
			}
			limit = parsed
		}
		offset := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
				return
			}
			offset = parsed
		}
		payload, err := s.service.SearchEvents(r.Context(), actor, q, limit, offset)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/export/handover" {
		date := strings.TrimSpace(r.URL.Query().Get("date"))
		shift := strings.TrimSpace(r.URL.Query().Get("shift"))
		result, err := s.service.ExportHandover(r.Context(), actor, date, shift)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/users" {
		users, err := s.service.ListUsers(r.Context(), actor)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": userPayloads(users)})
		return
	}

	if parts := splitPath(r.URL.Path); len(parts) >= 3 && parts[0] == "api" && parts[1] == "users" {
		userID := parts[2]

		if len(parts) == 4 && parts[3] == "sector" && r.Method == http.MethodPut {
			var body struct {
				Sector string `json:"sector"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.UpdateUserSector(r.Context(), actor, userID, body.Sector); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}

		if len(parts) == 3 && r.Method == http.MethodDelete {
			var body struct {
				Confirm bool `json:"confirm"`
			}
			_ = decodeBody(r, &body)
			if !body.Confirm && r.URL.Query().Get("confirm") == "true" {
				body.Confirm = true
			}
			if err := s.service.DeleteUser(r.Context(), actor, userID, body.Confirm); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		FullName string `json:"fullName"`
		Sector   string `json:"sector"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.Register(r.Context(), authpw.RegisterRequest{
		Username: body.Username,
		Password: body.Password,
		FullName: body.FullName,
		Sector:   body.Sector,
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, sessionPayload(session))
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	if errors.Is(err, export.ErrNoEvents) {
		return http.StatusNotFound, "NO_EVENTS", "No events for the requested day", nil
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF rendering is unavailable", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

// ---- payload shaping ----

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"userId":       session.UserID,
		"username":     session.Username,
		"userName":     session.UserName,
		"sector":       session.Sector,
		"isDeveloper":  session.IsDeveloper,
		"avatar":       session.Avatar,
		"expiresAt":    session.ExpiresAt.Unix(),
	}
}

func eventPayload(e store.Event) map[string]any {
	comments := make([]map[string]any, 0, len(e.Comments))
	for _, c := range e.Comments {
		comments = append(comments, commentPayload(c))
	}
	return map[string]any{
		"id":               e.ID,
		"date":             e.Date,
		"shift":            e.Shift,
		"line":             e.Line,
		"category":         e.Category,
		"title":            e.Title,
		"description":      e.Description,
		"solution":         e.Solution,
		"impact":           e.Impact,
		"downtime":         e.Downtime,
		"releaseTime":      e.ReleaseTime,
		"equipmentSubtype": e.EquipmentSubtype,
		"photos":           e.Photos,
		"authorId":         e.AuthorID,
		"authorName":       e.AuthorName,
		"sector":           e.Sector,
		"createdAt":        e.CreatedAt,
		"lastEditedBy":     e.LastEditedBy,
		"lastEditedAt":     e.LastEditedAt,
		"comments":         comments,
	}
}

func eventPayloads(events []store.Event) []map[string]any {
	out := make([]map[string]any, 0, len(events))
	for _, e := range events {
		out = append(out, eventPayload(e))
	}
	return out
}

func commentPayload(c store.Comment) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"eventId":    c.EventID,
		"authorId":   c.AuthorID,
		"authorName": c.AuthorName,
		"text":       c.Text,
		"createdAt":  c.CreatedAt,
	}
}

func notificationPayload(n store.Notification) map[string]any {
	return map[string]any{
		"id":           n.ID,
		"title":        n.Title,
		"message":      n.Message,
		"createdAt":    n.CreatedAt,
		"isRead":       n.IsRead,
		"category":     n.Category,
		"targetUserId": n.TargetUserID,
		"audience":     n.Audience,
		"eventId":      n.EventID,
	}
}

func notificationPayloads(notifications []store.Notification) []map[string]any {
	out := make([]map[string]any, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationPayload(n))
	}
	return out
}

func userPayloads(users []store.User) []map[string]any {
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"id":          u.ID,
			"username":    u.Username,
			"name":        u.DisplayName,
			"sector":      u.Sector,
			"isDeveloper": u.IsDeveloper,
			"avatar":      u.Avatar,
			"createdAt":   u.CreatedAt.Unix(),
		})
	}
	return out
}

func catalogPayload() map[string]any {
	categories := make([]map[string]any, 0)
	for _, c := range catalog.Categories() {
		meta := c.Meta()
		categories = append(categories, map[string]any{
			"name":                     string(c),
			"description":              meta.Description,
			"tone":                     meta.Tone,
			"requiresEquipmentSubtype": c.RequiresEquipmentSubtype(),
		})
	}
	shifts := make([]string, 0)
	for _, sh := range catalog.Shifts() {
		shifts = append(shifts, string(sh))
	}
	return map[string]any{
		"categories": categories,
		"shifts":     shifts,
		"sectors":    catalog.Sectors(),
	}
}
