package app

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"corkboard/internal/auth"
)

// maxUploadBytes caps attachment uploads at 32 MiB.
const maxUploadBytes = 32 << 20

type HTTPServer struct {
	service    *Service
	socket     http.Handler
	corsOrigin string
}

// NewHTTPServer wires the REST surface. socket handles GET /api/socket
// and runs its own handshake auth; it may be nil in tests that never
// touch the socket route.
func NewHTTPServer(service *Service, socket http.Handler, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, socket: socket, corsOrigin: corsOrigin}
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
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":            true,
			"droppedEvents": s.service.DroppedEvents(),
		})
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
		if err := s.service.Ping(ctx); err != nil {
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

	if r.URL.Path == "/api/socket" {
		if s.socket == nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		s.socket.ServeHTTP(w, r)
		return
	}

	// Auth routes, no session required.
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleSignUp(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleSignIn(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/refresh" {
		s.handleRefresh(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		s.service.Logout(r.Context(), body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		sess, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userId":        sess.UserID,
			"userName":      sess.UserName,
			"email":         sess.Email,
		})
		return
	}

	// Everything below requires a session.
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}
	sess, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	origin := strings.TrimSpace(r.Header.Get("X-Socket-ID"))

	switch parts[1] {
	case "auth":
		if r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "password" {
			s.handleChangePassword(w, r, sess)
			return
		}
	case "boards":
		s.handleBoards(w, r, sess, parts[2:], origin)
		return
	case "columns":
		s.handleColumns(w, r, sess, parts[2:], origin)
		return
	case "swimlanes":
		s.handleSwimlanes(w, r, sess, parts[2:], origin)
		return
	case "cards":
		s.handleCards(w, r, sess, parts[2:], origin)
		return
	case "comments":
		s.handleComments(w, r, sess, parts[2:], origin)
		return
	case "labels":
		s.handleLabels(w, r, sess, parts[2:], origin)
		return
	case "attachments":
		s.handleAttachments(w, r, sess, parts[2:], origin)
		return
	case "notifications":
		s.handleNotifications(w, r, sess, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// ── Auth handlers ──

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess, err := s.service.SignUp(r.Context(), body.Email, body.Password, body.DisplayName)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(sess))
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (s *HTTPServer) handleChangePassword(w http.ResponseWriter, r *http.Request, sess Session) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.ChangePassword(r.Context(), sess, body.CurrentPassword, body.NewPassword); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func sessionResponse(sess Session) map[string]any {
	return map[string]any{
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
		"userId":       sess.UserID,
		"userName":     sess.UserName,
		"email":        sess.Email,
		"expiresAt":    sess.ExpiresAt.Unix(),
	}
}

// ── Boards ──

func (s *HTTPServer) handleBoards(w http.ResponseWriter, r *http.Request, sess Session, parts []string, origin string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		boards, err := s.service.ListBoards(r.Context(), sess)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"boards": boards})

	case len(parts) == 0 && r.Method == http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		board, err := s.service.CreateBoard(r.Context(), sess, body.Name)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, board)

	case len(parts) == 1 && r.Method == http.MethodGet:
		snapshot, err := s.service.GetBoardSnapshot(r.Context(), sess, parts[0])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)

	case len(parts) == 2 && parts[1] == "members" && r.Method == http.MethodPost:
		var body struct {
			Email string `json:"email"`
			Level string `json:"level"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		membership, err := s.service.AddMember(r.Context(), sess, parts[0], body.Email, body.Level)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, membership)

	case len(parts) == 2 && parts[1] == "columns" && r.Method == http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		column, err := s.service.CreateColumn(r.Context(), sess, parts[0], body.Name, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, column)

	case len(parts) == 2 && parts[1] == "swimlanes" && r.Method == http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		lane, err := s.service.CreateSwimlane(r.Context(), sess, parts[0], body.Name, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, lane)

	case len(parts) == 2 && parts[1] == "cards" && r.Method == http.MethodPost:
		var body struct {
			ColumnID    string `json:"columnId"`
			SwimlaneID  string `json:"swimlaneId"`
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, err := s.service.CreateCard(r.Context(), sess, parts[0], body.ColumnID, body.SwimlaneID, body.Title, body.Description, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, card)

	case len(parts) == 2 && parts[1] == "labels" && r.Method == http.MethodPost:
		var body struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		label, err := s.service.CreateLabel(r.Context(), sess, parts[0], body.Name, body.Color, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, label)

	case len(parts) == 2 && parts[1] == "activity" && r.Method == http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		activities, err := s.service.ListBoardActivity(r.Context(), sess, parts[0], limit)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"activities": activities})

	case len(parts) == 2 && parts[1] == "search" && r.Method == http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		resp, err := s.service.SearchBoard(r.Context(), sess, parts[0], r.URL.Query().Get("q"), limit)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Columns ──

func (s *HTTPServer) handleColumns(w http.ResponseWriter, r *http.Request, sess Session, parts []string, origin string) {
	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		column, err := s.service.RenameColumn(r.Context(), sess, parts[0], body.Name, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, column)

	case len(parts) == 2 && parts[1] == "move" && r.Method == http.MethodPost:
		var body struct {
			AfterID  string `json:"afterId"`
			BeforeID string `json:"beforeId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		column, err := s.service.MoveColumn(r.Context(), sess, parts[0], body.AfterID, body.BeforeID, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, column)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteColumn(r.Context(), sess, parts[0], origin); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Swimlanes ──

func (s *HTTPServer) handleSwimlanes(w http.ResponseWriter, r *http.Request, sess Session, parts []string, origin string) {
	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		lane, err := s.service.RenameSwimlane(r.Context(), sess, parts[0], body.Name, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lane)

	case len(parts) == 2 && parts[1] == "move" && r.Method == http.MethodPost:
		var body struct {
			AfterID  string `json:"afterId"`
			BeforeID string `json:"beforeId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		lane, err := s.service.MoveSwimlane(r.Context(), sess, parts[0], body.AfterID, body.BeforeID, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lane)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteSwimlane(r.Context(), sess, parts[0], origin); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Cards ──

func (s *HTTPServer) handleCards(w http.ResponseWriter, r *http.Request, sess Session, parts []string, origin string) {
	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		var body struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, err := s.service.UpdateCard(r.Context(), sess, parts[0], body.Title, body.Description, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, card)

	case len(parts) == 2 && parts[1] == "move" && r.Method == http.MethodPost:
		var body struct {
			ColumnID   string `json:"columnId"`
			SwimlaneID string `json:"swimlaneId"`
			AfterID    string `json:"afterId"`
			BeforeID   string `json:"beforeId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, err := s.service.MoveCard(r.Context(), sess, parts[0], body.ColumnID, body.SwimlaneID, body.AfterID, body.BeforeID, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, card)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteCard(r.Context(), sess, parts[0], origin); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(parts) == 2 && parts[1] == "comments" && r.Method == http.MethodGet:
		comments, err := s.service.ListComments(r.Context(), sess, parts[0])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": comments})

	case len(parts) == 2 && parts[1] == "comments" && r.Method == http.MethodPost:
		var body struct {
			Body string `json:"body"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.service.CreateComment(r.Context(), sess, parts[0], body.Body, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, comment)

	case len(parts) == 3 && parts[1] == "labels" && r.Method == http.MethodPost:
		if err := s.service.AddCardLabel(r.Context(), sess, parts[0], parts[2], origin); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(parts) == 3 && parts[1] == "labels" && r.Method == http.MethodDelete:
		if err := s.service.RemoveCardLabel(r.Context(), sess, parts[0], parts[2], origin); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(parts) == 2 && parts[1] == "assignees" && r.Method == http.MethodPost:
		var body struct {
			UserID string `json:"userId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.AddCardAssignee(r.Context(), sess, parts[0], body.UserID, origin); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(parts) == 3 && parts[1] == "assignees" && r.Method == http.MethodDelete:
		if err := s.service.RemoveCardAssignee(r.Context(), sess, parts[0], parts[2], origin); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(parts) == 2 && parts[1] == "attachments" && r.Method == http.MethodGet:
		attachments, err := s.service.ListAttachments(r.Context(), sess, parts[0])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attachments": attachments})

	case len(parts) == 2 && parts[1] == "attachments" && r.Method == http.MethodPost:
		s.handleUploadAttachment(w, r, sess, parts[0], origin)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleUploadAttachment(w http.ResponseWriter, r *http.Request, sess Session, cardID, origin string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "multipart form expected", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "file field is required", nil)
		return
	}
	defer file.Close()

	att, err := s.service.CreateAttachment(r.Context(), sess, cardID, header.Filename,
		header.Header.Get("Content-Type"), header.Size, file, origin)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

// ── Comments ──

func (s *HTTPServer) handleComments(w http.ResponseWriter, r *http.Request, sess Session, parts []string, origin string) {
	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		var body struct {
			Body string `json:"body"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.service.UpdateComment(r.Context(), sess, parts[0], body.Body, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comment)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteComment(r.Context(), sess, parts[0], origin); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Labels ──

func (s *HTTPServer) handleLabels(w http.ResponseWriter, r *http.Request, sess Session, parts []string, origin string) {
	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		var body struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		label, err := s.service.UpdateLabel(r.Context(), sess, parts[0], body.Name, body.Color, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, label)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteLabel(r.Context(), sess, parts[0], origin); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Attachments ──

func (s *HTTPServer) handleAttachments(w http.ResponseWriter, r *http.Request, sess Session, parts []string, origin string) {
	switch {
	case len(parts) == 2 && parts[1] == "url" && r.Method == http.MethodGet:
		url, err := s.service.AttachmentURL(r.Context(), sess, parts[0])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"url": url})

	case len(parts) == 1 && r.Method == http.MethodPut:
		var body struct {
			Filename string `json:"filename"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		att, err := s.service.RenameAttachment(r.Context(), sess, parts[0], body.Filename, origin)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, att)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteAttachment(r.Context(), sess, parts[0], origin); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Notifications ──

func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request, sess Session, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		unreadOnly := r.URL.Query().Get("unread") == "1"
		notifications, err := s.service.ListNotifications(r.Context(), sess, unreadOnly)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})

	case len(parts) == 2 && parts[1] == "read" && r.Method == http.MethodPost:
		if err := s.service.MarkNotificationRead(r.Context(), sess, parts[0]); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Plumbing ──

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

// Hijack lets the socket upgrade pass through the logging wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hijack not supported")
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Socket-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
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
		if errors.Is(err, http.ErrBodyReadAfterClose) {
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

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
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
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
