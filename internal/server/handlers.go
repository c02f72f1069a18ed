package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sozercan/gemini-mole/api/models"
	"github.com/sozercan/gemini-mole/apimodels"
	"github.com/sozercan/gemini-mole/internal/gemini"
	"github.com/sozercan/gemini-mole/internal/images"
	"github.com/sozercan/gemini-mole/internal/parser"
)

var maxBodyBytes int64 = 16 << 20

var errBadRequest = errors.New("bad request")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	out, err := s.parser.Parse(string(body))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCode(w http.ResponseWriter, r *http.Request) {
	var req models.CodeRequest
	if !decode(w, r, &req) {
		return
	}

	var code apimodels.CodeBlocks
	if req.Language == "" {
		code = parser.ExtractCode(req.Text)
	} else {
		var err error
		if code, err = parser.ExtractLanguageCode(req.Text, req.Language); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, code)
}

func (s *Server) handleReplit(w http.ResponseWriter, r *http.Request) {
	var req models.ReplitRequest
	if !decode(w, r, &req) {
		return
	}

	filename, err := parser.SourceFilename(req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	payload, err := gemini.BuildReplitPayload(req.Instructions, req.Code, filename)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ReplitResponse{Filename: filename, Payload: payload})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	sess, err := gemini.NewSession(s.generator, req.Metadata...)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	id := s.sessions.add(sess)
	slog.Info("Created session", "id", id)

	writeJSON(w, http.StatusCreated, models.SessionResponse{ID: id, Metadata: sess.Metadata()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SessionResponse{ID: id, Metadata: sess.Metadata()})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.MessageRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeError(w, fmt.Errorf("%w: prompt cannot be empty", errBadRequest))
		return
	}

	result, err := s.assistant.Turn(r.Context(), sess, req.Prompt, req.CodeLanguage)
	if err != nil {
		slog.Error("Message request failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChoose(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.ChooseRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := sess.ChooseCandidate(req.Index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := sess.Output()
	if out == nil {
		writeError(w, gemini.ErrNoOutput)
		return
	}

	imgs, err := s.fetcher.Fetch(r.Context(), images.Refs(out))
	if err != nil {
		writeError(w, err)
		return
	}
	saved, err := images.Save(s.cfg.Images.Dir, imgs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ImagesResponse{Dir: s.cfg.Images.Dir, Saved: saved})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request: %w", errBadRequest, err))
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var statusErr *gemini.StatusError
	var decodeErr *parser.DecodeError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, parser.ErrUnsupportedLanguage),
		errors.Is(err, apimodels.ErrCandidateIndex):
		return http.StatusBadRequest
	case errors.Is(err, errSessionNotFound), errors.Is(err, images.ErrNoImages):
		return http.StatusNotFound
	case errors.Is(err, gemini.ErrNoOutput):
		return http.StatusConflict
	case errors.Is(err, parser.ErrParse),
		errors.Is(err, parser.ErrNoCandidates),
		errors.Is(err, gemini.ErrAuth),
		errors.As(err, &statusErr),
		errors.As(err, &decodeErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), models.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
