package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/khrees2412/jobhunter/pkg/models"
	"go.uber.org/zap"
)

const maxDescriptionBytes = 1 << 20

type indexData struct {
	Title       string
	Text        string
	Error       string
	Predictions []models.CityScore
}

// PredictRequest is the body of POST /api/predict
type PredictRequest struct {
	Text string `json:"text"`
}

// PredictResponse is returned by POST /api/predict
type PredictResponse struct {
	Predictions []models.CityScore `json:"predictions"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, indexData{Title: Title})
}

func (s *Server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDescriptionBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, indexData{Title: Title, Error: "could not read the form"})
		return
	}
	text := r.PostForm.Get("text1")
	if strings.TrimSpace(text) == "" {
		s.render(w, http.StatusBadRequest, indexData{Title: Title, Error: "please paste a job description"})
		return
	}

	scores, err := s.predictor.Rank(text)
	if err != nil {
		s.logger.Error("prediction failed", zap.Error(err))
		s.render(w, http.StatusInternalServerError, indexData{Title: Title, Text: text, Error: "prediction failed"})
		return
	}
	s.render(w, http.StatusOK, indexData{Title: Title, Text: text, Predictions: scores})
}

func (s *Server) handlePredictJSON(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDescriptionBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.errorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	scores, err := s.predictor.Rank(req.Text)
	if err != nil {
		s.logger.Error("prediction failed", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "prediction failed")
		return
	}
	s.jsonResponse(w, http.StatusOK, PredictResponse{Predictions: scores})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) render(w http.ResponseWriter, status int, data indexData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.index.Execute(w, data); err != nil {
		s.logger.Error("failed to render index", zap.Error(err))
	}
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
