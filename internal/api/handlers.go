package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/glyphfix/internal/compile"
	"github.com/MrWong99/glyphfix/internal/correct"
	"github.com/MrWong99/glyphfix/internal/customdict"
	"github.com/MrWong99/glyphfix/internal/grade"
	"github.com/MrWong99/glyphfix/internal/gradebook"
	"github.com/MrWong99/glyphfix/internal/observe"
	"github.com/MrWong99/glyphfix/internal/recognize"
	"github.com/MrWong99/glyphfix/internal/score"
	"github.com/MrWong99/glyphfix/internal/syntaxcheck"
)

// maxListLimit caps GET /api/v1/grades?limit.
const maxListLimit = 100

// CorrectResponse is returned by POST /api/v1/correct.
type CorrectResponse struct {
	Text           string               `json:"text"`
	Corrections    []correct.Correction `json:"corrections"`
	Lines          int                  `json:"lines"`
	ResidualIssues []syntaxcheck.Issue  `json:"residual_issues"`
}

// RecognizeResponse is returned by POST /api/v1/recognize.
type RecognizeResponse struct {
	Text  string `json:"text"`
	Lines int    `json:"lines"`
}

// GradeRequest is the body of POST /api/v1/grade. Source takes precedence
// over RecTexts.
type GradeRequest struct {
	Source   string          `json:"source"`
	RecTexts []string        `json:"rec_texts"`
	Problem  string          `json:"problem"`
	Tests    map[string]bool `json:"tests"`
}

// GradeResponse is returned by POST /api/v1/grade and GET
// /api/v1/grades/{id}.
type GradeResponse struct {
	ID          uuid.UUID            `json:"id"`
	Problem     string               `json:"problem"`
	Corrected   string               `json:"corrected"`
	Corrections []correct.Correction `json:"corrections,omitempty"`
	Compile     *compile.Result      `json:"compile"`
	Score       *score.Report        `json:"score"`
	Cached      bool                 `json:"cached"`
	CreatedAt   time.Time            `json:"created_at"`
}

func gradeResponse(rec gradebook.Record) GradeResponse {
	return GradeResponse{
		ID:        rec.ID,
		Problem:   rec.Problem,
		Corrected: rec.Source,
		Compile:   rec.Compile,
		Score:     rec.Score,
		CreatedAt: rec.CreatedAt,
	}
}

// GradeList is returned by GET /api/v1/grades.
type GradeList struct {
	Grades []GradeResponse `json:"grades"`
	Total  int             `json:"total"`
}

// WordList is returned by GET /api/v1/dictionary.
type WordList struct {
	Words []string `json:"words"`
}

// WordRequest is the body of POST /api/v1/dictionary.
type WordRequest struct {
	Word string `json:"word"`
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		respondBodyError(w, err)
		return
	}
	ctx := r.Context()
	res, err := s.pipeline.Correct(ctx, data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	rep, err := syntaxcheck.Check(ctx, []byte(res.Text))
	if err != nil {
		observe.Logger(ctx).Warn("residual syntax check failed", "err", err)
		rep = syntaxcheck.Report{Issues: []syntaxcheck.Issue{}}
	}
	respond(w, http.StatusOK, CorrectResponse{
		Text:           res.Text,
		Corrections:    res.Corrections,
		Lines:          res.Lines,
		ResidualIssues: rep.Issues,
	})
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		respondBodyError(w, err)
		return
	}
	lines, err := s.recognizer.Recognize(r.Context(), bytes.NewReader(data))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	respond(w, http.StatusOK, RecognizeResponse{Text: lines.Source(), Lines: len(lines)})
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondBodyError(w, err)
		return
	}
	src := req.Source
	if src == "" && len(req.RecTexts) > 0 {
		src = recognize.Lines(req.RecTexts).Source()
	}

	out, err := s.grader.Grade(r.Context(), grade.Request{
		Source:  []byte(src),
		Problem: req.Problem,
		Tests:   req.Tests,
	})
	switch {
	case errors.Is(err, grade.ErrEmptySubmission):
		respondError(w, http.StatusBadRequest, codeBadRequest, "source or rec_texts is required")
		return
	case err != nil:
		observe.Logger(r.Context()).Error("grading failed", "err", err)
		respondError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	resp := gradeResponse(out.Record)
	resp.Corrections = out.Corrections
	resp.Cached = out.Cached
	status := http.StatusCreated
	if out.Cached {
		status = http.StatusOK
	}
	respond(w, status, resp)
}

func (s *Server) handleGetGrade(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid grade id")
		return
	}
	rec, err := s.gradebook().Get(r.Context(), id)
	switch {
	case errors.Is(err, gradebook.ErrNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, "grade not found")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}
	respond(w, http.StatusOK, gradeResponse(*rec))
}

func (s *Server) handleListGrades(w http.ResponseWriter, r *http.Request) {
	limit := gradebook.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, codeBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	recs, err := s.gradebook().Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}
	list := GradeList{Grades: make([]GradeResponse, len(recs)), Total: len(recs)}
	for i, rec := range recs {
		list.Grades[i] = gradeResponse(rec)
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) handleListWords(w http.ResponseWriter, r *http.Request) {
	words, err := s.dict.List(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, err.Error())
		return
	}
	if words == nil {
		words = []string{}
	}
	respond(w, http.StatusOK, WordList{Words: words})
}

func (s *Server) handleAddWord(w http.ResponseWriter, r *http.Request) {
	var req WordRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondBodyError(w, err)
		return
	}
	if err := customdict.Validate(req.Word); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := s.dict.Add(r.Context(), req.Word); err != nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, err.Error())
		return
	}
	if !s.dictionaryChanged(w, r) {
		return
	}
	respond(w, http.StatusCreated, req)
}

func (s *Server) handleRemoveWord(w http.ResponseWriter, r *http.Request) {
	word := r.PathValue("word")
	if err := customdict.Validate(word); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := s.dict.Remove(r.Context(), word); err != nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, err.Error())
		return
	}
	if !s.dictionaryChanged(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dictionaryChanged runs the change hook and reports whether the request
// may still succeed.
func (s *Server) dictionaryChanged(w http.ResponseWriter, r *http.Request) bool {
	if s.onDictChange == nil {
		return true
	}
	if err := s.onDictChange(r.Context()); err != nil {
		observe.Logger(r.Context()).Error("failed to apply dictionary change", "err", err)
		respondError(w, http.StatusInternalServerError, codeInternal, "dictionary stored but pipeline rebuild failed: "+err.Error())
		return false
	}
	return true
}
