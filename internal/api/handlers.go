package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/enfinlibre/formation/internal/feedback"
	"github.com/enfinlibre/formation/internal/quizerr"
	"github.com/enfinlibre/formation/internal/store"
	"github.com/enfinlibre/formation/internal/submission"
)

const (
	submitDetails  = "An error occurred while saving the submission"
	analyzeDetails = "An error occurred during quiz analysis"

	// Warning returned when an analysis was produced but not stored.
	warnNotPersisted = "analysis could not be saved and will be generated again next time"
)

// SubmitQuiz handles POST /functions/v1/submit-quiz.
func (h *Handler) SubmitQuiz(c *gin.Context) {
	var body SubmitQuizRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.functionError(c, &quizerr.ErrValidation{Reason: err.Error()}, submitDetails)
		return
	}

	analysis, err := decodeAnalysis(body.Analysis)
	if err != nil {
		h.functionError(c, &quizerr.ErrValidation{Reason: err.Error()}, submitDetails)
		return
	}

	res, err := h.submitter.Submit(c.Request.Context(), submission.Request{
		UserInfo: submission.UserInfo{
			Prenom: body.UserInfo.Prenom,
			Nom:    body.UserInfo.Nom,
			Email:  body.UserInfo.Email,
		},
		Answers:          body.Answers.ToAnswers(),
		CompletedModules: body.CompletedModules,
		TotalModules:     body.TotalModules,
		Analysis:         analysis,
	})
	if err != nil {
		h.functionError(c, err, submitDetails)
		return
	}

	resp := SubmitQuizResponse{
		Success:   true,
		Data:      toSubmissionDTO(res.Submission),
		Breakdown: res.Breakdown,
	}
	if res.AnalysisErr != nil {
		resp.AnalysisError = res.AnalysisErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// AnalyzeQuiz handles POST /functions/v1/analyze-quiz.
func (h *Handler) AnalyzeQuiz(c *gin.Context) {
	var body AnalyzeQuizRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.functionError(c, &quizerr.ErrValidation{Reason: err.Error()}, analyzeDetails)
		return
	}

	var (
		res *feedback.Result
		err error
	)
	switch {
	case body.SubmissionID != "":
		res, err = h.analyzer.Analyze(c.Request.Context(), body.SubmissionID)
	case body.Answers != nil:
		res, err = h.analyzer.AnalyzeAnswers(c.Request.Context(), body.Answers.ToAnswers())
	default:
		err = &quizerr.ErrValidation{Reason: "submissionId or answers is required"}
	}

	// A store failure after generation still delivers the analysis.
	var storeErr *quizerr.ErrStore
	if err != nil && !(res != nil && errors.As(err, &storeErr)) {
		h.functionError(c, err, analyzeDetails)
		return
	}

	resp := AnalyzeQuizResponse{
		Success:   true,
		Analysis:  res.Analysis,
		Breakdown: res.Breakdown,
		Cached:    res.Cached,
	}
	if err != nil {
		h.log.Warn("analysis not persisted", zap.String("submission_id", body.SubmissionID), zap.Error(err))
		resp.Warning = warnNotPersisted
	}
	c.JSON(http.StatusOK, resp)
}

// Preflight answers an OPTIONS request the cors middleware let through,
// such as one without an Origin header, with the same header set.
func (h *Handler) Preflight(c *gin.Context) {
	header := c.Writer.Header()
	if header.Get("Access-Control-Allow-Methods") == "" {
		header.Set("Access-Control-Allow-Methods", strings.Join(h.cors.AllowMethods, ","))
		header.Set("Access-Control-Allow-Headers", strings.Join(h.cors.AllowHeaders, ","))
		if h.cors.AllowAllOrigins {
			header.Set("Access-Control-Allow-Origin", "*")
		}
	}
	c.Status(http.StatusNoContent)
}

// ListSubmissions handles GET /api/submissions.
func (h *Handler) ListSubmissions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
		return
	}

	subs, err := h.submissions.List(c.Request.Context(), store.ListOpts{Limit: limit})
	if err != nil {
		h.log.Error("failed to list submissions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list submissions"})
		return
	}

	data := make([]SubmissionDTO, 0, len(subs))
	for _, s := range subs {
		data = append(data, toSubmissionDTO(s))
	}
	c.JSON(http.StatusOK, SubmissionListResponse{Success: true, Data: data})
}

// GetSubmission handles GET /api/submissions/:id.
func (h *Handler) GetSubmission(c *gin.Context) {
	id := c.Param("id")
	sub, err := h.submissions.Get(c.Request.Context(), id)
	if err != nil {
		h.log.Error("failed to get submission", zap.String("submission_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get submission"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: (&quizerr.ErrNotFound{ID: id}).Error()})
		return
	}

	resp := SubmissionResponse{Success: true, Data: toSubmissionDTO(sub)}
	if sub.HasAnalysis() {
		resp.Breakdown = feedback.ParseFeedback(*sub.Analysis)
	}
	c.JSON(http.StatusOK, resp)
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// functionError writes the error body of the function endpoints. Every
// failure maps to 500; the message never carries a stack trace.
func (h *Handler) functionError(c *gin.Context, err error, details string) {
	var (
		ve *quizerr.ErrValidation
		nf *quizerr.ErrNotFound
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &nf):
		h.log.Warn("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Details: details,
	})
}
