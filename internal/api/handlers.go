package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pharmaguard/pgx-server/internal/domain"
	"github.com/pharmaguard/pgx-server/internal/feedback"
	"github.com/pharmaguard/pgx-server/internal/middleware"
	"github.com/pharmaguard/pgx-server/internal/ml"
	"github.com/pharmaguard/pgx-server/internal/service"
)

const defaultMaxUploadMB = 10

// handleHealth reports liveness plus the classifier's operating mode, so
// callers can tell demo-grade output apart from trained-model output.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"version":    Version,
		"timestamp":  domain.UTCTimestamp(time.Now()),
		"model_mode": s.model.Mode,
		"demo_mode":  s.model.Mode == ml.ModeDemo,
	})
}

// handleSupportedDrugs lists the drugs the decision table covers.
func (s *Server) handleSupportedDrugs(c *gin.Context) {
	drugs := s.store.SupportedDrugs()
	out := make([]gin.H, 0, len(drugs))
	for _, d := range drugs {
		out = append(out, gin.H{
			"drug": domain.DisplayDrug(d),
			"gene": s.store.GeneForDrug(d),
		})
	}
	c.JSON(http.StatusOK, gin.H{"drugs": out})
}

// handleAnalyze accepts a multipart submission (vcf_file upload, drugs list,
// optional patient_id) and returns one report per drug, in request order.
func (s *Server) handleAnalyze(c *gin.Context) {
	requestID := middleware.GetRequestID(c)

	maxMB := s.cfg.Server.MaxUploadMB
	if maxMB <= 0 {
		maxMB = defaultMaxUploadMB
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(maxMB)<<20)

	file, _, err := c.Request.FormFile("vcf_file")
	if err != nil {
		s.abortError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"missing or unreadable vcf_file upload", err.Error())
		return
	}
	defer file.Close()

	drugs := c.PostFormArray("drugs")
	if len(drugs) == 1 && strings.Contains(drugs[0], ",") {
		drugs = strings.Split(drugs[0], ",")
	}

	req := &service.AnalyzeRequest{
		PatientID: c.PostForm("patient_id"),
		Drugs:     drugs,
		VCF:       file,
	}

	reports, err := s.pipeline.Analyze(c.Request.Context(), req)
	if err != nil {
		var formatErr *domain.FormatError
		var noDrugs *domain.NoDrugsSpecifiedError
		switch {
		case errors.As(err, &formatErr):
			s.abortError(c, http.StatusBadRequest, domain.ErrCodeFormat, formatErr.Error(), "")
		case errors.As(err, &noDrugs):
			s.abortError(c, http.StatusBadRequest, domain.ErrCodeNoDrugs, noDrugs.Error(), "")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.Abort()
		default:
			s.logger.WithError(err).WithField("request_id", requestID).Error("Analysis failed")
			s.abortError(c, http.StatusInternalServerError, domain.ErrCodeInternal,
				"analysis failed", "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id": requestID,
		"results":    reports,
	})
}

// handleSaveFeedback records one clinician review of a drug report.
func (s *Server) handleSaveFeedback(c *gin.Context) {
	var fb feedback.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		s.abortError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"invalid feedback payload", err.Error())
		return
	}

	if err := fb.Validate(); err != nil {
		s.abortError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error(), "")
		return
	}

	if err := s.feedback.Save(c.Request.Context(), &fb); err != nil {
		s.logger.WithError(err).Error("Failed to save feedback")
		s.abortError(c, http.StatusInternalServerError, domain.ErrCodeInternal,
			"failed to save feedback", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": fb.ID, "status": "saved"})
}

// handleListFeedback returns stored reviews newest-first.
func (s *Server) handleListFeedback(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	items, err := s.feedback.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list feedback")
		s.abortError(c, http.StatusInternalServerError, domain.ErrCodeInternal,
			"failed to list feedback", "")
		return
	}
	total, err := s.feedback.Count(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to count feedback")
		s.abortError(c, http.StatusInternalServerError, domain.ErrCodeInternal,
			"failed to count feedback", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": items,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// handleExportFeedback streams the versioned JSON export.
func (s *Server) handleExportFeedback(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="risk_feedback.json"`)
	if err := s.feedback.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.logger.WithError(err).Error("Failed to export feedback")
		c.Status(http.StatusInternalServerError)
	}
}

// handleDeleteFeedback removes a review by ID.
func (s *Server) handleDeleteFeedback(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.abortError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"feedback id must be an integer", "")
		return
	}
	if err := s.feedback.Delete(c.Request.Context(), id); err != nil {
		s.logger.WithError(err).Error("Failed to delete feedback")
		s.abortError(c, http.StatusInternalServerError, domain.ErrCodeInternal,
			"failed to delete feedback", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) abortError(c *gin.Context, status int, code, message, details string) {
	apiErr := domain.NewAPIError(code, message, details, middleware.GetRequestID(c))
	c.AbortWithStatusJSON(status, gin.H{"error": apiErr})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
