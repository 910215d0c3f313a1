// Package explain calls the external explanation-generation service that
// turns a finished risk assessment into patient-readable guidance. The core
// pipeline treats the returned text as opaque; any failure here degrades the
// report to its local summary and clears explanation_success, never the
// request.
package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pharmaguard/pgx-server/internal/domain"
)

const defaultTimeout = 10 * time.Second

// request is the collaborator's input payload: the assessment context it
// needs to ground the generated text.
type request struct {
	Drug           string               `json:"drug"`
	Gene           string               `json:"gene"`
	Diplotype      string               `json:"diplotype"`
	Phenotype      domain.PhenotypeCode `json:"phenotype_code"`
	RiskLabel      domain.RiskLabel     `json:"risk_label"`
	Confidence     float64              `json:"confidence_score"`
	Recommendation string               `json:"recommendation"`
}

type response struct {
	Summary string `json:"summary"`
}

// Client is the gobreaker-wrapped HTTP client for the explanation service.
type Client struct {
	cfg     domain.ExplainConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewClient creates the collaborator client. With Enabled false the client
// is inert and Generate is never called by the pipeline.
func NewClient(cfg domain.ExplainConfig, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ExplanationService",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger,
	}
}

// Enabled reports whether the collaborator is configured.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled && c.cfg.BaseURL != ""
}

// Generate requests an explanation for one finished drug report.
func (c *Client) Generate(ctx context.Context, report *domain.DrugReport) (domain.Explanation, error) {
	payload := request{
		Drug:           report.Drug,
		Gene:           report.PharmacogenomicProfile.PrimaryGene,
		Diplotype:      report.PharmacogenomicProfile.Diplotype,
		Phenotype:      report.PharmacogenomicProfile.PhenotypeCode,
		RiskLabel:      report.RiskAssessment.RiskLabel,
		Confidence:     report.RiskAssessment.ConfidenceScore,
		Recommendation: report.ClinicalRecommendation.Recommendation,
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, &payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return domain.Explanation{}, fmt.Errorf("explanation service unavailable (circuit breaker open)")
		}
		return domain.Explanation{}, fmt.Errorf("explanation request failed: %w", err)
	}

	return domain.Explanation{Summary: result.(*response).Summary}, nil
}

func (c *Client) post(ctx context.Context, payload *request) (*response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding explanation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/explanations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explanation service returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding explanation response: %w", err)
	}
	return &out, nil
}
