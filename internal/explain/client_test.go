package explain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard/pgx-server/internal/domain"
)

func testClient(baseURL string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewClient(domain.ExplainConfig{Enabled: true, BaseURL: baseURL}, logger)
}

func sampleReport() *domain.DrugReport {
	return &domain.DrugReport{
		Drug: "Codeine",
		RiskAssessment: domain.RiskAssessmentBlock{
			RiskLabel:       domain.RiskIneffective,
			ConfidenceScore: 0.97,
			Severity:        domain.SeverityCritical,
		},
		PharmacogenomicProfile: domain.PharmacogenomicProfile{
			PrimaryGene:   "CYP2D6",
			Diplotype:     "*4/*4",
			PhenotypeCode: domain.PoorMetabolizer,
		},
		ClinicalRecommendation: domain.ClinicalRecommendation{
			Recommendation: "Avoid codeine.",
		},
	}
}

func TestClient_Enabled(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	tests := []struct {
		name string
		cfg  domain.ExplainConfig
		want bool
	}{
		{"enabled with url", domain.ExplainConfig{Enabled: true, BaseURL: "http://x"}, true},
		{"disabled", domain.ExplainConfig{Enabled: false, BaseURL: "http://x"}, false},
		{"enabled without url", domain.ExplainConfig{Enabled: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewClient(tt.cfg, logger).Enabled())
		})
	}
}

func TestClient_Generate(t *testing.T) {
	var received request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/explanations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(response{Summary: "generated guidance"})
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Generate(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "generated guidance", got.Summary)

	assert.Equal(t, "Codeine", received.Drug)
	assert.Equal(t, "CYP2D6", received.Gene)
	assert.Equal(t, "*4/*4", received.Diplotype)
	assert.Equal(t, domain.RiskIneffective, received.RiskLabel)
	assert.InDelta(t, 0.97, received.Confidence, 1e-9)
}

func TestClient_GenerateNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestClient_GenerateMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding explanation response")
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := c.Generate(ctx, sampleReport())
		require.Error(t, err)
	}

	// Breaker is now open; the request never reaches the server.
	_, err := c.Generate(ctx, sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestClient_GenerateCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(response{Summary: "too late"})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).Generate(ctx, sampleReport())
	require.Error(t, err)
}
