package report

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
)

type fakeSource struct {
	samples []models.SamplePoint
	err     error
}

func (f *fakeSource) RecentSamples(n int) ([]models.SamplePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	if n < len(f.samples) {
		return f.samples[len(f.samples)-n:], nil
	}
	return f.samples, nil
}

func makeSamples(n int, gpi func(i int) int) []models.SamplePoint {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	samples := make([]models.SamplePoint, n)
	for i := range samples {
		samples[i] = models.SamplePoint{
			Smoke:     400 + i,
			Methane:   150,
			CO:        60,
			Air:       200,
			GPI:       gpi(i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
	}
	return samples
}

func testReportConfig(ollamaURL string) config.ReportConfig {
	return config.ReportConfig{
		OllamaURL:  ollamaURL,
		Model:      "gemma2:9b",
		MaxTokens:  3000,
		Timeout:    5 * time.Second,
		MinSamples: 3,
		WindowSize: 200,
	}
}

func TestGenerateRejectsInsufficientData(t *testing.T) {
	source := &fakeSource{samples: makeSamples(2, func(i int) int { return 40 })}
	service := NewService(testReportConfig("http://127.0.0.1:0"), source)

	_, err := service.Generate(context.Background())
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("esperado ErrInsufficientData, obtido %v", err)
	}
}

func TestGenerateCallsModelWithStatsPrompt(t *testing.T) {
	var gotPrompt string
	var gotModel string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		gotPrompt, _ = req["prompt"].(string)
		gotModel, _ = req["model"].(string)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"response": "Análise gerada.",
			"done":     true,
		})
	}))
	defer server.Close()

	source := &fakeSource{samples: makeSamples(10, func(i int) int { return 40 + i*20 })}
	service := NewService(testReportConfig(server.URL), source)

	doc, err := service.Generate(context.Background())
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	if doc.Analysis != "Análise gerada." {
		t.Errorf("análise incorreta: %q", doc.Analysis)
	}
	if doc.Model != "gemma2:9b" || gotModel != "gemma2:9b" {
		t.Errorf("modelo incorreto: doc=%q req=%q", doc.Model, gotModel)
	}
	for _, fragment := range []string{"MQ-2", "MQ-7", "GPI Trend", "Total Records: 10"} {
		if !strings.Contains(gotPrompt, fragment) {
			t.Errorf("prompt deveria conter %q", fragment)
		}
	}
	if doc.Stats.Samples != 10 {
		t.Errorf("estatísticas deveriam cobrir 10 amostras, obtidas %d", doc.Stats.Samples)
	}
}

func TestComputeStatsSummaries(t *testing.T) {
	samples := []models.SamplePoint{
		{Smoke: 100, Methane: 10, CO: 5, Air: 50, GPI: 10, Timestamp: time.Unix(1, 0)},
		{Smoke: 200, Methane: 20, CO: 10, Air: 100, GPI: 150, Timestamp: time.Unix(2, 0)},
		{Smoke: 300, Methane: 30, CO: 15, Air: 150, GPI: 250, Timestamp: time.Unix(3, 0)},
	}

	stats := computeStats(samples)

	smoke := stats.Channels["smoke"]
	if smoke.Min != 100 || smoke.Max != 300 {
		t.Errorf("min/max incorretos: %+v", smoke)
	}
	if math.Abs(smoke.Mean-200) > 1e-9 {
		t.Errorf("média incorreta: %v", smoke.Mean)
	}
	if math.Abs(smoke.Std-100) > 1e-9 {
		t.Errorf("desvio padrão amostral incorreto: %v", smoke.Std)
	}

	if stats.Moderate != 2 {
		t.Errorf("contagem de GPI > 100 incorreta: %d", stats.Moderate)
	}
	if stats.Unhealthy != 1 {
		t.Errorf("contagem de GPI > 200 incorreta: %d", stats.Unhealthy)
	}
	if stats.GPITrend != "crescente" {
		t.Errorf("tendência incorreta: %s", stats.GPITrend)
	}
}

func TestComputeStatsDecreasingTrend(t *testing.T) {
	samples := makeSamples(20, func(i int) int { return 400 - i*20 })
	stats := computeStats(samples)
	if stats.GPITrend != "decrescente" {
		t.Errorf("tendência incorreta: %s", stats.GPITrend)
	}
}

func TestGenerateReportsOllamaFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	source := &fakeSource{samples: makeSamples(5, func(i int) int { return 40 })}
	service := NewService(testReportConfig(server.URL), source)

	if _, err := service.Generate(context.Background()); err == nil {
		t.Fatal("falha do Ollama deveria propagar erro")
	}
}
