package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
	"pranbot_go/pkg/logger"
)

// ErrInsufficientData indica que há menos amostras do que o mínimo exigido
var ErrInsufficientData = errors.New("dados insuficientes para gerar relatório")

// SampleSource fornece a janela de amostras para a análise.
// O serviço Redis implementa esta interface.
type SampleSource interface {
	RecentSamples(n int) ([]models.SamplePoint, error)
}

// Document é o relatório gerado: estatísticas da janela mais a análise do modelo
type Document struct {
	GeneratedAt time.Time   `json:"generatedAt"`
	Model       string      `json:"model"`
	Stats       WindowStats `json:"stats"`
	Analysis    string      `json:"analysis"`
}

// Service gera relatórios de qualidade do ar a partir do histórico de amostras
type Service struct {
	source SampleSource
	client *OllamaClient
	config config.ReportConfig
}

// NewService cria o serviço de relatórios
func NewService(cfg config.ReportConfig, source SampleSource) *Service {
	return &Service{
		source: source,
		client: NewOllamaClient(cfg),
		config: cfg,
	}
}

// Generate monta as estatísticas da janela recente e pede a análise ao modelo
func (s *Service) Generate(ctx context.Context) (*Document, error) {
	if s.source == nil {
		return nil, fmt.Errorf("fonte de amostras indisponível")
	}

	samples, err := s.source.RecentSamples(s.config.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("erro ao obter amostras: %w", err)
	}

	minSamples := s.config.MinSamples
	if minSamples <= 0 {
		minSamples = 3
	}
	if len(samples) < minSamples {
		return nil, fmt.Errorf("%w: %d amostras (mínimo %d)", ErrInsufficientData, len(samples), minSamples)
	}

	stats := computeStats(samples)
	prompt := buildPrompt(stats)

	logger.Infof("Gerando relatório com %d amostras (%s a %s)", stats.Samples, stats.From, stats.To)

	analysis, err := s.client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar análise: %w", err)
	}

	return &Document{
		GeneratedAt: time.Now(),
		Model:       s.client.Model(),
		Stats:       stats,
		Analysis:    analysis,
	}, nil
}

// Ping verifica se o motor de análise está acessível
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
