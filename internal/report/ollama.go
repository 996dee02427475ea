package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/pkg/logger"
)

// OllamaClient fala com um servidor Ollama local para geração de texto
type OllamaClient struct {
	baseURL   string
	model     string
	maxTokens int
	http      *http.Client
}

// generateRequest é o corpo de /api/generate
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

// generateResponse é a parte que interessa da resposta de /api/generate
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaClient cria o cliente para o servidor Ollama configurado
func NewOllamaClient(cfg config.ReportConfig) *OllamaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &OllamaClient{
		baseURL:   cfg.OllamaURL,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		http:      &http.Client{Timeout: timeout},
	}
}

// Generate envia o prompt ao modelo e devolve o texto gerado
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			NumPredict:  c.maxTokens,
			Temperature: 0.7,
		},
	})
	if err != nil {
		return "", fmt.Errorf("erro ao montar requisição para o Ollama: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("erro ao criar requisição para o Ollama: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("erro ao conectar ao Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("resposta inesperada do Ollama: %d", resp.StatusCode)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("erro ao decodificar resposta do Ollama: %w", err)
	}

	logger.Infof("Análise gerada pelo modelo %s em %v", c.model, time.Since(start).Round(time.Millisecond))
	return result.Response, nil
}

// Ping verifica se o servidor Ollama está acessível
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama inacessível: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("resposta inesperada do Ollama: %d", resp.StatusCode)
	}
	return nil
}

// Model retorna o nome do modelo configurado
func (c *OllamaClient) Model() string {
	return c.model
}
