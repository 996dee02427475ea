package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
	"pranbot_go/pkg/logger"
)

// Canais de sensor com histórico individual no Redis
var historyChannels = map[string]bool{
	"smoke":    true,
	"methane":  true,
	"co":       true,
	"air":      true,
	"battery":  true,
	"gpi":      true,
	"distance": true,
}

const (
	// Tamanho máximo do histórico por canal
	maxChannelHistorySize = 1000

	// Tamanho máximo da janela de amostras completas para relatórios
	maxSampleWindowSize = 2000

	// Tamanho máximo do registro de alertas
	maxAlertHistorySize = 200
)

// Service gerencia a conexão e operações com o Redis
type Service struct {
	client    *redis.Client
	ctx       context.Context
	cancel    context.CancelFunc
	prefix    string
	config    config.RedisConfig
	connected bool
	mutex     sync.RWMutex
}

// NewService cria um novo serviço Redis
func NewService(cfg config.RedisConfig) (*Service, error) {
	if !cfg.Enabled {
		logger.Info("Serviço Redis desabilitado por configuração")
		return &Service{
			config:    cfg,
			connected: false,
		}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	service := &Service{
		client: client,
		ctx:    ctx,
		cancel: cancel,
		prefix: cfg.Prefix,
		config: cfg,
	}

	// Testar conexão
	if err := service.TestConnection(); err != nil {
		logger.Warnf("Aviso: %v. O Redis será utilizado em modo offline.", err)
		service.connected = false
		return service, nil
	}

	service.connected = true
	return service, nil
}

// TestConnection testa a conexão com o Redis
func (s *Service) TestConnection() error {
	if !s.config.Enabled {
		return fmt.Errorf("serviço Redis desabilitado")
	}

	result, err := s.client.Ping(s.ctx).Result()
	if err != nil {
		return fmt.Errorf("erro ao conectar ao Redis: %w", err)
	}

	logger.Infof("Conexão com o Redis estabelecida. Resposta: %s", result)
	s.connected = true
	return nil
}

// IsConnected verifica se o serviço está conectado
func (s *Service) IsConnected() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.connected && s.config.Enabled
}

// WriteSample escreve o registro de um ciclo no Redis: valores atuais,
// histórico por canal e a janela de amostras completas usada nos relatórios
func (s *Service) WriteSample(record models.Record) error {
	s.mutex.RLock()
	if !s.connected || !s.config.Enabled {
		s.mutex.RUnlock()
		return nil
	}
	s.mutex.RUnlock()

	pipe := s.client.Pipeline()
	timestamp := record.Timestamp

	// Registro completo atual para consulta rápida
	if jsonData, err := json.Marshal(record); err == nil {
		pipe.Set(s.ctx, fmt.Sprintf("%s:current", s.prefix), string(jsonData), 0)
	}
	pipe.Set(s.ctx, fmt.Sprintf("%s:timestamp", s.prefix), timestamp, 0)

	// Valor atual e histórico de cada canal
	channels := map[string]float64{
		"smoke":    float64(record.Smoke),
		"methane":  float64(record.Methane),
		"co":       float64(record.CO),
		"air":      float64(record.Air),
		"battery":  float64(record.Battery),
		"gpi":      float64(record.GPI),
		"distance": record.RadarDistance,
	}
	for channel, value := range channels {
		key := fmt.Sprintf("%s:%s", s.prefix, channel)

		pipe.Set(s.ctx, key, value, 0)

		histKey := fmt.Sprintf("%s:history", key)
		pipe.ZAdd(s.ctx, histKey, &redis.Z{
			Score:  float64(timestamp),
			Member: value,
		})

		// Limitando o tamanho do histórico
		pipe.ZRemRangeByRank(s.ctx, histKey, 0, -(maxChannelHistorySize + 1))
	}

	// Janela de amostras completas para relatórios
	sample := models.SamplePoint{
		Smoke:     record.Smoke,
		Methane:   record.Methane,
		CO:        record.CO,
		Air:       record.Air,
		GPI:       record.GPI,
		Timestamp: time.Unix(0, timestamp*int64(time.Millisecond)),
	}
	if jsonData, err := json.Marshal(sample); err == nil {
		samplesKey := fmt.Sprintf("%s:samples", s.prefix)
		pipe.ZAdd(s.ctx, samplesKey, &redis.Z{
			Score:  float64(timestamp),
			Member: string(jsonData),
		})
		pipe.ZRemRangeByRank(s.ctx, samplesKey, 0, -(maxSampleWindowSize + 1))
	}

	_, err := pipe.Exec(s.ctx)
	if err != nil {
		s.mutex.Lock()
		s.connected = false
		s.mutex.Unlock()
		return fmt.Errorf("erro ao escrever amostra no Redis: %w", err)
	}

	return nil
}

// WriteStatus escreve o status da comunicação com o robô no Redis
func (s *Service) WriteStatus(status models.RobotStatus) error {
	s.mutex.RLock()
	if !s.connected || !s.config.Enabled {
		s.mutex.RUnlock()
		return nil
	}
	s.mutex.RUnlock()

	pipe := s.client.Pipeline()

	pipe.Set(s.ctx, fmt.Sprintf("%s:status", s.prefix), status.Status, 0)
	pipe.Set(s.ctx, fmt.Sprintf("%s:mode", s.prefix), string(status.Mode), 0)
	pipe.Set(s.ctx, fmt.Sprintf("%s:status_timestamp", s.prefix),
		status.Timestamp.UnixNano()/int64(time.Millisecond), 0)

	if status.LastError != "" {
		pipe.Set(s.ctx, fmt.Sprintf("%s:ultimo_erro", s.prefix), status.LastError, 0)
	}

	if status.ErrorCount > 0 {
		pipe.Set(s.ctx, fmt.Sprintf("%s:erros_consecutivos", s.prefix), status.ErrorCount, 0)
	}

	_, err := pipe.Exec(s.ctx)
	if err != nil {
		s.mutex.Lock()
		s.connected = false
		s.mutex.Unlock()
		return fmt.Errorf("erro ao escrever status no Redis: %w", err)
	}

	return nil
}

// WriteAlert registra uma transição do alerta de gás crítico
func (s *Service) WriteAlert(event models.AlertEvent) error {
	s.mutex.RLock()
	if !s.connected || !s.config.Enabled {
		s.mutex.RUnlock()
		return nil
	}
	s.mutex.RUnlock()

	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("erro ao serializar alerta: %w", err)
	}

	pipe := s.client.Pipeline()

	timestamp := event.Timestamp.UnixNano() / int64(time.Millisecond)
	alertsKey := fmt.Sprintf("%s:alerts", s.prefix)
	pipe.ZAdd(s.ctx, alertsKey, &redis.Z{
		Score:  float64(timestamp),
		Member: string(jsonData),
	})
	pipe.ZRemRangeByRank(s.ctx, alertsKey, 0, -(maxAlertHistorySize + 1))

	// Flag de alerta corrente para consulta direta
	pipe.Set(s.ctx, fmt.Sprintf("%s:alert_active", s.prefix), event.Active, 0)

	_, err = pipe.Exec(s.ctx)
	if err != nil {
		s.mutex.Lock()
		s.connected = false
		s.mutex.Unlock()
		return fmt.Errorf("erro ao registrar alerta no Redis: %w", err)
	}

	return nil
}

// GetCurrentRecord obtém o último registro completo persistido
func (s *Service) GetCurrentRecord() (*models.Record, error) {
	s.mutex.RLock()
	if !s.connected || !s.config.Enabled {
		s.mutex.RUnlock()
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}
	s.mutex.RUnlock()

	dataCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:current", s.prefix))
	if dataCmd.Err() != nil {
		if dataCmd.Err() == redis.Nil {
			return nil, fmt.Errorf("nenhum registro disponível")
		}
		return nil, fmt.Errorf("erro ao obter registro atual: %w", dataCmd.Err())
	}

	var record models.Record
	if err := json.Unmarshal([]byte(dataCmd.Val()), &record); err != nil {
		return nil, fmt.Errorf("erro ao decodificar registro atual: %w", err)
	}

	return &record, nil
}

// GetStatus obtém o status persistido da comunicação com o robô
func (s *Service) GetStatus() (*models.RobotStatus, error) {
	s.mutex.RLock()
	if !s.connected || !s.config.Enabled {
		s.mutex.RUnlock()
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}
	s.mutex.RUnlock()

	statusCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:status", s.prefix))
	if statusCmd.Err() != nil {
		return nil, fmt.Errorf("erro ao obter status: %w", statusCmd.Err())
	}

	status := &models.RobotStatus{
		Status:    statusCmd.Val(),
		Timestamp: time.Now(), // Valor padrão
	}

	modeCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:mode", s.prefix))
	if modeCmd.Err() == nil {
		status.Mode = models.ControlMode(modeCmd.Val())
	}

	timestampCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:status_timestamp", s.prefix))
	if timestampCmd.Err() == nil {
		if ts, err := timestampCmd.Int64(); err == nil {
			status.Timestamp = time.Unix(0, ts*int64(time.Millisecond))
		}
	}

	lastErrorCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:ultimo_erro", s.prefix))
	if lastErrorCmd.Err() == nil {
		status.LastError = lastErrorCmd.Val()
	}

	errorCountCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:erros_consecutivos", s.prefix))
	if errorCountCmd.Err() == nil {
		if count, err := errorCountCmd.Int(); err == nil {
			status.ErrorCount = count
		}
	}

	return status, nil
}

// GetHistory obtém o histórico de um canal de sensor
func (s *Service) GetHistory(channel string, limit int) ([]models.HistoryPoint, error) {
	s.mutex.RLock()
	if !s.connected || !s.config.Enabled {
		s.mutex.RUnlock()
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}
	s.mutex.RUnlock()

	if !historyChannels[channel] {
		return nil, fmt.Errorf("canal de histórico inválido: %q", channel)
	}
	if limit <= 0 || limit > maxChannelHistorySize {
		limit = maxChannelHistorySize
	}

	historyKey := fmt.Sprintf("%s:%s:history", s.prefix, channel)
	dataCmd := s.client.ZRangeWithScores(s.ctx, historyKey, int64(-limit), -1)
	if dataCmd.Err() != nil {
		return nil, fmt.Errorf("erro ao obter histórico do canal %s: %w", channel, dataCmd.Err())
	}

	results := dataCmd.Val()
	history := make([]models.HistoryPoint, 0, len(results))

	for _, item := range results {
		value, ok := item.Member.(string)
		if !ok {
			continue
		}

		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}

		timestamp := time.Unix(0, int64(item.Score)*int64(time.Millisecond))

		history = append(history, models.HistoryPoint{
			Value:     val,
			Timestamp: timestamp,
		})
	}

	return history, nil
}

// GetAlerts obtém os alertas mais recentes, do mais novo para o mais antigo
func (s *Service) GetAlerts(limit int) ([]models.AlertEvent, error) {
	s.mutex.RLock()
	if !s.connected || !s.config.Enabled {
		s.mutex.RUnlock()
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}
	s.mutex.RUnlock()

	if limit <= 0 || limit > maxAlertHistorySize {
		limit = 50
	}

	alertsKey := fmt.Sprintf("%s:alerts", s.prefix)
	dataCmd := s.client.ZRevRange(s.ctx, alertsKey, 0, int64(limit-1))
	if dataCmd.Err() != nil {
		return nil, fmt.Errorf("erro ao obter alertas: %w", dataCmd.Err())
	}

	entries := dataCmd.Val()
	alerts := make([]models.AlertEvent, 0, len(entries))

	for _, entry := range entries {
		var event models.AlertEvent
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			continue
		}
		alerts = append(alerts, event)
	}

	return alerts, nil
}

// RecentSamples obtém as n amostras mais recentes, em ordem cronológica,
// para alimentar a geração de relatórios
func (s *Service) RecentSamples(n int) ([]models.SamplePoint, error) {
	s.mutex.RLock()
	if !s.connected || !s.config.Enabled {
		s.mutex.RUnlock()
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}
	s.mutex.RUnlock()

	if n <= 0 || n > maxSampleWindowSize {
		n = maxSampleWindowSize
	}

	samplesKey := fmt.Sprintf("%s:samples", s.prefix)
	dataCmd := s.client.ZRange(s.ctx, samplesKey, int64(-n), -1)
	if dataCmd.Err() != nil {
		return nil, fmt.Errorf("erro ao obter amostras: %w", dataCmd.Err())
	}

	entries := dataCmd.Val()
	samples := make([]models.SamplePoint, 0, len(entries))

	for _, entry := range entries {
		var sample models.SamplePoint
		if err := json.Unmarshal([]byte(entry), &sample); err != nil {
			continue
		}
		samples = append(samples, sample)
	}

	return samples, nil
}

// Shutdown encerra graciosamente o serviço Redis
func (s *Service) Shutdown() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logger.Errorf("Erro ao fechar conexão com Redis: %v", err)
		} else {
			logger.Info("Conexão com o Redis fechada")
		}
	}

	s.connected = false
}
