// Package plc espelha o estado do robô em um bloco de dados de um PLC S7 da
// planta, permitindo que o sistema de supervisão industrial acompanhe o
// índice de gás e acione seus próprios intertravamentos.
package plc

import (
	"context"
	"sync"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
	"pranbot_go/pkg/logger"
	"pranbot_go/pkg/utils"
)

// Layout do bloco de dados espelhado no PLC:
//
//	0  INT  GPI
//	2  INT  código da faixa (0=good .. 4=hazardous)
//	4  INT  código da direção (0=stop, 1=forward, 2=backward, 3=left, 4=right)
//	6  INT  velocidade (0-255)
//	8  BYTE flags (bit0=alerta, bit1=modo autônomo)
const stateBlockSize = 9

// Service espelha os registros de telemetria para o PLC em taxa própria
type Service struct {
	client     *S7Client
	config     config.PLCConfig
	ctx        context.Context
	cancel     context.CancelFunc
	lastRecord *models.Record
	direction  models.Direction
	speed      int
	subscribe  chan models.Record
	motion     chan models.MotionEvent
	mutex      sync.RWMutex
	running    bool
}

// NewService cria um novo serviço de espelhamento em PLC
func NewService(cfg config.PLCConfig) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		client:    NewS7Client(cfg),
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		direction: models.DirStop,
		subscribe: make(chan models.Record, 10),
		motion:    make(chan models.MotionEvent, 10),
		running:   false,
	}
}

// Start inicia o espelhamento para o PLC
func (s *Service) Start() error {
	if !s.config.Enabled {
		logger.Info("Serviço PLC desabilitado por configuração")
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	if err := s.client.Connect(); err != nil {
		return err
	}

	go s.runUpdateLoop()

	s.running = true
	logger.Info("Serviço PLC iniciado")
	return nil
}

// Stop para o espelhamento para o PLC
func (s *Service) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.client.Disconnect()
	s.running = false
	logger.Info("Serviço PLC parado")
}

// IsRunning verifica se o serviço está em execução
func (s *Service) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// UpdateRecord recebe o registro de um ciclo de controle para espelhamento
func (s *Service) UpdateRecord(record models.Record) {
	if !s.config.Enabled || !s.IsRunning() {
		return
	}

	select {
	case s.subscribe <- record:
		// Enviado com sucesso
	default:
		// Canal cheio, descartar atualização
		logger.Warn("Canal de registros para PLC está cheio, descartando atualização")
	}
}

// UpdateMotion recebe as mudanças na direção efetiva do robô
func (s *Service) UpdateMotion(event models.MotionEvent) {
	if !s.config.Enabled || !s.IsRunning() {
		return
	}

	select {
	case s.motion <- event:
	default:
		logger.Warn("Canal de movimento para PLC está cheio, descartando atualização")
	}
}

// runUpdateLoop executa o loop de atualização contínua para o PLC
func (s *Service) runUpdateLoop() {
	ticker := time.NewTicker(s.config.UpdateRate)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case record := <-s.subscribe:
			s.mutex.Lock()
			recordCopy := record
			s.lastRecord = &recordCopy
			s.mutex.Unlock()

		case event := <-s.motion:
			s.mutex.Lock()
			s.direction = event.To
			s.speed = event.Speed
			s.mutex.Unlock()

		case <-ticker.C:
			s.mutex.RLock()
			record := s.lastRecord
			direction := s.direction
			speed := s.speed
			s.mutex.RUnlock()

			if record != nil {
				s.writeState(*record, direction, speed)
			}
		}
	}
}

// writeState escreve o estado consolidado no bloco de dados do PLC
func (s *Service) writeState(record models.Record, direction models.Direction, speed int) {
	if !s.client.IsConnected() {
		if err := s.client.Connect(); err != nil {
			logger.Errorf("Falha ao reconectar ao PLC: %v", err)
			return
		}
	}

	data := packState(record, direction, speed)
	if err := s.client.WriteDataBlock(s.config.DBNumber, 0, data); err != nil {
		logger.Errorf("Erro ao espelhar estado no PLC: %v", err)
	}
}

// packState serializa o estado no layout do bloco de dados
func packState(record models.Record, direction models.Direction, speed int) []byte {
	data := make([]byte, stateBlockSize)

	copy(data[0:2], utils.Int16ToBytes(int16(record.GPI)))
	copy(data[2:4], utils.Int16ToBytes(record.Tier.Code()))
	copy(data[4:6], utils.Int16ToBytes(direction.Code()))
	copy(data[6:8], utils.Int16ToBytes(int16(speed)))

	var flags byte
	if record.Alert {
		flags |= 1 << 0
	}
	if record.Mode == models.ModeAutonomous {
		flags |= 1 << 1
	}
	data[8] = flags

	return data
}

// Shutdown encerra graciosamente o serviço
func (s *Service) Shutdown() {
	s.Stop()
}
