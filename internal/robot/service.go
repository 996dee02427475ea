package robot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/control"
	"pranbot_go/internal/gpi"
	"pranbot_go/internal/models"
	"pranbot_go/internal/redis"
	"pranbot_go/internal/websocket"
	"pranbot_go/pkg/logger"
)

// TelemetryHandler é um tipo de função para receber cada registro produzido
// pelo ciclo de controle (usado pelo espelhamento em PLC, por exemplo)
type TelemetryHandler func(record models.Record)

// MotionHandler é um tipo de função para receber mudanças na direção efetiva
type MotionHandler func(event models.MotionEvent)

// intent representa uma mudança pedida pela camada de rede. As mudanças são
// enfileiradas e aplicadas de forma atômica no início do próximo ciclo, de
// modo que a máquina de estados nunca observe um estado parcial.
type intent struct {
	setMode *models.ControlMode
	manual  *models.MotionCommand
	reply   chan error
}

// Service executa o ciclo de controle do robô: leitura dos sensores, cálculo
// do índice de gás, avaliação da máquina de estados e atuação nos motores
type Service struct {
	link         Link
	config       config.RobotConfig
	controlCfg   config.ControlConfig
	redisService *redis.Service
	wsHub        *websocket.Hub

	machine   *control.Machine
	state     *control.State
	baselines gpi.Baselines

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mutex   sync.RWMutex

	intents chan intent

	status            models.RobotStatus
	consecutiveErrors int
	lastErrorMsg      string
	lastRecord        *models.Record
	lastSent          models.MotionCommand
	hasSent           bool
	actuatorDown      bool

	telemetryHandlers []TelemetryHandler
	motionHandlers    []MotionHandler
	handlersLock      sync.RWMutex

	// Estatísticas de desempenho
	stats struct {
		totalCycles      int64
		cycleDurations   []time.Duration
		cycleStartTime   time.Time
		avgCycleDuration time.Duration
	}
	statsLock sync.Mutex

	// Flags de otimização
	asyncRedis     bool // Flag para envio assíncrono para o Redis
	throttleOutput bool // Flag para limitar saída de log
}

// NewService cria o serviço de controle do robô
func NewService(cfg config.RobotConfig, controlCfg config.ControlConfig, link Link, redisService *redis.Service, wsHub *websocket.Hub) (*Service, error) {
	if link == nil {
		return nil, fmt.Errorf("ligação com o robô não pode ser nula")
	}

	ctx, cancel := context.WithCancel(context.Background())

	service := &Service{
		link:           link,
		config:         cfg,
		controlCfg:     controlCfg,
		redisService:   redisService,
		wsHub:          wsHub,
		machine:        control.NewMachine(controlCfg, cfg.SampleRate),
		state:          control.NewState(),
		baselines:      gpi.BaselinesFromConfig(controlCfg),
		ctx:            ctx,
		cancel:         cancel,
		running:        false,
		intents:        make(chan intent, 32),
		asyncRedis:     true, // Ativar por padrão
		throttleOutput: true, // Limitar output de logs por padrão
		status: models.RobotStatus{
			Status:    "initializing",
			Mode:      models.ModeManual,
			Timestamp: time.Now(),
		},
	}

	service.stats.cycleDurations = make([]time.Duration, 0, 100)

	return service, nil
}

// Start inicia o ciclo de controle
func (s *Service) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	logger.Infof("Iniciando ciclo de controle do robô (transporte: %s, período: %v)",
		s.config.Transport, s.config.SampleRate)

	// Garantir que o robô começa parado e em modo manual
	if err := s.link.Drive(models.Stop()); err != nil {
		logger.Warnf("Erro ao enviar parada inicial ao robô: %v. Tentando novamente no ciclo de controle.", err)
	}
	if err := s.link.SetAuto(false); err != nil {
		logger.Warnf("Erro ao definir modo inicial do robô: %v", err)
	}

	go s.controlLoop()
	go s.monitorStats()

	s.running = true
	return nil
}

// Stop para o ciclo de controle e manda o robô parar
func (s *Service) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	logger.Info("Parando ciclo de controle do robô")
	s.cancel()

	// Última tentativa de deixar o robô parado antes de encerrar
	if err := s.link.Drive(models.Stop()); err != nil {
		logger.Warnf("Erro ao enviar parada final ao robô: %v", err)
	}
	s.link.Close()
	s.running = false
}

// IsRunning verifica se o serviço está em execução
func (s *Service) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// RegisterTelemetryHandler registra uma função para receber cada registro
func (s *Service) RegisterTelemetryHandler(handler TelemetryHandler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.telemetryHandlers = append(s.telemetryHandlers, handler)
}

// RegisterMotionHandler registra uma função para receber mudanças de direção
func (s *Service) RegisterMotionHandler(handler MotionHandler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.motionHandlers = append(s.motionHandlers, handler)
}

// GetStatus retorna o status atual da comunicação com o robô
func (s *Service) GetStatus() models.RobotStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.status
}

// CurrentRecord retorna o último registro produzido pelo ciclo de controle
func (s *Service) CurrentRecord() *models.Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.lastRecord == nil {
		return nil
	}
	recordCopy := *s.lastRecord
	return &recordCopy
}

// Mode retorna o modo de controle vigente
func (s *Service) Mode() models.ControlMode {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.status.Mode
}

// SetMode pede a troca de modo de controle. A troca é aplicada no início do
// próximo ciclo; a chamada bloqueia até a aplicação ou timeout.
func (s *Service) SetMode(mode models.ControlMode) error {
	if mode != models.ModeManual && mode != models.ModeAutonomous {
		return fmt.Errorf("modo de controle inválido: %q", mode)
	}
	return s.postIntent(intent{setMode: &mode, reply: make(chan error, 1)})
}

// ManualCommand pede um comando manual de movimento. Em modo autônomo o
// comando é rejeitado com control.ErrAutonomousActive. Velocidade omitida
// (zero) assume a velocidade manual fixa da configuração: o protocolo do
// firmware aceita só a letra de direção, e forward com PWM 0 não anda.
func (s *Service) ManualCommand(cmd models.MotionCommand) error {
	if cmd.Speed == 0 && cmd.Direction != models.DirStop {
		cmd.Speed = s.controlCfg.ManualSpeed
		if cmd.Speed <= 0 {
			cmd.Speed = s.controlCfg.CruiseSpeed
		}
	}
	return s.postIntent(intent{manual: &cmd, reply: make(chan error, 1)})
}

// SetAsyncRedis configura o envio assíncrono para o Redis
func (s *Service) SetAsyncRedis(async bool) {
	s.asyncRedis = async
}

// SetThrottleOutput configura a limitação de saída de log
func (s *Service) SetThrottleOutput(throttle bool) {
	s.throttleOutput = throttle
}

// postIntent enfileira uma mudança e espera a resposta do ciclo de controle
func (s *Service) postIntent(it intent) error {
	select {
	case s.intents <- it:
	case <-time.After(2 * s.config.SampleRate):
		return fmt.Errorf("ciclo de controle não aceitou o comando a tempo")
	case <-s.ctx.Done():
		return fmt.Errorf("serviço de controle encerrado")
	}

	select {
	case err := <-it.reply:
		return err
	case <-time.After(10 * s.config.SampleRate):
		return fmt.Errorf("timeout aguardando aplicação do comando")
	case <-s.ctx.Done():
		return fmt.Errorf("serviço de controle encerrado")
	}
}

// controlLoop executa o loop principal em período fixo
func (s *Service) controlLoop() {
	ticker := time.NewTicker(s.config.SampleRate)
	defer ticker.Stop()

	cycleCounter := 0

	for {
		select {
		case <-s.ctx.Done():
			s.drainIntentsOnShutdown()
			return
		case <-ticker.C:
			s.statsLock.Lock()
			s.stats.cycleStartTime = time.Now()
			s.statsLock.Unlock()

			s.processTick()

			cycleDuration := time.Since(s.stats.cycleStartTime)
			s.statsLock.Lock()
			atomic.AddInt64(&s.stats.totalCycles, 1)
			s.stats.cycleDurations = append(s.stats.cycleDurations, cycleDuration)
			if len(s.stats.cycleDurations) > 100 {
				// Manter apenas as últimas 100 amostras
				s.stats.cycleDurations = s.stats.cycleDurations[1:]
			}
			s.statsLock.Unlock()

			cycleCounter++
			if cycleCounter%100 == 0 && !s.throttleOutput {
				s.logPerformanceStats()
				cycleCounter = 0
			}
		}
	}
}

// processTick processa um ciclo completo de controle
func (s *Service) processTick() {
	// 1. Aplicar mudanças pendentes antes de qualquer decisão
	s.applyIntents()

	// 2. Ler os sensores. Em caso de falha o ciclo continua com um frame
	// seguro (gases zerados, sem obstáculo) para manter o robô parável.
	frame, err := s.link.ReadFrame()
	readFailed := err != nil
	if readFailed {
		s.handleConnectionError(err)
		frame = failSafeFrame()
	} else if s.consecutiveErrors > 0 {
		logger.Infof("Comunicação com o robô restaurada após %d tentativas", s.consecutiveErrors)
		s.consecutiveErrors = 0
		s.updateStatus("ok", "")
	}

	// 3. Índice composto de gás
	index := gpi.Compute(frame, s.baselines)

	// 4. Máquina de estados de controle
	decision := s.machine.Evaluate(s.state, frame)

	// 5. Atuação nos motores (apenas quando o comando muda)
	s.actuate(decision.Command)

	// 6. Registro consolidado do ciclo
	record := models.NewRecord(frame, index, s.state.Mode(), decision.Alert)
	s.updateRecord(record, readFailed)

	// PRIORIDADE 1: Enviar para o WebSocket imediatamente
	if s.wsHub != nil {
		s.wsHub.BroadcastRecord(record)

		if decision.Event != nil {
			s.wsHub.BroadcastMotion(*decision.Event)
		}
	}
	s.publishAlertTransition(decision, frame, index)

	// PRIORIDADE 2: Notificar handlers de telemetria
	s.notifyTelemetryHandlers(record)
	if decision.Event != nil {
		s.notifyMotionHandlers(*decision.Event)
	}

	// PRIORIDADE 3: Salvar no Redis (potencialmente assíncrono)
	if s.redisService != nil && s.redisService.IsConnected() && !readFailed {
		if s.asyncRedis {
			// Usar goroutine para não bloquear o ciclo de controle
			go func(r models.Record) {
				if err := s.redisService.WriteSample(r); err != nil {
					logger.Errorf("Erro ao escrever amostra no Redis: %v", err)
				}
			}(record)
		} else {
			if err := s.redisService.WriteSample(record); err != nil {
				logger.Errorf("Erro ao escrever amostra no Redis: %v", err)
			}
		}
	}
}

// applyIntents drena a fila de mudanças pendentes. Cada mudança é aplicada
// por inteiro ou rejeitada; nunca parcialmente.
func (s *Service) applyIntents() {
	for {
		select {
		case it := <-s.intents:
			it.reply <- s.applyIntent(it)
		default:
			return
		}
	}
}

func (s *Service) applyIntent(it intent) error {
	switch {
	case it.setMode != nil:
		mode := *it.setMode
		if !s.state.SetMode(mode) {
			return nil // já estava no modo pedido
		}
		logger.Infof("Modo de controle alterado para %s", mode)
		if err := s.link.SetAuto(mode == models.ModeAutonomous); err != nil {
			logger.Errorf("Erro ao propagar modo ao robô: %v", err)
		}
		// A troca para manual força parada imediata
		if mode == models.ModeManual {
			s.actuate(models.Stop())
		}
		s.mutex.Lock()
		s.status.Mode = mode
		s.mutex.Unlock()
		if s.wsHub != nil {
			s.wsHub.BroadcastStatus(s.GetStatus())
		}
		return nil

	case it.manual != nil:
		// O comando é aceito mesmo com alerta ativo: a arbitragem de
		// segurança segue impondo parada a cada ciclo, e o comando retoma
		// quando o gás volta ao normal
		return s.state.SetManual(*it.manual)
	}
	return nil
}

// actuate envia o comando de movimento quando ele difere do último enviado
func (s *Service) actuate(cmd models.MotionCommand) {
	if s.hasSent && cmd == s.lastSent && !s.actuatorDown {
		return
	}

	if err := s.link.Drive(cmd); err != nil {
		if !s.actuatorDown {
			logger.Errorf("Erro ao atuar nos motores: %v. Seguindo em modo somente leitura", err)
			s.actuatorDown = true
			s.updateStatus("atuacao_indisponivel", err.Error())
		}
		return
	}

	if s.actuatorDown {
		logger.Info("Atuação nos motores restaurada")
		s.actuatorDown = false
		s.updateStatus("ok", "")
	}
	s.lastSent = cmd
	s.hasSent = true
}

// publishAlertTransition difunde entradas e saídas do estado de alerta
func (s *Service) publishAlertTransition(decision control.Decision, frame models.SensorFrame, index models.GasIndex) {
	s.mutex.Lock()
	previous := s.status.AlertActive
	changed := previous != decision.Alert
	s.status.AlertActive = decision.Alert
	s.mutex.Unlock()

	if !changed {
		return
	}

	event := models.AlertEvent{
		Active:    decision.Alert,
		Smoke:     frame.Smoke,
		CO:        frame.CO,
		GPI:       index.Value,
		Timestamp: frame.Timestamp,
	}

	if decision.Alert {
		logger.Warnf("ALERTA: gás em nível crítico (fumaça=%d, CO=%d, GPI=%d) - robô parado",
			frame.Smoke, frame.CO, index.Value)
	} else {
		logger.Info("Alerta de gás crítico encerrado")
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastAlert(event)
	}
	if s.redisService != nil && s.redisService.IsConnected() {
		go func() {
			if err := s.redisService.WriteAlert(event); err != nil {
				logger.Errorf("Erro ao registrar alerta no Redis: %v", err)
			}
		}()
	}
}

// handleConnectionError trata erros de leitura dos sensores do robô
func (s *Service) handleConnectionError(err error) {
	s.consecutiveErrors++
	s.lastErrorMsg = err.Error()

	if s.consecutiveErrors <= s.config.MaxConsecutiveErrors || !s.throttleOutput {
		logger.Errorf("Erro ao ler sensores do robô: %v. Tentativa %d",
			err, s.consecutiveErrors)
	}

	// Se exceder o número máximo de tentativas, atualizar status
	if s.consecutiveErrors > s.config.MaxConsecutiveErrors {
		s.updateStatus("falha_comunicacao", s.lastErrorMsg)

		// Esperar antes da próxima tentativa
		time.Sleep(s.config.ReconnectDelay)
	}
}

// updateStatus atualiza o status da comunicação com o robô
func (s *Service) updateStatus(status string, errorMsg string) {
	s.mutex.Lock()
	mode := s.status.Mode
	alert := s.status.AlertActive
	s.status = models.RobotStatus{
		Status:      status,
		Mode:        mode,
		AlertActive: alert,
		Timestamp:   time.Now(),
		LastError:   errorMsg,
		ErrorCount:  s.consecutiveErrors,
	}
	statusCopy := s.status
	s.mutex.Unlock()

	if s.redisService != nil && s.redisService.IsConnected() {
		s.redisService.WriteStatus(statusCopy)
	}
	if s.wsHub != nil {
		s.wsHub.BroadcastStatus(statusCopy)
	}

	if status != "ok" {
		logger.Warnf("Status do robô alterado para %s: %s", status, errorMsg)
	} else if s.consecutiveErrors > 0 {
		logger.Info("Status do robô restaurado para 'ok'")
	}
}

// updateRecord guarda o último registro do ciclo
func (s *Service) updateRecord(record models.Record, readFailed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if readFailed {
		// Não substituir o último registro real por um frame seguro
		return
	}
	recordCopy := record
	s.lastRecord = &recordCopy
}

// notifyTelemetryHandlers notifica todos os handlers registrados
func (s *Service) notifyTelemetryHandlers(record models.Record) {
	s.handlersLock.RLock()
	handlers := s.telemetryHandlers
	s.handlersLock.RUnlock()

	for _, handler := range handlers {
		handler(record) // Chamada síncrona
	}
}

// notifyMotionHandlers notifica as mudanças de direção aos handlers registrados
func (s *Service) notifyMotionHandlers(event models.MotionEvent) {
	s.handlersLock.RLock()
	handlers := s.motionHandlers
	s.handlersLock.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// drainIntentsOnShutdown responde às mudanças pendentes após o encerramento
func (s *Service) drainIntentsOnShutdown() {
	for {
		select {
		case it := <-s.intents:
			it.reply <- fmt.Errorf("serviço de controle encerrado")
		default:
			return
		}
	}
}

// monitorStats monitora estatísticas de desempenho
func (s *Service) monitorStats() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.logPerformanceStats()
		}
	}
}

// logPerformanceStats registra estatísticas de desempenho
func (s *Service) logPerformanceStats() {
	s.statsLock.Lock()
	defer s.statsLock.Unlock()

	totalCycles := s.stats.totalCycles

	var avgDuration time.Duration
	if len(s.stats.cycleDurations) > 0 {
		var sum time.Duration
		for _, d := range s.stats.cycleDurations {
			sum += d
		}
		avgDuration = sum / time.Duration(len(s.stats.cycleDurations))
		s.stats.avgCycleDuration = avgDuration
	}

	logger.Infof("Estatísticas de desempenho: %d ciclos totais, duração média: %v",
		totalCycles, avgDuration)
}
