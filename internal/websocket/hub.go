package websocket

import (
	"context"
	"sync"
	"time"

	"pranbot_go/internal/models"
	"pranbot_go/pkg/logger"
)

// CommandSink recebe os comandos de controle vindos dos clientes WebSocket.
// O serviço de controle do robô implementa esta interface.
type CommandSink interface {
	ManualCommand(cmd models.MotionCommand) error
	SetMode(mode models.ControlMode) error
	GetStatus() models.RobotStatus
	CurrentRecord() *models.Record
}

// HistoryProvider fornece o histórico persistido de um canal de sensor
type HistoryProvider interface {
	GetHistory(channel string, limit int) ([]models.HistoryPoint, error)
}

// Hub gerencia todas as conexões WebSocket e distribuição de mensagens
type Hub struct {
	// Clientes registrados
	clients map[*Client]bool

	// Canal para registrar clientes
	register chan *Client

	// Canal para desregistrar clientes
	unregister chan *Client

	// Canal para mensagens de broadcast
	broadcast chan []byte

	// Comando recebido dos clientes
	commands chan models.ClientCommand

	// Mutex para operações concorrentes no mapa de clientes
	mu sync.RWMutex

	// Colaboradores ligados na composição do servidor
	sink    CommandSink
	history HistoryProvider

	// Último registro enviado (para limitar a taxa de broadcast)
	lastRecord     *models.Record
	lastRecordTime time.Time
	recordLock     sync.Mutex

	// Estatísticas
	stats struct {
		totalMessages      int64
		totalClients       int64
		messagesPerSecond  float64
		lastStatsReset     time.Time
		messagesSinceReset int64
	}
	statsLock sync.Mutex

	// Sinal para encerramento do hub
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub cria uma nova instância do Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256), // Buffer aumentado para evitar bloqueios
		commands:   make(chan models.ClientCommand, 100),
		ctx:        ctx,
		cancel:     cancel,
	}

	h.stats.lastStatsReset = time.Now()

	return h
}

// SetCommandSink liga o destino dos comandos de controle dos clientes
func (h *Hub) SetCommandSink(sink CommandSink) {
	h.sink = sink
}

// SetHistoryProvider liga a fonte de histórico para solicitações dos clientes
func (h *Hub) SetHistoryProvider(history HistoryProvider) {
	h.history = history
}

// Run inicia o loop principal do hub para gerenciar clientes e mensagens
func (h *Hub) Run() {
	logger.Info("Iniciando WebSocket Hub")

	// Ticker para estatísticas periódicas
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	// Ticker para manter conexões ativas
	keepaliveTicker := time.NewTicker(5 * time.Second)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			logger.Info("Encerrando WebSocket Hub")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()

			logger.Infof("Novo cliente WebSocket conectado. ID: %s. Total: %d", client.id, clientCount)

			h.statsLock.Lock()
			h.stats.totalClients++
			h.statsLock.Unlock()

			// Enviar dados iniciais para o cliente
			go h.sendInitialDataToClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			clientCount := len(h.clients)

			h.statsLock.Lock()
			h.stats.totalMessages++
			h.stats.messagesSinceReset++
			h.statsLock.Unlock()

			if clientCount == 0 {
				h.mu.RUnlock()
				continue // Nenhum cliente conectado, pular broadcast
			}

			deadClients := make([]*Client, 0, 4)

			for client := range h.clients {
				select {
				case client.send <- message:
					// Mensagem enviada com sucesso
				default:
					// Canal do cliente está cheio, marcar para desconexão
					deadClients = append(deadClients, client)
				}
			}
			h.mu.RUnlock()

			// Remover clientes mortos diretamente: enviar para h.unregister
			// daqui travaria o hub, que é o único leitor desse canal
			for _, client := range deadClients {
				h.removeClient(client)
			}

		case cmd := <-h.commands:
			go h.handleClientCommand(cmd)

		case <-statsTicker.C:
			h.statsLock.Lock()
			elapsed := time.Since(h.stats.lastStatsReset).Seconds()
			if elapsed > 0 {
				h.stats.messagesPerSecond = float64(h.stats.messagesSinceReset) / elapsed
			}
			h.stats.messagesSinceReset = 0
			h.stats.lastStatsReset = time.Now()

			mps := h.stats.messagesPerSecond
			total := h.stats.totalMessages
			h.statsLock.Unlock()

			h.mu.RLock()
			clientCount := len(h.clients)
			h.mu.RUnlock()

			logger.Infof("Estatísticas WebSocket: %d clientes, %.2f msgs/seg, total: %d mensagens",
				clientCount, mps, total)

		case <-keepaliveTicker.C:
			h.sendPingToAllClients()
		}
	}
}

// BroadcastRecord envia o registro do ciclo para todos os clientes. A taxa é
// limitada a uma mensagem a cada 50ms, exceto quando a faixa do índice ou o
// estado de alerta mudam, que são sempre enviados imediatamente.
func (h *Hub) BroadcastRecord(record models.Record) {
	h.recordLock.Lock()

	shouldSend := true
	if h.lastRecord != nil {
		timeSinceLastSend := time.Since(h.lastRecordTime)

		if timeSinceLastSend < 50*time.Millisecond {
			tierChanged := record.Tier != h.lastRecord.Tier
			alertChanged := record.Alert != h.lastRecord.Alert
			if !tierChanged && !alertChanged {
				shouldSend = false
			}
		}
	}

	if shouldSend {
		recordCopy := record
		h.lastRecord = &recordCopy
		h.lastRecordTime = time.Now()
	}
	h.recordLock.Unlock()

	if !shouldSend {
		return
	}

	message := models.FrameMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "frame",
			Timestamp: time.Now(),
		},
		Record: record,
	}

	if jsonMessage, err := serializeMessage(message); err == nil {
		h.broadcast <- jsonMessage
	} else {
		logger.Errorf("Erro ao serializar mensagem de registro: %v", err)
	}
}

// BroadcastAlert envia a transição do alerta de gás crítico para todos os clientes
func (h *Hub) BroadcastAlert(alert models.AlertEvent) {
	message := models.AlertMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "alert",
			Timestamp: time.Now(),
		},
		Alert: alert,
	}

	if jsonMessage, err := serializeMessage(message); err == nil {
		h.broadcast <- jsonMessage
	} else {
		logger.Errorf("Erro ao serializar mensagem de alerta: %v", err)
	}
}

// BroadcastMotion envia mudanças na direção efetiva para todos os clientes
func (h *Hub) BroadcastMotion(event models.MotionEvent) {
	message := models.MotionMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "motion",
			Timestamp: time.Now(),
		},
		Event: event,
	}

	if jsonMessage, err := serializeMessage(message); err == nil {
		h.broadcast <- jsonMessage
	} else {
		logger.Errorf("Erro ao serializar mensagem de movimento: %v", err)
	}
}

// BroadcastStatus envia atualização de status para todos os clientes
func (h *Hub) BroadcastStatus(status models.RobotStatus) {
	message := models.StatusMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "status",
			Timestamp: time.Now(),
		},
		Status:     status.Status,
		Mode:       status.Mode,
		LastError:  status.LastError,
		ErrorCount: status.ErrorCount,
	}

	if jsonMessage, err := serializeMessage(message); err == nil {
		h.broadcast <- jsonMessage
	} else {
		logger.Errorf("Erro ao serializar mensagem de status: %v", err)
	}
}

// handleClientCommand processa comandos recebidos dos clientes
func (h *Hub) handleClientCommand(cmd models.ClientCommand) {
	logger.Infof("Comando recebido do cliente %s: %s", cmd.ClientID, cmd.Command)

	switch cmd.Command {
	case "move":
		h.handleMove(cmd)
	case "set_mode":
		h.handleSetMode(cmd)
	case "get_history":
		h.handleGetHistory(cmd)
	case "get_status":
		h.sendCurrentStatus(cmd.ClientID)
	case "ping":
		h.sendPong(cmd.ClientID, cmd.Params)
	default:
		logger.Warnf("Comando desconhecido: %s", cmd.Command)
	}
}

// handleMove encaminha um comando manual de movimento ao serviço de controle
func (h *Hub) handleMove(cmd models.ClientCommand) {
	if h.sink == nil {
		h.sendAck(cmd.ClientID, "move", false, "controle indisponível", requestID(cmd.Params))
		return
	}

	letter := ""
	speed := 0
	if params, ok := cmd.Params.(map[string]interface{}); ok {
		if d, ok := params["d"].(string); ok {
			letter = d
		}
		if s, ok := params["s"].(float64); ok {
			speed = int(s)
		}
	}

	direction, err := models.ParseDirection(letter)
	if err != nil {
		// Direção desconhecida resolve para parada, mas o cliente é avisado
		logger.Warnf("Direção desconhecida %q do cliente %s, aplicando parada", letter, cmd.ClientID)
	}

	if err := h.sink.ManualCommand(models.MotionCommand{Direction: direction, Speed: speed}); err != nil {
		h.sendAck(cmd.ClientID, "move", false, err.Error(), requestID(cmd.Params))
		return
	}
	h.sendAck(cmd.ClientID, "move", true, "", requestID(cmd.Params))
}

// handleSetMode encaminha a troca de modo ao serviço de controle
func (h *Hub) handleSetMode(cmd models.ClientCommand) {
	if h.sink == nil {
		h.sendAck(cmd.ClientID, "set_mode", false, "controle indisponível", requestID(cmd.Params))
		return
	}

	mode := ""
	if params, ok := cmd.Params.(map[string]interface{}); ok {
		if m, ok := params["mode"].(string); ok {
			mode = m
		}
	}

	if err := h.sink.SetMode(models.ControlMode(mode)); err != nil {
		h.sendAck(cmd.ClientID, "set_mode", false, err.Error(), requestID(cmd.Params))
		return
	}
	h.sendAck(cmd.ClientID, "set_mode", true, "", requestID(cmd.Params))
}

// handleGetHistory envia o histórico de um canal para o cliente solicitante
func (h *Hub) handleGetHistory(cmd models.ClientCommand) {
	client := h.getClientByID(cmd.ClientID)
	if client == nil || h.history == nil {
		return
	}

	channel := ""
	limit := 100
	if params, ok := cmd.Params.(map[string]interface{}); ok {
		if c, ok := params["channel"].(string); ok {
			channel = c
		}
		if l, ok := params["limit"].(float64); ok && int(l) > 0 {
			limit = int(l)
		}
	}

	points, err := h.history.GetHistory(channel, limit)
	if err != nil {
		logger.Errorf("Erro ao obter histórico do canal %s: %v", channel, err)
		return
	}

	message := models.HistoryMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "history",
			Timestamp: time.Now(),
		},
		Channel: channel,
		History: points,
	}

	if jsonMsg, err := serializeMessage(message); err == nil {
		client.send <- jsonMsg
	}
}

// sendCurrentStatus envia status atual para um cliente específico
func (h *Hub) sendCurrentStatus(clientID string) {
	client := h.getClientByID(clientID)
	if client == nil || h.sink == nil {
		return
	}

	status := h.sink.GetStatus()
	message := models.StatusMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "status",
			Timestamp: time.Now(),
		},
		Status:     status.Status,
		Mode:       status.Mode,
		LastError:  status.LastError,
		ErrorCount: status.ErrorCount,
	}

	if jsonMsg, err := serializeMessage(message); err == nil {
		client.send <- jsonMsg
	}
}

// sendAck confirma ou rejeita um comando de controle para o cliente solicitante
func (h *Hub) sendAck(clientID, command string, accepted bool, reason, id string) {
	client := h.getClientByID(clientID)
	if client == nil {
		return
	}

	ack := models.AckMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "ack",
			Timestamp: time.Now(),
		},
		Command:  command,
		Accepted: accepted,
		Reason:   reason,
		ID:       id,
	}

	if jsonMsg, err := serializeMessage(ack); err == nil {
		client.send <- jsonMsg
	}
}

// sendPong envia resposta de pong para um cliente específico
func (h *Hub) sendPong(clientID string, params interface{}) {
	client := h.getClientByID(clientID)
	if client == nil {
		return
	}

	var pingTime int64
	if paramsMap, ok := params.(map[string]interface{}); ok {
		if timeVal, ok := paramsMap["time"].(float64); ok {
			pingTime = int64(timeVal)
		}
	}

	pong := models.PongMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
		},
		Time:       pingTime,
		ServerTime: time.Now().UnixNano() / int64(time.Millisecond),
	}

	if jsonMsg, err := serializeMessage(pong); err == nil {
		client.send <- jsonMsg
	}
}

// sendInitialDataToClient envia dados iniciais para um novo cliente
func (h *Hub) sendInitialDataToClient(client *Client) {
	welcome := models.WebSocketMessage{
		Type:      "welcome",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message":  "Conectado ao servidor Pran-Bot Monitor",
			"clientId": client.id,
		},
	}

	if jsonMsg, err := serializeMessage(welcome); err == nil {
		client.send <- jsonMsg
	}

	// Estado atual do robô, se já houver ciclo rodando
	if h.sink != nil {
		if record := h.sink.CurrentRecord(); record != nil {
			message := models.FrameMessage{
				WebSocketMessage: models.WebSocketMessage{
					Type:      "frame",
					Timestamp: time.Now(),
				},
				Record: *record,
			}
			if jsonMsg, err := serializeMessage(message); err == nil {
				client.send <- jsonMsg
			}
		}

		status := h.sink.GetStatus()
		statusMsg := models.StatusMessage{
			WebSocketMessage: models.WebSocketMessage{
				Type:      "status",
				Timestamp: time.Now(),
			},
			Status:     status.Status,
			Mode:       status.Mode,
			LastError:  status.LastError,
			ErrorCount: status.ErrorCount,
		}
		if jsonMsg, err := serializeMessage(statusMsg); err == nil {
			client.send <- jsonMsg
		}
	}
}

// Shutdown encerra graciosamente o hub
func (h *Hub) Shutdown() {
	h.cancel()
	// Aguardar um pequeno tempo para processamento finalizar
	time.Sleep(100 * time.Millisecond)
}

// closeAllClients fecha todas as conexões dos clientes
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("Fechando todas as conexões de clientes WebSocket")
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// ClientCount retorna o número atual de clientes conectados
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// getClientByID retorna um cliente pelo seu ID
func (h *Hub) getClientByID(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.id == clientID {
			return client
		}
	}
	return nil
}

// sendPingToAllClients envia ping para todos os clientes
func (h *Hub) sendPingToAllClients() {
	ping := models.PingMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "ping",
			Timestamp: time.Now(),
		},
		Time: time.Now().UnixNano() / int64(time.Millisecond),
	}

	jsonMsg, err := serializeMessage(ping)
	if err != nil {
		return
	}

	// Escrita direta nos clientes: passar pelo canal de broadcast aqui
	// bloquearia o próprio loop do hub quando o canal estivesse cheio
	h.mu.RLock()
	deadClients := make([]*Client, 0, 4)
	for client := range h.clients {
		select {
		case client.send <- jsonMsg:
		default:
			deadClients = append(deadClients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range deadClients {
		h.removeClient(client)
	}
}

// removeClient desliga um cliente do hub e fecha seu canal de envio
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)

		logger.Infof("Cliente WebSocket desconectado. ID: %s. Total: %d", client.id, len(h.clients))
	}
	h.mu.Unlock()
}

// requestID extrai o id de correlação dos parâmetros de um comando
func requestID(params interface{}) string {
	if paramsMap, ok := params.(map[string]interface{}); ok {
		if id, ok := paramsMap["requestId"].(string); ok {
			return id
		}
	}
	return ""
}
