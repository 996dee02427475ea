package websocket

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pranbot_go/internal/models"
	"pranbot_go/pkg/logger"
)

const (
	// Tempo permitido para escrever uma mensagem para o peer.
	writeWait = 10 * time.Second

	// Tempo permitido para ler a próxima mensagem do peer.
	pongWait = 60 * time.Second

	// Envia pings ao peer com esse intervalo. Deve ser menor que pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Tamanho máximo da mensagem permitido.
	maxMessageSize = 64 * 1024 // 64KB

	// Tamanho do buffer de canal para mensagens de saída.
	sendBufferSize = 256
)

// Client representa uma conexão WebSocket individual
type Client struct {
	hub *Hub

	// Conexão WebSocket.
	conn *websocket.Conn

	// Buffer de mensagens para envio.
	send chan []byte

	// ID único do cliente
	id string

	// Informações do cliente (IP, agente, etc.)
	userAgent string
	ipAddress string

	// Timestamp da conexão
	connectedAt time.Time
}

// newClient cria um novo cliente WebSocket
func newClient(hub *Hub, conn *websocket.Conn, userAgent, ipAddress string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          uuid.New().String(),
		userAgent:   userAgent,
		ipAddress:   ipAddress,
		connectedAt: time.Now(),
	}
}

// readPump bombeia mensagens do WebSocket para o hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				logger.Errorf("Erro de leitura WebSocket: %v", err)
			}
			break
		}

		c.processIncomingMessage(message)
	}
}

// writePump bombeia mensagens do hub para a conexão WebSocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// O hub fechou o canal.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Adicionar mensagens na fila ao escritor atual
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processIncomingMessage processa uma mensagem recebida do cliente
func (c *Client) processIncomingMessage(message []byte) {
	var cmd models.CommandMessage
	decoder := json.NewDecoder(bytes.NewReader(message))
	decoder.DisallowUnknownFields() // Rejeitar campos desconhecidos

	if err := decoder.Decode(&cmd); err != nil {
		logger.Errorf("Erro ao decodificar mensagem do cliente %s: %v", c.id, err)
		c.sendErrorMessage("invalid_format", "Formato de mensagem inválido")
		return
	}

	// Processar com base no tipo de comando
	switch cmd.Type {
	case "ping":
		c.handlePing(cmd)
	case "move", "set_mode", "get_history", "get_status":
		// Encaminhar comando para o hub processar
		c.hub.commands <- models.ClientCommand{
			Command:  cmd.Type,
			Params:   withRequestID(cmd.Params, cmd.ID),
			ClientID: c.id,
		}
	default:
		logger.Warnf("Comando desconhecido do cliente %s: %s", c.id, cmd.Type)
		c.sendErrorMessage("unknown_command", "Comando desconhecido: "+cmd.Type)
	}
}

// handlePing processa comandos de ping e envia um pong
func (c *Client) handlePing(cmd models.CommandMessage) {
	var pingTime int64
	if params, ok := cmd.Params.(map[string]interface{}); ok {
		if timeVal, ok := params["time"].(float64); ok {
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
		c.send <- jsonMsg
	}
}

// sendErrorMessage envia uma mensagem de erro para o cliente
func (c *Client) sendErrorMessage(code string, message string) {
	errorMsg := models.WebSocketMessage{
		Type:      "error",
		Timestamp: time.Now(),
		Error:     message,
		Data:      map[string]string{"code": code},
	}

	if jsonMsg, err := serializeMessage(errorMsg); err == nil {
		c.send <- jsonMsg
	}
}

// withRequestID propaga o id de correlação junto com os parâmetros do comando
func withRequestID(params interface{}, id string) interface{} {
	if id == "" {
		return params
	}
	paramsMap, ok := params.(map[string]interface{})
	if !ok {
		paramsMap = map[string]interface{}{}
	}
	paramsMap["requestId"] = id
	return paramsMap
}

// serializeMessage serializa uma estrutura para JSON
func serializeMessage(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
