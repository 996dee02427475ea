package models

import "time"

// WebSocketMessage representa a estrutura base de todas as mensagens WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`            // Tipo da mensagem: "frame", "alert", "status", "motion", etc.
	Timestamp time.Time   `json:"timestamp"`       // Timestamp da mensagem
	Data      interface{} `json:"data,omitempty"`  // Dados adicionais específicos do tipo
	Error     string      `json:"error,omitempty"` // Mensagem de erro, se houver
}

// FrameMessage é a mensagem periódica com o registro plano de sensores + GPI
type FrameMessage struct {
	WebSocketMessage
	Record Record `json:"record"`
}

// AlertMessage é a mensagem enviada quando o alerta de gás crítico muda
type AlertMessage struct {
	WebSocketMessage
	Alert AlertEvent `json:"alert"`
}

// MotionMessage é a mensagem enviada quando a direção efetiva muda
type MotionMessage struct {
	WebSocketMessage
	Event MotionEvent `json:"event"`
}

// StatusMessage é uma mensagem específica para atualizações de status
type StatusMessage struct {
	WebSocketMessage
	Status     string      `json:"status"`
	Mode       ControlMode `json:"mode"`
	LastError  string      `json:"lastError,omitempty"`
	ErrorCount int         `json:"errorCount,omitempty"`
}

// HistoryMessage é uma mensagem específica para histórico de um canal
type HistoryMessage struct {
	WebSocketMessage
	Channel string         `json:"channel"`
	History []HistoryPoint `json:"history"`
}

// CommandMessage é uma mensagem de comando do cliente para o servidor
type CommandMessage struct {
	Type   string      `json:"type"`             // "move", "set_mode", "get_history", "get_status", "ping"
	Params interface{} `json:"params,omitempty"` // Parâmetros adicionais
	ID     string      `json:"id,omitempty"`     // ID opcional para correlacionar solicitações/respostas
}

// ClientCommand representa um comando encaminhado de um cliente para o hub
type ClientCommand struct {
	Command  string      `json:"command"`
	Params   interface{} `json:"params,omitempty"`
	ClientID string      `json:"-"` // Usado internamente, não enviado no JSON
}

// AckMessage confirma ou rejeita um comando de controle enviado pelo cliente
type AckMessage struct {
	WebSocketMessage
	Command  string `json:"command"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	ID       string `json:"id,omitempty"`
}

// PingMessage representa um ping enviado pelo cliente
type PingMessage struct {
	WebSocketMessage
	Time int64 `json:"time"` // Timestamp em milissegundos
}

// PongMessage representa um pong enviado pelo servidor
type PongMessage struct {
	WebSocketMessage
	Time       int64 `json:"time"`       // Timestamp original do ping
	ServerTime int64 `json:"serverTime"` // Timestamp do servidor em milissegundos
}
