package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pranbot_go/internal/models"
	"pranbot_go/internal/redis"
	"pranbot_go/internal/report"
	"pranbot_go/internal/robot"
	"pranbot_go/pkg/logger"
)

// Handler contém os handlers HTTP para a API
type Handler struct {
	robotService  *robot.Service
	redisService  *redis.Service
	reportService *report.Service
}

// NewHandler cria um novo handler de API
func NewHandler(robotService *robot.Service, redisService *redis.Service, reportService *report.Service) *Handler {
	return &Handler{
		robotService:  robotService,
		redisService:  redisService,
		reportService: reportService,
	}
}

// GetStatus retorna o status atual da comunicação com o robô
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	status := h.robotService.GetStatus()

	response := map[string]interface{}{
		"status":    status.Status,
		"mode":      status.Mode,
		"alert":     status.AlertActive,
		"timestamp": status.Timestamp.UnixNano() / int64(time.Millisecond),
	}

	if status.LastError != "" {
		response["lastError"] = status.LastError
	}
	if status.ErrorCount > 0 {
		response["errorCount"] = status.ErrorCount
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// GetCurrentData retorna o último registro de sensores + GPI
func (h *Handler) GetCurrentData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	record := h.robotService.CurrentRecord()

	// Fallback para o registro persistido se o ciclo ainda não produziu nada
	if record == nil && h.redisService != nil && h.redisService.IsConnected() {
		if redisRecord, err := h.redisService.GetCurrentRecord(); err == nil {
			record = redisRecord
		}
	}

	if record == nil {
		h.respondWithError(w, http.StatusNotFound, "Nenhum dado disponível")
		return
	}

	h.respondWithJSON(w, http.StatusOK, record)
}

// Command aplica um comando manual de movimento (GET /api/cmd?d=F&s=200)
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	letter := r.URL.Query().Get("d")
	if letter == "" {
		h.respondWithError(w, http.StatusBadRequest, "Parâmetro 'd' (direção) obrigatório")
		return
	}

	direction, err := models.ParseDirection(letter)
	if err != nil {
		logger.Warnf("Direção desconhecida %q, aplicando parada", letter)
	}

	speed := 0
	if s := r.URL.Query().Get("s"); s != "" {
		speed, err = strconv.Atoi(s)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, "Parâmetro 's' (velocidade) inválido")
			return
		}
	}

	if err := h.robotService.ManualCommand(models.MotionCommand{Direction: direction, Speed: speed}); err != nil {
		h.respondWithError(w, http.StatusConflict, err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"direction": direction,
		"speed":     speed,
	})
}

// SetAuto alterna entre os modos manual e autônomo (GET /api/auto?v=1)
func (h *Handler) SetAuto(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	value := r.URL.Query().Get("v")
	var mode models.ControlMode
	switch value {
	case "1":
		mode = models.ModeAutonomous
	case "0":
		mode = models.ModeManual
	default:
		h.respondWithError(w, http.StatusBadRequest, "Parâmetro 'v' deve ser 0 ou 1")
		return
	}

	if err := h.robotService.SetMode(mode); err != nil {
		h.respondWithError(w, http.StatusConflict, err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"mode": mode,
	})
}

// GetGPIHistory retorna o histórico do índice composto de gás
func (h *Handler) GetGPIHistory(w http.ResponseWriter, r *http.Request) {
	h.channelHistory(w, r, "gpi")
}

// GetChannelHistory retorna o histórico de um canal de sensor
// (GET /api/history/<canal>)
func (h *Handler) GetChannelHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 4 || parts[len(parts)-1] == "" {
		h.respondWithError(w, http.StatusBadRequest, "Canal de histórico não fornecido")
		return
	}

	h.channelHistory(w, r, parts[len(parts)-1])
}

func (h *Handler) channelHistory(w http.ResponseWriter, r *http.Request, channel string) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	var history []models.HistoryPoint
	if h.redisService != nil && h.redisService.IsConnected() {
		redisHistory, err := h.redisService.GetHistory(channel, limit)
		if err != nil {
			if strings.Contains(err.Error(), "canal de histórico inválido") {
				h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Canal inválido: %q", channel))
				return
			}
			logger.Errorf("Erro ao obter histórico do canal %s: %v", channel, err)
		} else {
			history = redisHistory
		}
	}

	if history == nil {
		history = []models.HistoryPoint{}
	}

	h.respondWithJSON(w, http.StatusOK, history)
}

// GetAlerts retorna as transições recentes do alerta de gás crítico
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var alerts []models.AlertEvent
	if h.redisService != nil && h.redisService.IsConnected() {
		redisAlerts, err := h.redisService.GetAlerts(limit)
		if err == nil {
			alerts = redisAlerts
		}
	}

	if alerts == nil {
		alerts = []models.AlertEvent{}
	}

	h.respondWithJSON(w, http.StatusOK, alerts)
}

// GenerateReport gera o relatório de qualidade do ar com análise do modelo
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	if h.reportService == nil {
		h.respondWithError(w, http.StatusServiceUnavailable, "Serviço de relatórios indisponível")
		return
	}

	document, err := h.reportService.Generate(r.Context())
	if err != nil {
		if errors.Is(err, report.ErrInsufficientData) {
			h.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Errorf("Erro ao gerar relatório: %v", err)
		h.respondWithError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, document)
}

// respondWithError responde com erro em formato JSON
func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON responde com JSON
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("Erro ao codificar resposta JSON: %v", err)
		fmt.Fprintf(w, `{"error":"Erro interno ao processar resposta"}`)
	}
}
