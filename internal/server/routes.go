package server

import (
	"encoding/json"
	"net/http"
	"time"

	"pranbot_go/internal/api"
	"pranbot_go/internal/websocket"
)

// setupRoutes configura todas as rotas do servidor
func (s *Server) setupRoutes() {
	// Criar handlers
	wsHandler := websocket.NewHandler(s.wsHub)
	apiHandler := api.NewHandler(s.robotService, s.redisService, s.reportService)

	// Endpoint de saúde
	s.router.HandleFunc("/health", s.healthHandler)

	// Endpoint de informações do servidor
	s.router.HandleFunc("/info", s.infoHandler)

	// Endpoints de descoberta
	s.router.HandleFunc("/api/discover", s.discoverHandler)

	// WebSocket
	s.router.Handle("/ws", wsHandler)
	s.router.HandleFunc("/ws/health", wsHandler.GetHealthHandler())

	// API REST
	s.router.HandleFunc("/api/status", apiHandler.GetStatus)
	s.router.HandleFunc("/api/current", apiHandler.GetCurrentData)
	s.router.HandleFunc("/api/cmd", apiHandler.Command)
	s.router.HandleFunc("/api/auto", apiHandler.SetAuto)
	s.router.HandleFunc("/api/gpi-history", apiHandler.GetGPIHistory)
	s.router.HandleFunc("/api/history/", apiHandler.GetChannelHistory)
	s.router.HandleFunc("/api/alerts", apiHandler.GetAlerts)
	s.router.HandleFunc("/api/report", apiHandler.GenerateReport)
	s.router.HandleFunc("/api/server-info", s.serverInfoHandler)

	// Static assets (opcional)
	fs := http.FileServer(http.Dir("./static"))
	s.router.Handle("/", fs)

	// Middleware para logging, recuperação de panics e CORS
	s.handler = api.Chain(s.router,
		api.RecoveryMiddleware,
		api.CorsMiddleware,
		api.LoggingMiddleware,
	)
}

// healthHandler responde com o status de saúde do servidor
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Verificar status dos serviços
	robotStatus := "ok"
	if s.robotService != nil {
		if !s.robotService.IsRunning() {
			robotStatus = "offline"
		} else if st := s.robotService.GetStatus(); st.Status != "ok" {
			robotStatus = st.Status
		}
	}

	plcStatus := "disabled"
	if s.config.PLC.Enabled {
		if s.plcService != nil && s.plcService.IsRunning() {
			plcStatus = "ok"
		} else {
			plcStatus = "offline"
		}
	}

	redisStatus := "ok"
	if s.redisService != nil && !s.redisService.IsConnected() {
		redisStatus = "offline"
	}

	discoveryStatus := "ok"
	if s.discoveryService != nil && !s.discoveryService.IsRunning() {
		discoveryStatus = "offline"
	}

	reportStatus := "ok"
	if s.reportService != nil {
		if err := s.reportService.Ping(r.Context()); err != nil {
			reportStatus = "offline"
		}
	}

	// Construir resposta
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"services": map[string]string{
			"robot":     robotStatus,
			"redis":     redisStatus,
			"plc":       plcStatus,
			"websocket": "ok",
			"discovery": discoveryStatus,
			"report":    reportStatus,
		},
	}

	// Se algum serviço crítico estiver offline, alterar status geral
	if robotStatus == "offline" || redisStatus == "offline" {
		response["status"] = "degraded"
	}

	json.NewEncoder(w).Encode(response)
}

// infoHandler retorna informações básicas sobre o servidor
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	info := s.GetServerInfo()
	uptime := time.Since(info.StartTime).Round(time.Second)

	response := map[string]interface{}{
		"name":        "Pran-Bot Monitor",
		"version":     info.Version,
		"ip":          info.IP,
		"port":        info.Port,
		"websocket":   info.WebSocketURL,
		"api":         info.APIURL,
		"startTime":   info.StartTime,
		"uptime":      uptime.String(),
		"connections": info.Connections,
	}

	json.NewEncoder(w).Encode(response)
}

// serverInfoHandler retorna informações completas sobre o servidor
func (s *Server) serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	info := s.GetServerInfo()

	discoveryInfo := map[string]interface{}{
		"enabled":      s.discoveryService != nil,
		"running":      s.discoveryService != nil && s.discoveryService.IsRunning(),
		"instanceName": s.discoveryService.GetInstanceName(),
		"serviceType":  "pranbot-monitor",
	}

	uptime := time.Since(info.StartTime).Round(time.Second)

	response := map[string]interface{}{
		"server": map[string]interface{}{
			"name":        "Pran-Bot Monitor",
			"version":     info.Version,
			"ip":          info.IP,
			"port":        info.Port,
			"websocket":   info.WebSocketURL,
			"api":         info.APIURL,
			"startTime":   info.StartTime,
			"uptime":      uptime.String(),
			"connections": info.Connections,
		},
		"discovery": discoveryInfo,
		"services": map[string]interface{}{
			"robot": map[string]interface{}{
				"running":   s.robotService != nil && s.robotService.IsRunning(),
				"transport": s.config.Robot.Transport,
				"mode":      s.robotService.Mode(),
			},
			"redis": map[string]interface{}{
				"enabled":   s.config.Redis.Enabled,
				"connected": s.redisService != nil && s.redisService.IsConnected(),
				"host":      s.config.Redis.Host,
				"port":      s.config.Redis.Port,
			},
			"plc": map[string]interface{}{
				"enabled": s.config.PLC.Enabled,
				"running": s.plcService != nil && s.plcService.IsRunning(),
				"host":    s.config.PLC.Host,
			},
			"report": map[string]interface{}{
				"model": s.config.Report.Model,
				"url":   s.config.Report.OllamaURL,
			},
		},
	}

	json.NewEncoder(w).Encode(response)
}

// discoverHandler fornece informações para descoberta manual
func (s *Server) discoverHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	info := s.GetServerInfo()

	response := map[string]interface{}{
		"name":        "Pran-Bot Monitor",
		"ip":          info.IP,
		"port":        info.Port,
		"wsUrl":       info.WebSocketURL,
		"apiUrl":      info.APIURL,
		"version":     info.Version,
		"wsEndpoint":  "/ws",
		"apiEndpoint": "/api",
	}

	json.NewEncoder(w).Encode(response)
}
