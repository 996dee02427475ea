package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/discovery"
	"pranbot_go/internal/plc"
	"pranbot_go/internal/redis"
	"pranbot_go/internal/report"
	"pranbot_go/internal/robot"
	"pranbot_go/internal/websocket"
	"pranbot_go/pkg/logger"
)

// Server encapsula o servidor HTTP com todos os componentes
type Server struct {
	config           *config.Config
	httpServer       *http.Server
	router           *http.ServeMux
	handler          http.Handler
	robotService     *robot.Service
	redisService     *redis.Service
	plcService       *plc.Service
	reportService    *report.Service
	wsHub            *websocket.Hub
	discoveryService *discovery.DiscoveryService
	serverInfo       ServerInfo
}

// ServerInfo contém informações sobre o servidor
type ServerInfo struct {
	IP           string
	Port         int
	StartTime    time.Time
	Connections  int
	Version      string
	WebSocketURL string
	APIURL       string
}

// NewServer cria uma nova instância do servidor
func NewServer(cfg *config.Config) (*Server, error) {
	server := &Server{
		config: cfg,
		router: http.NewServeMux(),
		serverInfo: ServerInfo{
			StartTime: time.Now(),
			Version:   "1.0.0",
			Port:      cfg.Server.Port,
		},
	}

	// Determinar IP do servidor
	ip, err := server.getLocalIP()
	if err != nil {
		return nil, fmt.Errorf("erro ao obter IP local: %w", err)
	}
	server.serverInfo.IP = ip

	server.serverInfo.WebSocketURL = fmt.Sprintf("ws://%s:%d/ws", ip, cfg.Server.Port)
	server.serverInfo.APIURL = fmt.Sprintf("http://%s:%d/api", ip, cfg.Server.Port)

	// Inicializar componentes
	if err := server.initComponents(); err != nil {
		return nil, err
	}

	// Configurar rotas
	server.setupRoutes()

	// Configurar servidor HTTP
	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

// initComponents inicializa todos os componentes do servidor
func (s *Server) initComponents() error {
	// Inicializar hub WebSocket
	s.wsHub = websocket.NewHub()
	go s.wsHub.Run()

	// Inicializar serviço Redis
	redisService, err := redis.NewService(s.config.Redis)
	if err != nil {
		return fmt.Errorf("erro ao inicializar serviço Redis: %w", err)
	}
	s.redisService = redisService

	// Inicializar a ligação com o firmware do robô
	link, err := robot.NewLink(s.config.Robot)
	if err != nil {
		return fmt.Errorf("erro ao criar ligação com o robô: %w", err)
	}

	// Inicializar o serviço de controle do robô
	robotService, err := robot.NewService(s.config.Robot, s.config.Control, link, s.redisService, s.wsHub)
	if err != nil {
		return fmt.Errorf("erro ao inicializar serviço do robô: %w", err)
	}
	s.robotService = robotService

	// Ligar o hub WebSocket ao serviço de controle
	s.wsHub.SetCommandSink(s.robotService)
	s.wsHub.SetHistoryProvider(s.redisService)

	// Inicializar serviço do PLC (se habilitado)
	if s.config.PLC.Enabled {
		s.plcService = plc.NewService(s.config.PLC)

		// Registrar serviço PLC para receber atualizações do robô
		s.robotService.RegisterTelemetryHandler(s.plcService.UpdateRecord)
		s.robotService.RegisterMotionHandler(s.plcService.UpdateMotion)
	}

	// Inicializar o gerador de relatórios sobre a janela de amostras do Redis
	s.reportService = report.NewService(s.config.Report, s.redisService)

	// Inicializar serviço de descoberta
	s.discoveryService = discovery.NewDiscoveryService(s.config.Server.Port)

	return nil
}

// Start inicia o servidor e todos os serviços
func (s *Server) Start() error {
	// Iniciar serviço de descoberta
	if err := s.discoveryService.Start(); err != nil {
		logger.Warnf("Erro ao iniciar serviço de descoberta: %v", err)
		// Não abortar operação se falhar
	}

	// Iniciar o ciclo de controle do robô
	if err := s.robotService.Start(); err != nil {
		return fmt.Errorf("erro ao iniciar serviço do robô: %w", err)
	}

	// Iniciar serviço do PLC (se habilitado)
	if s.config.PLC.Enabled && s.plcService != nil {
		if err := s.plcService.Start(); err != nil {
			logger.Errorf("Erro ao iniciar serviço PLC: %v", err)
			// Não abortar se o PLC falhar
		}
	}

	// Mostrar informações do servidor
	s.logServerInfo()

	// Iniciar servidor HTTP
	logger.Infof("Iniciando servidor HTTP na porta %d", s.config.Server.Port)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("erro ao iniciar servidor HTTP: %w", err)
	}

	return nil
}

// Shutdown encerra graciosamente o servidor e todos os serviços
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Iniciando shutdown do servidor")

	// Encerrar o servidor HTTP
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Erro ao encerrar servidor HTTP: %v", err)
	}

	// Encerrar serviço de descoberta
	if s.discoveryService != nil {
		s.discoveryService.Stop()
	}

	// Parar o ciclo de controle primeiro para o robô receber o comando de parada
	if s.robotService != nil {
		s.robotService.Stop()
	}

	if s.plcService != nil {
		s.plcService.Shutdown()
	}

	if s.wsHub != nil {
		s.wsHub.Shutdown()
	}

	if s.redisService != nil {
		s.redisService.Shutdown()
	}

	logger.Info("Shutdown completo")
	return nil
}

// getLocalIP obtém o endereço IP local
func (s *Server) getLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}

	return "localhost", nil
}

// GetServerInfo retorna informações sobre o servidor
func (s *Server) GetServerInfo() ServerInfo {
	info := s.serverInfo
	info.Connections = s.wsHub.ClientCount()
	return info
}

// logServerInfo exibe informações do servidor no log
func (s *Server) logServerInfo() {
	logger.Info("===============================================")
	logger.Info("            Pran-Bot Monitor Server            ")
	logger.Info("===============================================")
	logger.Infof("Versão: %s", s.serverInfo.Version)
	logger.Infof("Endereço IP: %s", s.serverInfo.IP)
	logger.Infof("Porta HTTP: %d", s.serverInfo.Port)
	logger.Infof("WebSocket URL: %s", s.serverInfo.WebSocketURL)
	logger.Infof("API URL: %s", s.serverInfo.APIURL)
	logger.Infof("Transporte do robô: %s", s.config.Robot.Transport)
	logger.Infof("mDNS: %s.%s.%s",
		s.discoveryService.GetInstanceName(),
		discovery.ServiceType,
		discovery.ServiceDomain)
	logger.Info("===============================================")
	logger.Info("Servidor pronto para conexões!")
}
