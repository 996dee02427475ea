package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/server"
	"pranbot_go/pkg/logger"
)

func main() {
	// Configurar diretório de logs
	logDir := filepath.Join(".", "logs")
	os.MkdirAll(logDir, 0755)

	// Inicializar logger
	logger.Init()
	logger.SetLevel(logger.ParseLevel(os.Getenv("PRANBOT_LOG_LEVEL")))
	logger.EnableFileLogging(logDir, "pranbot")
	defer logger.Sync()

	// Exibir banner de inicialização
	displayBanner()

	logger.Info("Iniciando Pran-Bot Monitor")

	// Carregar configurações
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Erro ao carregar configurações", err)
	}

	if cfg.Robot.Debug {
		logger.SetLevel(logger.DEBUG)
	}

	// O ciclo de controle precisa girar rápido o suficiente para a
	// manobra de desvio reagir antes de uma colisão
	if cfg.Robot.SampleRate > 500*time.Millisecond {
		logger.Warn("Taxa de amostragem muito baixa. Definindo para 200ms (5Hz)")
		cfg.Robot.SampleRate = 200 * time.Millisecond
	}

	logger.Infof("Configuração carregada: robô via %s, Redis em %s:%d",
		cfg.Robot.Transport, cfg.Redis.Host, cfg.Redis.Port)
	logger.Infof("Taxa de amostragem: %v", cfg.Robot.SampleRate)

	// Criar e iniciar o servidor
	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("Erro ao criar servidor", err)
	}

	// Iniciar o servidor em uma goroutine separada
	go func() {
		logger.Infof("Servidor iniciado na porta %d", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			logger.Fatal("Erro ao iniciar o servidor", err)
		}
	}()

	// Configurar captura de sinais para shutdown gracioso
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Desligando servidor...")

	// Criar contexto com timeout para o shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Desligar o servidor
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Erro durante o shutdown do servidor", err)
	}

	logger.Info("Servidor encerrado com sucesso")
}

// displayBanner exibe um banner de inicialização
func displayBanner() {
	banner := `
 _____   ______  _______ __   _      ______   _____  _______
 |_____] |_____/ |_____| | \  |      |_____] |     |    |
 |       |    \_ |     | |  \_|      |_____] |_____|    |    v1.0
                                        GAS SENTINEL EDITION
 `
	fmt.Println(banner)
	fmt.Printf("Iniciando em %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
}
