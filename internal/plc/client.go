package plc

import (
	"fmt"
	"sync"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/pkg/logger"

	"github.com/robinson/gos7"
)

// S7Client encapsula a comunicação com o PLC S7 da planta
type S7Client struct {
	client       gos7.Client
	handler      *gos7.TCPClientHandler
	config       config.PLCConfig
	connected    bool
	lastError    error
	connectMutex sync.Mutex
}

// NewS7Client cria um novo cliente para PLC S7
func NewS7Client(cfg config.PLCConfig) *S7Client {
	return &S7Client{
		config:    cfg,
		connected: false,
	}
}

// Connect estabelece conexão com o PLC
func (c *S7Client) Connect() error {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()

	if c.connected {
		return nil
	}

	// Desconectar se já houver conexão anterior
	if c.handler != nil {
		c.handler.Close()
	}

	handler := gos7.NewTCPClientHandler(c.config.Host, c.config.Rack, c.config.Slot)
	handler.Timeout = c.config.ReadTimeout
	handler.IdleTimeout = 70 * time.Second

	if err := handler.Connect(); err != nil {
		c.lastError = fmt.Errorf("erro ao conectar ao PLC: %w", err)
		logger.Errorf("Falha ao conectar ao PLC: %v", err)
		return c.lastError
	}

	c.handler = handler
	c.client = gos7.NewClient(handler)
	c.connected = true
	logger.Infof("Conectado ao PLC em %s (Rack: %d, Slot: %d)",
		c.config.Host, c.config.Rack, c.config.Slot)

	return nil
}

// Disconnect fecha a conexão com o PLC
func (c *S7Client) Disconnect() {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()

	if c.handler != nil {
		c.handler.Close()
		c.handler = nil
		c.client = nil
		c.connected = false
		logger.Info("Desconectado do PLC")
	}
}

// IsConnected verifica se o cliente está conectado
func (c *S7Client) IsConnected() bool {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()
	return c.connected
}

// CheckConnection testa a conexão com o PLC
func (c *S7Client) CheckConnection() error {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()

	if !c.connected {
		return fmt.Errorf("não conectado ao PLC")
	}

	// Ler um byte do DB de espelhamento para testar a conexão
	buffer := make([]byte, 1)
	err := c.client.AGReadDB(c.config.DBNumber, 0, 1, buffer)
	if err != nil {
		c.connected = false
		c.lastError = fmt.Errorf("erro ao testar conexão com PLC: %w", err)
		return c.lastError
	}

	return nil
}

// WriteDataBlock escreve em um bloco de dados do PLC
func (c *S7Client) WriteDataBlock(dbNumber int, startOffset int, data []byte) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	if err := c.client.AGWriteDB(dbNumber, startOffset, len(data), data); err != nil {
		c.connected = false
		return fmt.Errorf("erro ao escrever DB%d: %w", dbNumber, err)
	}

	return nil
}

// ensureConnected garante que o cliente está conectado
func (c *S7Client) ensureConnected() error {
	if !c.connected {
		return c.Connect()
	}
	return nil
}

// GetLastError retorna o último erro ocorrido
func (c *S7Client) GetLastError() error {
	return c.lastError
}
