package robot

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
	"pranbot_go/pkg/logger"
)

// wireFrame é o registro plano servido pelo endpoint /data do firmware.
// Os flags de IR chegam como 0/1 e a distância pode vir ausente quando o
// ultrassônico não respondeu dentro do timeout do firmware.
type wireFrame struct {
	Smoke         int     `json:"smoke"`
	Methane       int     `json:"methane"`
	CO            int     `json:"co"`
	Air           int     `json:"air"`
	Battery       int     `json:"battery"`
	IRLeft        int     `json:"ir_left"`
	IRRight       int     `json:"ir_right"`
	RadarAngle    int     `json:"radar_angle"`
	RadarDistance float64 `json:"radar_distance"`
}

// Client gerencia a comunicação HTTP com o firmware do robô no AP
type Client struct {
	baseURL   string
	http      *http.Client
	connected bool
	mutex     sync.Mutex
}

// NewClient cria uma nova instância do cliente HTTP do robô
func NewClient(cfg config.RobotConfig) *Client {
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}

	return &Client{
		baseURL: cfg.BaseURL,
		// Timeout curto: uma queda do firmware não pode segurar o ciclo
		http: &http.Client{Timeout: timeout},
	}
}

// ReadFrame busca um SensorFrame no endpoint /data do firmware
func (c *Client) ReadFrame() (models.SensorFrame, error) {
	resp, err := c.http.Get(c.baseURL + "/data")
	if err != nil {
		c.setConnected(false)
		return models.SensorFrame{}, fmt.Errorf("erro ao ler dados do robô: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.setConnected(false)
		return models.SensorFrame{}, fmt.Errorf("resposta inesperada do robô: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		c.setConnected(false)
		return models.SensorFrame{}, fmt.Errorf("erro ao ler resposta do robô: %w", err)
	}

	var wire wireFrame
	if err := json.Unmarshal(body, &wire); err != nil {
		return models.SensorFrame{}, fmt.Errorf("erro ao decodificar frame do robô: %w", err)
	}

	if !c.isConnected() {
		logger.Infof("Comunicação com o robô estabelecida em %s", c.baseURL)
	}
	c.setConnected(true)

	frame := models.SensorFrame{
		Smoke:         wire.Smoke,
		Methane:       wire.Methane,
		CO:            wire.CO,
		Air:           wire.Air,
		Battery:       wire.Battery,
		IRLeft:        wire.IRLeft != 0,
		IRRight:       wire.IRRight != 0,
		RadarAngle:    wire.RadarAngle,
		RadarDistance: wire.RadarDistance,
		Timestamp:     time.Now(),
	}
	sanitizeFrame(&frame)
	return frame, nil
}

// Drive envia um comando de movimento para o endpoint /cmd do firmware
func (c *Client) Drive(cmd models.MotionCommand) error {
	query := url.Values{}
	query.Set("d", cmd.Direction.Letter())
	query.Set("s", strconv.Itoa(cmd.Speed))

	resp, err := c.http.Get(c.baseURL + "/cmd?" + query.Encode())
	if err != nil {
		c.setConnected(false)
		return fmt.Errorf("erro ao enviar comando de movimento: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("comando de movimento rejeitado pelo firmware: %d", resp.StatusCode)
	}
	return nil
}

// SetAuto informa o firmware sobre a troca de modo (endpoint /auto)
func (c *Client) SetAuto(enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}

	resp, err := c.http.Get(c.baseURL + "/auto?v=" + value)
	if err != nil {
		c.setConnected(false)
		return fmt.Errorf("erro ao definir modo no firmware: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("troca de modo rejeitada pelo firmware: %d", resp.StatusCode)
	}
	return nil
}

// Close encerra a ligação com o robô
func (c *Client) Close() {
	c.http.CloseIdleConnections()
	c.setConnected(false)
}

// IsConnected verifica se a última comunicação foi bem sucedida
func (c *Client) IsConnected() bool {
	return c.isConnected()
}

func (c *Client) setConnected(connected bool) {
	c.mutex.Lock()
	c.connected = connected
	c.mutex.Unlock()
}

func (c *Client) isConnected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connected
}
