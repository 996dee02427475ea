package robot

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
	"pranbot_go/pkg/logger"
)

const (
	mqttConnectTimeout = 5 * time.Second
	mqttPublishTimeout = 2 * time.Second

	// Idade máxima de um frame em cache antes de ser tratado como perda
	// de telemetria (o firmware publica a cada ciclo próprio)
	maxFrameAge = 2 * time.Second
)

// MQTTLink é a ligação alternativa com o robô via broker MQTT: a telemetria
// chega por assinatura e fica em cache; ReadFrame devolve o último frame
// recebido, preservando a semântica síncrona de uma leitura por ciclo.
type MQTTLink struct {
	client   mqtt.Client
	cmdTopic string

	mu         sync.RWMutex
	last       models.SensorFrame
	hasFrame   bool
	receivedAt time.Time
}

// mqttCommand é o envelope publicado no tópico de comando do firmware
type mqttCommand struct {
	Direction string `json:"d"`
	Speed     int    `json:"s,omitempty"`
	Auto      *int   `json:"auto,omitempty"`
}

// NewMQTTLink conecta ao broker e assina o tópico de telemetria do robô
func NewMQTTLink(cfg config.RobotConfig) (*MQTTLink, error) {
	link := &MQTTLink{cmdTopic: cfg.MQTTCommandTopic}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID("pranbot-monitor-" + uuid.New().String()[:8]).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout)

	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(cfg.MQTTTelemetryTopic, 0, link.onTelemetry)
		if token.WaitTimeout(mqttConnectTimeout) && token.Error() != nil {
			logger.Errorf("Erro ao assinar tópico de telemetria: %v", token.Error())
			return
		}
		logger.Infof("Assinado tópico de telemetria %s", cfg.MQTTTelemetryTopic)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warnf("Conexão MQTT perdida: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("timeout ao conectar ao broker MQTT %s", cfg.MQTTBroker)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("erro ao conectar ao broker MQTT: %w", token.Error())
	}

	link.client = client
	logger.Infof("Conectado ao broker MQTT em %s", cfg.MQTTBroker)
	return link, nil
}

// onTelemetry decodifica e armazena o frame mais recente publicado pelo robô
func (l *MQTTLink) onTelemetry(_ mqtt.Client, msg mqtt.Message) {
	var wire wireFrame
	if err := json.Unmarshal(msg.Payload(), &wire); err != nil {
		logger.Errorf("Erro ao decodificar telemetria MQTT: %v", err)
		return
	}

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

	l.mu.Lock()
	l.last = frame
	l.hasFrame = true
	l.receivedAt = frame.Timestamp
	l.mu.Unlock()
}

// ReadFrame retorna o último frame de telemetria recebido do broker
func (l *MQTTLink) ReadFrame() (models.SensorFrame, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.hasFrame {
		return models.SensorFrame{}, fmt.Errorf("nenhuma telemetria recebida do robô ainda")
	}
	if time.Since(l.receivedAt) > maxFrameAge {
		return models.SensorFrame{}, fmt.Errorf("telemetria do robô expirada (última há %v)", time.Since(l.receivedAt).Round(time.Millisecond))
	}

	frame := l.last
	frame.Timestamp = time.Now()
	return frame, nil
}

// Drive publica um comando de movimento no tópico de comando
func (l *MQTTLink) Drive(cmd models.MotionCommand) error {
	return l.publish(mqttCommand{Direction: cmd.Direction.Letter(), Speed: cmd.Speed})
}

// SetAuto publica a troca de modo no tópico de comando
func (l *MQTTLink) SetAuto(enabled bool) error {
	value := 0
	if enabled {
		value = 1
	}
	return l.publish(mqttCommand{Direction: models.DirStop.Letter(), Auto: &value})
}

func (l *MQTTLink) publish(cmd mqttCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("erro ao serializar comando MQTT: %w", err)
	}

	token := l.client.Publish(l.cmdTopic, 1, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("timeout ao publicar comando MQTT")
	}
	if token.Error() != nil {
		return fmt.Errorf("erro ao publicar comando MQTT: %w", token.Error())
	}
	return nil
}

// Close desconecta do broker
func (l *MQTTLink) Close() {
	if l.client != nil && l.client.IsConnected() {
		l.client.Disconnect(250)
	}
}
