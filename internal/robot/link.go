// Package robot contém a ligação com o firmware do robô (HTTP, MQTT ou
// simulada) e o laço de controle que amostra os sensores, avalia a máquina
// de estados e atua os motores a cada ciclo.
package robot

import (
	"fmt"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
)

// Source é a fonte de sensores: uma leitura síncrona retorna um
// SensorFrame por chamada, com limite de espera garantido pelo transporte
type Source interface {
	ReadFrame() (models.SensorFrame, error)
}

// Actuator é o destino de atuação: aceita um comando de movimento por
// ciclo, fire-and-forget, e o aviso de troca de modo para o firmware
type Actuator interface {
	Drive(cmd models.MotionCommand) error
	SetAuto(enabled bool) error
}

// Link é uma ligação completa com o robô (fonte + atuador)
type Link interface {
	Source
	Actuator
	Close()
}

// NewLink cria a ligação com o robô conforme o transporte configurado
func NewLink(cfg config.RobotConfig) (Link, error) {
	switch cfg.Transport {
	case "http", "":
		return NewClient(cfg), nil
	case "mqtt":
		return NewMQTTLink(cfg)
	case "sim":
		return NewSimulator(), nil
	default:
		return nil, fmt.Errorf("transporte de robô não suportado: %s", cfg.Transport)
	}
}

// failSafeFrame é o frame substituto usado quando a leitura falha: gases em
// zero (falha segura para baixo, só rebaixa o índice) e distância no
// sentinela (sem obstáculo, nunca obstáculo a zero centímetros).
func failSafeFrame() models.SensorFrame {
	return models.SensorFrame{
		RadarDistance: models.DistanceSentinel,
		Timestamp:     time.Now(),
	}
}

// sanitizeFrame aplica as regras de falha segura sobre um frame decodificado:
// canal de gás ausente ou negativo vira 0, distância ausente ou não positiva
// vira o sentinela "sem eco"
func sanitizeFrame(frame *models.SensorFrame) {
	if frame.Smoke < 0 {
		frame.Smoke = 0
	}
	if frame.Methane < 0 {
		frame.Methane = 0
	}
	if frame.CO < 0 {
		frame.CO = 0
	}
	if frame.Air < 0 {
		frame.Air = 0
	}
	if frame.RadarDistance <= 0 {
		frame.RadarDistance = models.DistanceSentinel
	}
}
