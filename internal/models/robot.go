package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownDirection é retornado quando uma letra de comando não corresponde
// a nenhuma direção conhecida. A direção resolvida nesse caso é sempre DirStop.
var ErrUnknownDirection = errors.New("direção desconhecida")

// DistanceSentinel é o valor de distância usado quando o ultrassônico não
// retorna eco dentro do timeout. Deve ser interpretado como "sem obstáculo",
// nunca como obstáculo a zero centímetros.
const DistanceSentinel = 400.0

// Direction representa a direção de movimento do robô
type Direction string

const (
	DirForward  Direction = "forward"
	DirBackward Direction = "backward"
	DirLeft     Direction = "left"
	DirRight    Direction = "right"
	DirStop     Direction = "stop"
)

// ParseDirection converte a letra de comando usada pelo firmware (F/B/L/R/S)
// em uma Direction. Letras desconhecidas resolvem para DirStop com erro,
// para nunca deixar o driver de motor em estado indefinido.
func ParseDirection(letter string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(letter)) {
	case "F":
		return DirForward, nil
	case "B":
		return DirBackward, nil
	case "L":
		return DirLeft, nil
	case "R":
		return DirRight, nil
	case "S":
		return DirStop, nil
	default:
		return DirStop, fmt.Errorf("%w: %q", ErrUnknownDirection, letter)
	}
}

// Letter retorna a letra de comando que o firmware espera para a direção
func (d Direction) Letter() string {
	switch d {
	case DirForward:
		return "F"
	case DirBackward:
		return "B"
	case DirLeft:
		return "L"
	case DirRight:
		return "R"
	default:
		return "S"
	}
}

// Code retorna o código numérico da direção (usado no espelhamento para o PLC)
func (d Direction) Code() int16 {
	switch d {
	case DirForward:
		return 1
	case DirBackward:
		return 2
	case DirLeft:
		return 3
	case DirRight:
		return 4
	default:
		return 0
	}
}

// ControlMode representa o modo de controle do robô
type ControlMode string

const (
	ModeManual     ControlMode = "manual"
	ModeAutonomous ControlMode = "autonomous"
)

// MotionCommand representa um comando de movimento {direção, velocidade}
type MotionCommand struct {
	Direction Direction `json:"direction"`
	Speed     int       `json:"speed"` // 0-255 (PWM)
}

// Stop retorna o comando de parada
func Stop() MotionCommand {
	return MotionCommand{Direction: DirStop, Speed: 0}
}

// SensorFrame armazena uma amostra completa dos sensores do robô.
// Produzido uma vez por ciclo de controle e imutável depois disso.
type SensorFrame struct {
	Smoke         int       `json:"smoke"`   // MQ-2 (ADC 0-4095)
	Methane       int       `json:"methane"` // MQ-3
	CO            int       `json:"co"`      // MQ-7
	Air           int       `json:"air"`     // MQ-135
	Battery       int       `json:"battery"` // mV
	IRLeft        bool      `json:"ir_left"`
	IRRight       bool      `json:"ir_right"`
	RadarAngle    int       `json:"radar_angle"`    // graus do servo (20-160)
	RadarDistance float64   `json:"radar_distance"` // cm; DistanceSentinel = sem eco
	Timestamp     time.Time `json:"timestamp"`
}

// Tier representa a faixa de severidade derivada do GPI
type Tier string

const (
	TierGood          Tier = "good"
	TierModerate      Tier = "moderate"
	TierUnhealthy     Tier = "unhealthy"
	TierVeryUnhealthy Tier = "very_unhealthy"
	TierHazardous     Tier = "hazardous"
)

// Code retorna o código numérico da faixa (usado no espelhamento para o PLC)
func (t Tier) Code() int16 {
	switch t {
	case TierGood:
		return 0
	case TierModerate:
		return 1
	case TierUnhealthy:
		return 2
	case TierVeryUnhealthy:
		return 3
	case TierHazardous:
		return 4
	default:
		return -1
	}
}

// GasIndex é o índice composto de poluição (GPI) derivado de um SensorFrame
type GasIndex struct {
	Value int  `json:"gpi"`  // sempre em [0, 500]
	Tier  Tier `json:"tier"` // faixa de severidade
}

// Record é o registro plano chave/valor servido para a UI do terminal.
// Os nomes dos campos seguem o formato do endpoint /data do firmware.
type Record struct {
	Smoke         int         `json:"smoke"`
	Methane       int         `json:"methane"`
	CO            int         `json:"co"`
	Air           int         `json:"air"`
	Battery       int         `json:"battery"`
	IRLeft        int         `json:"ir_left"`
	IRRight       int         `json:"ir_right"`
	RadarAngle    int         `json:"radar_angle"`
	RadarDistance float64     `json:"radar_distance"`
	GPI           int         `json:"gpi"`
	Tier          Tier        `json:"tier"`
	Alert         bool        `json:"alert"`
	Mode          ControlMode `json:"mode"`
	Timestamp     int64       `json:"timestamp"` // Unix ms
}

// NewRecord monta o registro plano a partir do frame, índice e estado atuais
func NewRecord(frame SensorFrame, index GasIndex, mode ControlMode, alert bool) Record {
	return Record{
		Smoke:         frame.Smoke,
		Methane:       frame.Methane,
		CO:            frame.CO,
		Air:           frame.Air,
		Battery:       frame.Battery,
		IRLeft:        boolToInt(frame.IRLeft),
		IRRight:       boolToInt(frame.IRRight),
		RadarAngle:    frame.RadarAngle,
		RadarDistance: frame.RadarDistance,
		GPI:           index.Value,
		Tier:          index.Tier,
		Alert:         alert,
		Mode:          mode,
		Timestamp:     frame.Timestamp.UnixNano() / int64(time.Millisecond),
	}
}

// MotionEvent representa uma transição de direção emitida pelo laço de controle
type MotionEvent struct {
	From      Direction `json:"from"`
	To        Direction `json:"to"`
	Speed     int       `json:"speed"`
	Reason    string    `json:"reason"` // "hazard", "manual", "avoidance", "cruise", ...
	Timestamp time.Time `json:"timestamp"`
}

// AlertEvent representa a ativação ou desativação do alerta de gás crítico
type AlertEvent struct {
	Active    bool      `json:"active"`
	Smoke     int       `json:"smoke"`
	CO        int       `json:"co"`
	GPI       int       `json:"gpi"`
	Timestamp time.Time `json:"timestamp"`
}

// RobotStatus representa o status atual da ligação com o robô
type RobotStatus struct {
	Status         string      `json:"status"`
	Mode           ControlMode `json:"mode"`
	AlertActive    bool        `json:"alertActive"`
	Timestamp      time.Time   `json:"timestamp"`
	LastError      string      `json:"lastError,omitempty"`
	ErrorCount     int         `json:"errorCount,omitempty"`
	ConnectionInfo string      `json:"connectionInfo,omitempty"`
}

// SamplePoint é um ponto do histórico usado na geração de relatórios
type SamplePoint struct {
	Smoke     int       `json:"smoke"`
	Methane   int       `json:"methane"`
	CO        int       `json:"co"`
	Air       int       `json:"air"`
	GPI       int       `json:"gpi"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryPoint representa um ponto de histórico de um canal individual
type HistoryPoint struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
