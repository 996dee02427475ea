package control

import (
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
)

// Motivos das decisões, usados nos eventos de movimento e na telemetria
const (
	ReasonHazard    = "hazard"
	ReasonManual    = "manual"
	ReasonAvoidance = "avoidance"
	ReasonCruise    = "cruise"
)

// Decision é o resultado da avaliação de um ciclo de controle
type Decision struct {
	Command models.MotionCommand
	Alert   bool                // alerta de gás crítico ativo neste ciclo
	Hazard  bool                // verdadeiro quando a regra de gás crítico venceu
	Reason  string              // qual regra produziu o comando
	Event   *models.MotionEvent // preenchido quando a direção efetiva mudou
}

// Machine avalia a transição de estado por ciclo. Os limiares vêm da
// configuração; a duração do ciclo converte as durações da manobra em
// contagens de ciclos inteiros.
type Machine struct {
	cfg  config.ControlConfig
	tick time.Duration
}

// NewMachine cria uma máquina de controle para o período de ciclo informado
func NewMachine(cfg config.ControlConfig, tick time.Duration) *Machine {
	if tick <= 0 {
		tick = 150 * time.Millisecond
	}
	return &Machine{cfg: cfg, tick: tick}
}

// Hazardous avalia a regra de gás crítico sobre um frame isolado
func (m *Machine) Hazardous(frame models.SensorFrame) bool {
	return frame.Smoke > m.cfg.SmokeCritical || frame.CO > m.cfg.COCritical
}

// Evaluate executa a transição de um ciclo: recalcula o estado de perigo a
// partir do frame mais fresco e aplica a cadeia de precedência. O State é
// atualizado no lugar; o chamador é o único dono dele.
func (m *Machine) Evaluate(st *State, frame models.SensorFrame) Decision {
	var d Decision

	switch {
	case m.Hazardous(frame):
		// Regra terminal do ciclo: gás crítico para o robô em qualquer
		// modo e descarta manobra em andamento. Nada mais é avaliado.
		st.maneuver = nil
		d = Decision{Command: models.Stop(), Alert: true, Hazard: true, Reason: ReasonHazard}

	case st.mode == models.ModeManual:
		// Obstáculos e índice são apenas informativos em modo manual
		d = Decision{Command: st.lastManual, Reason: ReasonManual}

	default: // autônomo
		d = m.evaluateAutonomous(st, frame)
	}

	st.alert = d.Alert

	if d.Command.Direction != st.lastDir {
		d.Event = &models.MotionEvent{
			From:      st.lastDir,
			To:        d.Command.Direction,
			Speed:     d.Command.Speed,
			Reason:    d.Reason,
			Timestamp: frame.Timestamp,
		}
		st.lastDir = d.Command.Direction
	}

	return d
}

// evaluateAutonomous aplica a política autônoma: drena a manobra pendente,
// inicia uma nova ao detectar obstáculo próximo, ou segue em cruzeiro.
func (m *Machine) evaluateAutonomous(st *State, frame models.SensorFrame) Decision {
	if len(st.maneuver) == 0 && frame.RadarDistance < m.cfg.NearFieldCm {
		// Manobra de recuperação: ré breve e depois giro à esquerda,
		// enfileirada em passos para o laço seguir sem bloquear
		st.maneuver = []maneuverStep{
			{
				cmd:       models.MotionCommand{Direction: models.DirBackward, Speed: m.cfg.ManeuverSpeed},
				ticksLeft: m.ticksFor(m.cfg.BackwardDuration),
			},
			{
				cmd:       models.MotionCommand{Direction: models.DirLeft, Speed: m.cfg.ManeuverSpeed},
				ticksLeft: m.ticksFor(m.cfg.TurnDuration),
			},
		}
	}

	if len(st.maneuver) > 0 {
		step := &st.maneuver[0]
		cmd := step.cmd
		step.ticksLeft--
		if step.ticksLeft <= 0 {
			st.maneuver = st.maneuver[1:]
		}
		return Decision{Command: cmd, Reason: ReasonAvoidance}
	}

	return Decision{
		Command: models.MotionCommand{Direction: models.DirForward, Speed: m.cfg.CruiseSpeed},
		Reason:  ReasonCruise,
	}
}

// ticksFor converte uma duração em uma contagem de ciclos, no mínimo 1
func (m *Machine) ticksFor(d time.Duration) int {
	ticks := int((d + m.tick - 1) / m.tick)
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}
