// Package control implementa a máquina de estados reativa do robô: a cada
// ciclo ela funde o frame de sensores, o GPI e o estado de comando em uma
// única decisão de movimento, com a seguinte precedência fixa:
//
//	gás crítico > comando manual > desvio de obstáculo > cruzeiro
package control

import (
	"errors"

	"pranbot_go/internal/models"
)

// ErrAutonomousActive é retornado quando um comando manual chega com o
// robô em modo autônomo. O comando é rejeitado explicitamente, nunca
// ignorado em silêncio.
var ErrAutonomousActive = errors.New("comando manual rejeitado: modo autônomo ativo")

// maneuverStep é um passo temporizado da manobra de desvio, medido em
// ciclos de controle inteiros para que o laço nunca precise bloquear
type maneuverStep struct {
	cmd       models.MotionCommand
	ticksLeft int
}

// State agrega todo o estado mutável da malha de controle: modo, último
// comando manual e a fila de passos de manobra em andamento. O valor tem
// um único dono (o laço de controle) e só é alterado em fronteiras de ciclo.
type State struct {
	mode       models.ControlMode
	lastManual models.MotionCommand
	maneuver   []maneuverStep
	lastDir    models.Direction
	alert      bool
}

// NewState cria o estado inicial: modo manual, parado, sem alerta
func NewState() *State {
	return &State{
		mode:       models.ModeManual,
		lastManual: models.Stop(),
		lastDir:    models.DirStop,
	}
}

// Mode retorna o modo de controle atual
func (s *State) Mode() models.ControlMode {
	return s.mode
}

// Alert indica se o alerta de gás crítico estava ativo no último ciclo
func (s *State) Alert() bool {
	return s.alert
}

// SetMode troca o modo de controle. A troca para manual descarta qualquer
// manobra de desvio em andamento e zera o comando manual, de forma que o
// chamador deve atuar um Stop imediato antes do próximo ciclo.
// Retorna true se o modo efetivamente mudou.
func (s *State) SetMode(mode models.ControlMode) bool {
	if mode == s.mode {
		return false
	}

	s.mode = mode
	if mode == models.ModeManual {
		// Uma manobra pertence ao modo que a iniciou; não sobrevive à troca
		s.maneuver = nil
		s.lastManual = models.Stop()
	}
	return true
}

// SetManual registra um novo comando manual. Rejeitado em modo autônomo.
func (s *State) SetManual(cmd models.MotionCommand) error {
	if s.mode == models.ModeAutonomous {
		return ErrAutonomousActive
	}

	if cmd.Speed < 0 {
		cmd.Speed = 0
	}
	if cmd.Speed > 255 {
		cmd.Speed = 255
	}
	s.lastManual = cmd
	return nil
}

// ManeuverActive indica se há uma manobra de desvio em andamento
func (s *State) ManeuverActive() bool {
	return len(s.maneuver) > 0
}
