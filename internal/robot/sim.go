package robot

import (
	"math/rand"
	"sync"
	"time"

	"pranbot_go/internal/models"
)

// Simulator gera frames sintéticos na mesma faixa dos sensores reais do
// robô, permitindo rodar o backend completo sem hardware. Os intervalos
// seguem a calibração dos sensores MQ em bancada.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand

	angle     int
	angleStep int
}

// NewSimulator cria um simulador com fonte de aleatoriedade própria
func NewSimulator() *Simulator {
	return &Simulator{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		angle:     90,
		angleStep: 5,
	}
}

// ReadFrame produz um frame sintético plausível
func (s *Simulator) ReadFrame() (models.SensorFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Varredura do radar entre 20 e 160 graus, passo de 5
	s.angle += s.angleStep
	if s.angle >= 160 || s.angle <= 20 {
		s.angleStep = -s.angleStep
	}

	frame := models.SensorFrame{
		Smoke:         s.between(300, 1400),
		Methane:       s.between(100, 1000),
		CO:            s.between(20, 500),
		Air:           s.between(50, 1600),
		Battery:       s.between(3000, 4200),
		IRLeft:        s.rng.Intn(10) == 0,
		IRRight:       s.rng.Intn(10) == 0,
		RadarAngle:    s.angle,
		RadarDistance: float64(s.between(5, 200)),
		Timestamp:     time.Now(),
	}
	return frame, nil
}

// Drive é um no-op no simulador
func (s *Simulator) Drive(_ models.MotionCommand) error { return nil }

// SetAuto é um no-op no simulador
func (s *Simulator) SetAuto(_ bool) error { return nil }

// Close não tem recursos a liberar
func (s *Simulator) Close() {}

func (s *Simulator) between(lo, hi int) int {
	return lo + s.rng.Intn(hi-lo+1)
}
