package robot

import (
	"sync"
	"testing"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
)

func TestSimulatorFramesWithinSensorRanges(t *testing.T) {
	sim := NewSimulator()

	for i := 0; i < 200; i++ {
		frame, err := sim.ReadFrame()
		if err != nil {
			t.Fatalf("erro inesperado do simulador: %v", err)
		}

		checks := []struct {
			name   string
			value  int
			lo, hi int
		}{
			{"smoke", frame.Smoke, 300, 1400},
			{"methane", frame.Methane, 100, 1000},
			{"co", frame.CO, 20, 500},
			{"air", frame.Air, 50, 1600},
			{"battery", frame.Battery, 3000, 4200},
			{"radar_angle", frame.RadarAngle, 20, 160},
		}
		for _, c := range checks {
			if c.value < c.lo || c.value > c.hi {
				t.Fatalf("%s fora da faixa: %d (esperado [%d, %d])", c.name, c.value, c.lo, c.hi)
			}
		}
		if frame.RadarDistance < 5 || frame.RadarDistance > 200 {
			t.Fatalf("distância fora da faixa: %.1f", frame.RadarDistance)
		}
	}
}

func TestSanitizeFrameClampsInvalidReadings(t *testing.T) {
	frame := models.SensorFrame{
		Smoke:         -10,
		Methane:       -1,
		CO:            -5,
		Air:           -100,
		RadarDistance: -3,
	}
	sanitizeFrame(&frame)

	if frame.Smoke != 0 || frame.Methane != 0 || frame.CO != 0 || frame.Air != 0 {
		t.Errorf("leituras negativas de gás deveriam virar zero: %+v", frame)
	}
	if frame.RadarDistance != models.DistanceSentinel {
		t.Errorf("distância inválida deveria virar sentinela %v, obtido %v",
			models.DistanceSentinel, frame.RadarDistance)
	}
}

func TestFailSafeFrameIsNeutral(t *testing.T) {
	frame := failSafeFrame()

	if frame.Smoke != 0 || frame.Methane != 0 || frame.CO != 0 || frame.Air != 0 {
		t.Errorf("frame seguro deve ter gases zerados: %+v", frame)
	}
	if frame.RadarDistance != models.DistanceSentinel {
		t.Errorf("frame seguro deve reportar ausência de obstáculo, obtido %v", frame.RadarDistance)
	}
}

func TestNewLinkSelectsTransport(t *testing.T) {
	cases := []struct {
		transport string
		wantErr   bool
	}{
		{"http", false},
		{"", false},
		{"sim", false},
		{"carrier-pigeon", true},
	}

	for _, c := range cases {
		cfg := config.RobotConfig{
			Transport:   c.transport,
			BaseURL:     "http://127.0.0.1:0",
			ReadTimeout: 100 * time.Millisecond,
		}

		link, err := NewLink(cfg)
		if c.wantErr {
			if err == nil {
				t.Errorf("transporte %q deveria falhar", c.transport)
			}
			continue
		}
		if err != nil {
			t.Errorf("transporte %q: erro inesperado: %v", c.transport, err)
			continue
		}
		link.Close()
	}
}

// fakeLink é uma ligação controlável para testes do ciclo de controle
type fakeLink struct {
	mu       sync.Mutex
	frame    models.SensorFrame
	readErr  error
	driveErr error

	drives []models.MotionCommand
	autos  []bool
}

func (f *fakeLink) ReadFrame() (models.SensorFrame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return models.SensorFrame{}, f.readErr
	}
	frame := f.frame
	frame.Timestamp = time.Now()
	return frame, nil
}

func (f *fakeLink) Drive(cmd models.MotionCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.driveErr != nil {
		return f.driveErr
	}
	f.drives = append(f.drives, cmd)
	return nil
}

func (f *fakeLink) SetAuto(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autos = append(f.autos, enabled)
	return nil
}

func (f *fakeLink) Close() {}

func (f *fakeLink) setFrame(frame models.SensorFrame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = frame
}

func (f *fakeLink) setReadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

func (f *fakeLink) lastDrive() (models.MotionCommand, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.drives) == 0 {
		return models.MotionCommand{}, false
	}
	return f.drives[len(f.drives)-1], true
}
