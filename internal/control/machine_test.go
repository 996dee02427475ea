package control

import (
	"testing"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
)

func testControlConfig() config.ControlConfig {
	return config.ControlConfig{
		SmokeCritical:    2000,
		COCritical:       1500,
		NearFieldCm:      25,
		CruiseSpeed:      200,
		ManeuverSpeed:    180,
		BackwardDuration: 400 * time.Millisecond,
		TurnDuration:     300 * time.Millisecond,
	}
}

func newTestMachine() *Machine {
	// 200ms por ciclo: ré = 2 ciclos, giro = 2 ciclos
	return NewMachine(testControlConfig(), 200*time.Millisecond)
}

func clearFrame() models.SensorFrame {
	return models.SensorFrame{
		Smoke:         100,
		Methane:       100,
		CO:            100,
		Air:           100,
		RadarDistance: models.DistanceSentinel,
		Timestamp:     time.Now(),
	}
}

func TestHazardForcesStopInAnyMode(t *testing.T) {
	cases := []struct {
		name  string
		frame models.SensorFrame
	}{
		{"fumaca critica", models.SensorFrame{Smoke: 2500, RadarDistance: models.DistanceSentinel}},
		{"co critico", models.SensorFrame{CO: 1600, RadarDistance: models.DistanceSentinel}},
		{"fumaca critica com obstaculo", models.SensorFrame{Smoke: 2500, RadarDistance: 5}},
	}

	for _, mode := range []models.ControlMode{models.ModeManual, models.ModeAutonomous} {
		for _, tc := range cases {
			m := newTestMachine()
			st := NewState()
			st.SetMode(mode)
			if mode == models.ModeManual {
				if err := st.SetManual(models.MotionCommand{Direction: models.DirForward, Speed: 255}); err != nil {
					t.Fatalf("comando manual: %v", err)
				}
			}

			d := m.Evaluate(st, tc.frame)
			if d.Command.Direction != models.DirStop {
				t.Fatalf("%s em modo %s: esperado stop, obtido %s", tc.name, mode, d.Command.Direction)
			}
			if !d.Alert || !d.Hazard {
				t.Fatalf("%s em modo %s: alerta/hazard deveriam estar ativos", tc.name, mode)
			}
		}
	}
}

func TestHazardAtThresholdBoundary(t *testing.T) {
	m := newTestMachine()

	// Os limiares são estritamente "maior que"
	frame := clearFrame()
	frame.Smoke = 2000
	frame.CO = 1500
	if m.Hazardous(frame) {
		t.Fatal("leituras exatamente no limiar não deveriam disparar o alerta")
	}

	frame.Smoke = 2001
	if !m.Hazardous(frame) {
		t.Fatal("fumaça acima do limiar deveria disparar o alerta")
	}
}

func TestManualHoldsLastCommand(t *testing.T) {
	m := newTestMachine()
	st := NewState()

	// Sem comando recebido, manual mantém parado
	d := m.Evaluate(st, clearFrame())
	if d.Command.Direction != models.DirStop {
		t.Fatalf("manual sem comando deveria parar, obtido %s", d.Command.Direction)
	}

	if err := st.SetManual(models.MotionCommand{Direction: models.DirRight, Speed: 150}); err != nil {
		t.Fatalf("comando manual: %v", err)
	}

	// Obstáculo próximo é apenas informativo em modo manual
	frame := clearFrame()
	frame.RadarDistance = 3
	for i := 0; i < 3; i++ {
		d = m.Evaluate(st, frame)
		if d.Command.Direction != models.DirRight || d.Command.Speed != 150 {
			t.Fatalf("ciclo %d: manual deveria manter o último comando, obtido %+v", i, d.Command)
		}
		if d.Alert {
			t.Fatalf("ciclo %d: sem gás crítico não deveria haver alerta", i)
		}
	}
}

func TestManualRejectedInAutonomous(t *testing.T) {
	st := NewState()
	st.SetMode(models.ModeAutonomous)

	err := st.SetManual(models.MotionCommand{Direction: models.DirForward, Speed: 200})
	if err != ErrAutonomousActive {
		t.Fatalf("esperado ErrAutonomousActive, obtido %v", err)
	}
}

func TestAutonomousCruisesWhenClear(t *testing.T) {
	m := newTestMachine()
	st := NewState()
	st.SetMode(models.ModeAutonomous)

	d := m.Evaluate(st, clearFrame())
	if d.Command.Direction != models.DirForward || d.Command.Speed != 200 {
		t.Fatalf("esperado cruzeiro para frente a 200, obtido %+v", d.Command)
	}
	if d.Reason != ReasonCruise {
		t.Fatalf("esperado motivo %s, obtido %s", ReasonCruise, d.Reason)
	}
}

func TestAutonomousRecoveryManeuverSequence(t *testing.T) {
	m := newTestMachine()
	st := NewState()
	st.SetMode(models.ModeAutonomous)

	near := clearFrame()
	near.RadarDistance = 10

	// Ré por 2 ciclos (400ms a 200ms/ciclo), depois giro por 2 ciclos,
	// depois retorno ao cruzeiro. O obstáculo some após o primeiro ciclo.
	expected := []models.Direction{models.DirBackward, models.DirBackward, models.DirLeft, models.DirLeft, models.DirForward}

	frame := near
	for i, want := range expected {
		d := m.Evaluate(st, frame)
		if d.Command.Direction != want {
			t.Fatalf("ciclo %d: esperado %s, obtido %s", i, want, d.Command.Direction)
		}
		frame = clearFrame()
	}
}

func TestManeuverNotRestartedWhileInProgress(t *testing.T) {
	m := newTestMachine()
	st := NewState()
	st.SetMode(models.ModeAutonomous)

	near := clearFrame()
	near.RadarDistance = 10

	// Com o obstáculo persistindo, a manobra corrente segue até o fim em
	// vez de reiniciar a ré a cada ciclo
	expected := []models.Direction{models.DirBackward, models.DirBackward, models.DirLeft, models.DirLeft}
	for i, want := range expected {
		d := m.Evaluate(st, near)
		if d.Command.Direction != want {
			t.Fatalf("ciclo %d: esperado %s, obtido %s", i, want, d.Command.Direction)
		}
	}

	// Terminada a manobra com o obstáculo ainda presente, uma nova começa
	d := m.Evaluate(st, near)
	if d.Command.Direction != models.DirBackward {
		t.Fatalf("esperada nova manobra (ré), obtido %s", d.Command.Direction)
	}
}

func TestModeSwitchCancelsManeuver(t *testing.T) {
	m := newTestMachine()
	st := NewState()
	st.SetMode(models.ModeAutonomous)

	near := clearFrame()
	near.RadarDistance = 10

	d := m.Evaluate(st, near)
	if d.Command.Direction != models.DirBackward {
		t.Fatalf("esperada ré no início da manobra, obtido %s", d.Command.Direction)
	}
	if !st.ManeuverActive() {
		t.Fatal("manobra deveria estar ativa")
	}

	// A troca para manual descarta os passos restantes da manobra
	if !st.SetMode(models.ModeManual) {
		t.Fatal("troca de modo deveria reportar mudança")
	}
	if st.ManeuverActive() {
		t.Fatal("manobra deveria ter sido descartada na troca de modo")
	}

	d = m.Evaluate(st, clearFrame())
	if d.Command.Direction != models.DirStop {
		t.Fatalf("após troca para manual esperado stop, obtido %s", d.Command.Direction)
	}
}

func TestHazardCancelsManeuver(t *testing.T) {
	m := newTestMachine()
	st := NewState()
	st.SetMode(models.ModeAutonomous)

	near := clearFrame()
	near.RadarDistance = 10
	m.Evaluate(st, near)

	hazard := clearFrame()
	hazard.Smoke = 3000
	d := m.Evaluate(st, hazard)
	if d.Command.Direction != models.DirStop || !d.Hazard {
		t.Fatalf("gás crítico deveria vencer a manobra, obtido %+v", d)
	}
	if st.ManeuverActive() {
		t.Fatal("manobra deveria ter sido descartada pelo gás crítico")
	}
}

func TestDistanceSentinelMeansNoObstacle(t *testing.T) {
	m := newTestMachine()
	st := NewState()
	st.SetMode(models.ModeAutonomous)

	// Timeout do ultrassônico chega como o sentinela 400 e nunca como
	// obstáculo a zero centímetros
	frame := clearFrame()
	frame.RadarDistance = models.DistanceSentinel

	d := m.Evaluate(st, frame)
	if d.Command.Direction != models.DirForward {
		t.Fatalf("sentinela deveria ser tratado como sem obstáculo, obtido %s", d.Command.Direction)
	}
}

func TestMotionEventOnDirectionChange(t *testing.T) {
	m := newTestMachine()
	st := NewState()
	st.SetMode(models.ModeAutonomous)

	d := m.Evaluate(st, clearFrame())
	if d.Event == nil || d.Event.From != models.DirStop || d.Event.To != models.DirForward {
		t.Fatalf("esperado evento stop->forward, obtido %+v", d.Event)
	}

	// Mesma direção no ciclo seguinte: sem evento
	d = m.Evaluate(st, clearFrame())
	if d.Event != nil {
		t.Fatalf("direção inalterada não deveria gerar evento, obtido %+v", d.Event)
	}
}

func TestSetManualClampsSpeed(t *testing.T) {
	st := NewState()

	if err := st.SetManual(models.MotionCommand{Direction: models.DirForward, Speed: 900}); err != nil {
		t.Fatalf("comando manual: %v", err)
	}

	m := newTestMachine()
	d := m.Evaluate(st, clearFrame())
	if d.Command.Speed != 255 {
		t.Fatalf("velocidade deveria ser limitada a 255, obtida %d", d.Command.Speed)
	}
}

func TestParseDirectionUnknownResolvesToStop(t *testing.T) {
	dir, err := models.ParseDirection("X")
	if err == nil {
		t.Fatal("letra desconhecida deveria retornar erro")
	}
	if dir != models.DirStop {
		t.Fatalf("letra desconhecida deveria resolver para stop, obtido %s", dir)
	}

	dir, err = models.ParseDirection("f")
	if err != nil || dir != models.DirForward {
		t.Fatalf("letra minúscula deveria ser aceita: %s, %v", dir, err)
	}
}
