package robot

import (
	"errors"
	"testing"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/control"
	"pranbot_go/internal/models"
)

func testRobotConfig() config.RobotConfig {
	return config.RobotConfig{
		Transport:            "sim",
		SampleRate:           10 * time.Millisecond,
		ReadTimeout:          100 * time.Millisecond,
		MaxConsecutiveErrors: 3,
		ReconnectDelay:       time.Millisecond,
	}
}

func testControlConfigForService() config.ControlConfig {
	return config.ControlConfig{
		SmokeCritical:    2000,
		COCritical:       1500,
		SmokeBaseline:    800,
		MethaneBaseline:  120,
		COBaseline:       40,
		AirBaseline:      90,
		NearFieldCm:      25,
		CruiseSpeed:      200,
		ManualSpeed:      170,
		ManeuverSpeed:    180,
		BackwardDuration: 40 * time.Millisecond,
		TurnDuration:     30 * time.Millisecond,
	}
}

func clearServiceFrame() models.SensorFrame {
	return models.SensorFrame{
		Smoke:         400,
		Methane:       150,
		CO:            60,
		Air:           200,
		Battery:       3900,
		RadarAngle:    90,
		RadarDistance: models.DistanceSentinel,
	}
}

func newRunningService(t *testing.T, link Link) *Service {
	t.Helper()

	service, err := NewService(testRobotConfig(), testControlConfigForService(), link, nil, nil)
	if err != nil {
		t.Fatalf("erro ao criar serviço: %v", err)
	}
	if err := service.Start(); err != nil {
		t.Fatalf("erro ao iniciar serviço: %v", err)
	}
	t.Cleanup(service.Stop)
	return service
}

// waitFor espera uma condição virar verdadeira dentro do prazo
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestServiceProducesRecords(t *testing.T) {
	link := &fakeLink{frame: clearServiceFrame()}
	service := newRunningService(t, link)

	waitFor(t, time.Second, func() bool {
		return service.CurrentRecord() != nil
	}, "ciclo de controle não produziu nenhum registro")

	record := service.CurrentRecord()
	if record.Smoke != 400 || record.CO != 60 {
		t.Errorf("registro não reflete o frame lido: %+v", record)
	}
	if record.Mode != models.ModeManual {
		t.Errorf("modo inicial deveria ser manual, obtido %s", record.Mode)
	}
	if record.Alert {
		t.Error("ar limpo não deveria gerar alerta")
	}
}

func TestServiceManualCommandReachesActuator(t *testing.T) {
	link := &fakeLink{frame: clearServiceFrame()}
	service := newRunningService(t, link)

	cmd := models.MotionCommand{Direction: models.DirForward, Speed: 150}
	if err := service.ManualCommand(cmd); err != nil {
		t.Fatalf("comando manual rejeitado: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		last, ok := link.lastDrive()
		return ok && last == cmd
	}, "comando manual não chegou ao atuador")
}

func TestServiceManualRejectedInAutonomousMode(t *testing.T) {
	link := &fakeLink{frame: clearServiceFrame()}
	service := newRunningService(t, link)

	if err := service.SetMode(models.ModeAutonomous); err != nil {
		t.Fatalf("troca de modo falhou: %v", err)
	}

	err := service.ManualCommand(models.MotionCommand{Direction: models.DirForward, Speed: 100})
	if !errors.Is(err, control.ErrAutonomousActive) {
		t.Fatalf("esperado ErrAutonomousActive, obtido %v", err)
	}
}

func TestServiceAutonomousCruises(t *testing.T) {
	link := &fakeLink{frame: clearServiceFrame()}
	service := newRunningService(t, link)

	if err := service.SetMode(models.ModeAutonomous); err != nil {
		t.Fatalf("troca de modo falhou: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		last, ok := link.lastDrive()
		return ok && last.Direction == models.DirForward && last.Speed == 200
	}, "modo autônomo sem obstáculo deveria avançar em cruzeiro")
}

func TestServiceHazardStopsRobot(t *testing.T) {
	link := &fakeLink{frame: clearServiceFrame()}
	service := newRunningService(t, link)

	if err := service.SetMode(models.ModeAutonomous); err != nil {
		t.Fatalf("troca de modo falhou: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		last, ok := link.lastDrive()
		return ok && last.Direction == models.DirForward
	}, "robô não chegou a andar")

	hazard := clearServiceFrame()
	hazard.Smoke = 3000
	link.setFrame(hazard)

	waitFor(t, time.Second, func() bool {
		last, ok := link.lastDrive()
		return ok && last.Direction == models.DirStop
	}, "gás crítico deveria parar o robô")

	waitFor(t, time.Second, func() bool {
		record := service.CurrentRecord()
		return record != nil && record.Alert
	}, "registro deveria refletir o alerta ativo")
}

func TestServiceManualHeldDuringHazard(t *testing.T) {
	hazard := clearServiceFrame()
	hazard.CO = 2000
	link := &fakeLink{frame: hazard}
	service := newRunningService(t, link)

	waitFor(t, time.Second, func() bool {
		record := service.CurrentRecord()
		return record != nil && record.Alert
	}, "alerta não ativou")

	// O comando é aceito durante o alerta, mas a arbitragem de segurança
	// mantém o robô parado enquanto o gás estiver crítico
	cmd := models.MotionCommand{Direction: models.DirForward, Speed: 100}
	if err := service.ManualCommand(cmd); err != nil {
		t.Fatalf("comando manual durante alerta deveria ser aceito: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if last, ok := link.lastDrive(); ok && last.Direction != models.DirStop {
		t.Fatalf("robô deveria permanecer parado sob alerta, atuado %+v", last)
	}

	// Com o gás de volta ao normal, o comando retido entra em vigor
	link.setFrame(clearServiceFrame())

	waitFor(t, time.Second, func() bool {
		last, ok := link.lastDrive()
		return ok && last == cmd
	}, "comando retido deveria retomar após o fim do alerta")
}

func TestServiceManualCommandDefaultsFixedSpeed(t *testing.T) {
	link := &fakeLink{frame: clearServiceFrame()}
	service := newRunningService(t, link)

	// Velocidade omitida assume a velocidade manual fixa configurada
	if err := service.ManualCommand(models.MotionCommand{Direction: models.DirForward}); err != nil {
		t.Fatalf("comando manual rejeitado: %v", err)
	}

	want := testControlConfigForService().ManualSpeed
	waitFor(t, time.Second, func() bool {
		last, ok := link.lastDrive()
		return ok && last.Direction == models.DirForward && last.Speed == want
	}, "comando sem velocidade deveria andar na velocidade manual fixa")
}

func TestServiceKeepsCyclingOnReadFailure(t *testing.T) {
	link := &fakeLink{frame: clearServiceFrame()}
	service := newRunningService(t, link)

	waitFor(t, time.Second, func() bool {
		return service.CurrentRecord() != nil
	}, "ciclo não produziu registro inicial")

	link.setReadErr(errors.New("sem resposta do firmware"))

	waitFor(t, time.Second, func() bool {
		return service.GetStatus().Status == "falha_comunicacao"
	}, "status deveria indicar falha de comunicação")

	// O último registro real é preservado durante a falha
	if service.CurrentRecord() == nil {
		t.Fatal("último registro real deveria ser preservado")
	}

	link.setReadErr(nil)

	waitFor(t, time.Second, func() bool {
		return service.GetStatus().Status == "ok"
	}, "status deveria voltar a ok após recuperação")
}

func TestServiceModeSwitchPropagatesToFirmware(t *testing.T) {
	link := &fakeLink{frame: clearServiceFrame()}
	service := newRunningService(t, link)

	if err := service.SetMode(models.ModeAutonomous); err != nil {
		t.Fatalf("troca de modo falhou: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		link.mu.Lock()
		defer link.mu.Unlock()
		for _, auto := range link.autos {
			if auto {
				return true
			}
		}
		return false
	}, "modo autônomo não foi propagado ao firmware")

	if service.Mode() != models.ModeAutonomous {
		t.Errorf("modo do serviço deveria ser autônomo, obtido %s", service.Mode())
	}
}
