package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsCoherent(t *testing.T) {
	cfg := getDefaultConfig()

	if cfg.Server.Port <= 0 {
		t.Errorf("porta padrão inválida: %d", cfg.Server.Port)
	}
	if cfg.Robot.SampleRate <= 0 {
		t.Errorf("taxa de amostragem padrão inválida: %v", cfg.Robot.SampleRate)
	}
	if cfg.Robot.Transport != "http" {
		t.Errorf("transporte padrão deveria ser http, obtido %q", cfg.Robot.Transport)
	}

	// A manobra de desvio precisa caber em ciclos inteiros do laço de controle
	if cfg.Control.BackwardDuration < cfg.Robot.SampleRate {
		t.Errorf("duração da ré (%v) menor que um ciclo (%v)",
			cfg.Control.BackwardDuration, cfg.Robot.SampleRate)
	}

	if cfg.Control.SmokeCritical <= 0 || cfg.Control.COCritical <= 0 {
		t.Error("limiares críticos de gás devem ser positivos")
	}
	if cfg.Control.CruiseSpeed < 0 || cfg.Control.CruiseSpeed > 255 {
		t.Errorf("velocidade de cruzeiro fora da faixa PWM: %d", cfg.Control.CruiseSpeed)
	}
	if cfg.Control.ManualSpeed <= 0 || cfg.Control.ManualSpeed > 255 {
		t.Errorf("velocidade manual fixa fora da faixa PWM: %d", cfg.Control.ManualSpeed)
	}
	if cfg.Report.MinSamples <= 0 {
		t.Errorf("mínimo de amostras para relatório inválido: %d", cfg.Report.MinSamples)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PRANBOT_ROBOT_URL", "http://10.0.0.42")
	t.Setenv("PRANBOT_ROBOT_TRANSPORT", "mqtt")
	t.Setenv("PRANBOT_SERVER_PORT", "9090")
	t.Setenv("PRANBOT_REDIS_HOST", "redis.local")
	t.Setenv("PRANBOT_OLLAMA_URL", "http://ollama.local:11434")

	cfg := getDefaultConfig()
	applyEnvironmentOverrides(&cfg)

	if cfg.Robot.BaseURL != "http://10.0.0.42" {
		t.Errorf("URL do robô não sobrescrita: %q", cfg.Robot.BaseURL)
	}
	if cfg.Robot.Transport != "mqtt" {
		t.Errorf("transporte não sobrescrito: %q", cfg.Robot.Transport)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("porta não sobrescrita: %d", cfg.Server.Port)
	}
	if cfg.Redis.Host != "redis.local" {
		t.Errorf("host do Redis não sobrescrito: %q", cfg.Redis.Host)
	}
	if cfg.Report.OllamaURL != "http://ollama.local:11434" {
		t.Errorf("URL do Ollama não sobrescrita: %q", cfg.Report.OllamaURL)
	}
}

func TestEnvironmentOverrideIgnoresInvalidPort(t *testing.T) {
	t.Setenv("PRANBOT_SERVER_PORT", "não-é-porta")

	cfg := getDefaultConfig()
	defaultPort := cfg.Server.Port
	applyEnvironmentOverrides(&cfg)

	if cfg.Server.Port != defaultPort {
		t.Errorf("porta inválida não deveria sobrescrever o padrão: %d", cfg.Server.Port)
	}
}

// Garante que os padrões de duração são expressos em unidades de tempo reais
func TestDefaultDurationsAreSane(t *testing.T) {
	cfg := getDefaultConfig()

	if cfg.Robot.SampleRate < 10*time.Millisecond || cfg.Robot.SampleRate > time.Second {
		t.Errorf("taxa de amostragem padrão implausível: %v", cfg.Robot.SampleRate)
	}
	if cfg.Server.ShutdownTimeout < time.Second {
		t.Errorf("timeout de shutdown muito curto: %v", cfg.Server.ShutdownTimeout)
	}
}
