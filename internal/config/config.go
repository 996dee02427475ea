package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// Config representa a configuração completa da aplicação
type Config struct {
	Server  ServerConfig  `json:"server"`
	Robot   RobotConfig   `json:"robot"`
	Control ControlConfig `json:"control"`
	Redis   RedisConfig   `json:"redis"`
	PLC     PLCConfig     `json:"plc"`
	Report  ReportConfig  `json:"report"`
}

// ServerConfig contém configurações do servidor HTTP/WebSocket
type ServerConfig struct {
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
}

// RobotConfig contém configurações da ligação com o firmware do robô
type RobotConfig struct {
	Transport            string        `json:"transport"` // "http", "mqtt" ou "sim"
	BaseURL              string        `json:"baseUrl"`   // endereço do ESP32 no AP (transporte http)
	MQTTBroker           string        `json:"mqttBroker"`
	MQTTTelemetryTopic   string        `json:"mqttTelemetryTopic"`
	MQTTCommandTopic     string        `json:"mqttCommandTopic"`
	SampleRate           time.Duration `json:"sampleRate"`
	ReadTimeout          time.Duration `json:"readTimeout"` // limite por leitura de frame
	MaxConsecutiveErrors int           `json:"maxConsecutiveErrors"`
	ReconnectDelay       time.Duration `json:"reconnectDelay"`
	Debug                bool          `json:"debug"`
}

// ControlConfig contém os limiares e constantes da malha de controle.
// Os valores críticos foram calibrados para um lote específico de sensores MQ;
// por isso ficam em configuração e não em código.
type ControlConfig struct {
	SmokeCritical    int           `json:"smokeCritical"` // MQ-2, ADC
	COCritical       int           `json:"coCritical"`    // MQ-7, ADC
	SmokeBaseline    float64       `json:"smokeBaseline"` // leitura nominal em ar limpo
	MethaneBaseline  float64       `json:"methaneBaseline"`
	COBaseline       float64       `json:"coBaseline"`
	AirBaseline      float64       `json:"airBaseline"`
	NearFieldCm      float64       `json:"nearFieldCm"` // distância de manobra de desvio
	CruiseSpeed      int           `json:"cruiseSpeed"` // PWM 0-255
	ManualSpeed      int           `json:"manualSpeed"` // velocidade fixa dos comandos manuais
	ManeuverSpeed    int           `json:"maneuverSpeed"`
	BackwardDuration time.Duration `json:"backwardDuration"` // 1º passo da manobra
	TurnDuration     time.Duration `json:"turnDuration"`     // 2º passo da manobra
}

// RedisConfig contém configurações do Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
	Enabled  bool   `json:"enabled"`
}

// PLCConfig contém configurações para o espelhamento de alarmes no PLC da planta
type PLCConfig struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Rack         int           `json:"rack"`
	Slot         int           `json:"slot"`
	DBNumber     int           `json:"dbNumber"`
	UpdateRate   time.Duration `json:"updateRate"`
	ReadTimeout  time.Duration `json:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout"`
}

// ReportConfig contém configurações do gerador de relatórios via Ollama
type ReportConfig struct {
	OllamaURL  string        `json:"ollamaUrl"`
	Model      string        `json:"model"`
	MaxTokens  int           `json:"maxTokens"`
	Timeout    time.Duration `json:"timeout"`
	MinSamples int           `json:"minSamples"`
	WindowSize int           `json:"windowSize"` // quantas amostras recentes entram no relatório
}

// Load carrega a configuração do arquivo ou usa valores padrão
func Load() (*Config, error) {
	config := getDefaultConfig()

	// Verificar se existe um arquivo de configuração
	if _, err := os.Stat("config.json"); err == nil {
		file, err := os.Open("config.json")
		if err != nil {
			return nil, err
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			return nil, err
		}
	}

	// Sobrescrever com variáveis de ambiente, se existirem
	applyEnvironmentOverrides(&config)

	return &config, nil
}

// applyEnvironmentOverrides sobrescreve configurações com variáveis de ambiente
func applyEnvironmentOverrides(config *Config) {
	if v := os.Getenv("PRANBOT_ROBOT_URL"); v != "" {
		config.Robot.BaseURL = v
	}
	if v := os.Getenv("PRANBOT_ROBOT_TRANSPORT"); v != "" {
		config.Robot.Transport = v
	}
	if v := os.Getenv("PRANBOT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("PRANBOT_REDIS_HOST"); v != "" {
		config.Redis.Host = v
	}
	if v := os.Getenv("PRANBOT_OLLAMA_URL"); v != "" {
		config.Report.OllamaURL = v
	}
}
