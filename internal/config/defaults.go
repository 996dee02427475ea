package config

import "time"

// getDefaultConfig retorna uma configuração padrão
func getDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Robot: RobotConfig{
			Transport:            "http",
			BaseURL:              "http://192.168.4.1",
			MQTTBroker:           "tcp://192.168.4.2:1883",
			MQTTTelemetryTopic:   "pranbot/telemetry",
			MQTTCommandTopic:     "pranbot/cmd",
			SampleRate:           150 * time.Millisecond,
			ReadTimeout:          500 * time.Millisecond,
			MaxConsecutiveErrors: 5,
			ReconnectDelay:       2 * time.Second,
			Debug:                true,
		},
		Control: ControlConfig{
			SmokeCritical:    2000,
			COCritical:       1500,
			SmokeBaseline:    800,
			MethaneBaseline:  120,
			COBaseline:       40,
			AirBaseline:      90,
			NearFieldCm:      25,
			CruiseSpeed:      200,
			ManualSpeed:      200,
			ManeuverSpeed:    180,
			BackwardDuration: 400 * time.Millisecond,
			TurnDuration:     300 * time.Millisecond,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
			Prefix:   "pranbot",
			Enabled:  true,
		},
		PLC: PLCConfig{
			Enabled:      false,
			Host:         "192.168.1.100",
			Rack:         0,
			Slot:         1,
			DBNumber:     20,
			UpdateRate:   500 * time.Millisecond,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Report: ReportConfig{
			OllamaURL:  "http://localhost:11434",
			Model:      "gemma2:9b",
			MaxTokens:  3000,
			Timeout:    120 * time.Second,
			MinSamples: 3,
			WindowSize: 200,
		},
	}
}
