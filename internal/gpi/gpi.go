// Package gpi calcula o Índice de Poluição por Gás (GPI): um valor limitado
// em [0, 500] que condensa as leituras dos quatro sensores MQ em uma única
// medida de severidade, mais a faixa discreta derivada dele.
package gpi

import (
	"math"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
)

// Limites superiores de cada faixa de severidade do GPI
const (
	GoodMax          = 50
	ModerateMax      = 100
	UnhealthyMax     = 200
	VeryUnhealthyMax = 300
	IndexMax         = 500
)

// Baselines são as leituras nominais de cada canal em ar limpo.
// A razão leitura/baseline normaliza sensores com faixas dinâmicas
// muito diferentes antes da média.
type Baselines struct {
	Smoke   float64
	Methane float64
	CO      float64
	Air     float64
}

// BaselinesFromConfig extrai as baselines da configuração de controle
func BaselinesFromConfig(cfg config.ControlConfig) Baselines {
	return Baselines{
		Smoke:   cfg.SmokeBaseline,
		Methane: cfg.MethaneBaseline,
		CO:      cfg.COBaseline,
		Air:     cfg.AirBaseline,
	}
}

// Compute deriva o GasIndex de um SensorFrame. A função é total sobre
// qualquer entrada não negativa: um canal que falhou e reporta 0 apenas
// contribui com razão 0, rebaixando o índice (falha segura para baixo).
func Compute(frame models.SensorFrame, b Baselines) models.GasIndex {
	avg := (ratio(frame.Smoke, b.Smoke) +
		ratio(frame.Methane, b.Methane) +
		ratio(frame.CO, b.CO) +
		ratio(frame.Air, b.Air)) / 4.0

	// Compressão logarítmica: mantém o índice utilizável mesmo com picos
	// de um único sensor, sem estourar o limite superior.
	raw := 100.0 * math.Log10(1.0+avg*5.0)

	value := int(math.Floor(raw))
	if value < 0 {
		value = 0
	}
	if value > IndexMax {
		value = IndexMax
	}

	return models.GasIndex{Value: value, Tier: TierFor(value)}
}

// TierFor mapeia um valor de GPI para a faixa de severidade correspondente
func TierFor(value int) models.Tier {
	switch {
	case value <= GoodMax:
		return models.TierGood
	case value <= ModerateMax:
		return models.TierModerate
	case value <= UnhealthyMax:
		return models.TierUnhealthy
	case value <= VeryUnhealthyMax:
		return models.TierVeryUnhealthy
	default:
		return models.TierHazardous
	}
}

// ratio calcula leitura/baseline protegendo contra baseline zero
func ratio(reading int, baseline float64) float64 {
	if baseline <= 0 {
		return 0
	}
	return float64(reading) / baseline
}
