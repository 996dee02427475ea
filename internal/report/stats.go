package report

import (
	"fmt"
	"math"
	"strings"

	"pranbot_go/internal/models"
)

// ChannelStats resume um canal de sensor na janela analisada
type ChannelStats struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
}

// WindowStats agrega as estatísticas da janela de amostras
type WindowStats struct {
	Samples   int                     `json:"samples"`
	From      string                  `json:"from"`
	To        string                  `json:"to"`
	Channels  map[string]ChannelStats `json:"channels"`
	GPITrend  string                  `json:"gpiTrend"`
	Moderate  int                     `json:"moderateCount"`  // GPI > 100
	Unhealthy int                     `json:"unhealthyCount"` // GPI > 200
}

// channelLabels liga cada canal ao sensor físico que o produz
var channelLabels = map[string]string{
	"smoke":   "MQ-2 (Fumaça)",
	"methane": "MQ-3 (Metano)",
	"co":      "MQ-7 (CO)",
	"air":     "MQ-135 (Qualidade do Ar)",
	"gpi":     "GPI",
}

// computeStats calcula as estatísticas da janela de amostras
func computeStats(samples []models.SamplePoint) WindowStats {
	stats := WindowStats{
		Samples:  len(samples),
		Channels: make(map[string]ChannelStats),
	}
	if len(samples) == 0 {
		return stats
	}

	stats.From = samples[0].Timestamp.Format("2006-01-02 15:04:05")
	stats.To = samples[len(samples)-1].Timestamp.Format("2006-01-02 15:04:05")

	extract := map[string]func(models.SamplePoint) float64{
		"smoke":   func(s models.SamplePoint) float64 { return float64(s.Smoke) },
		"methane": func(s models.SamplePoint) float64 { return float64(s.Methane) },
		"co":      func(s models.SamplePoint) float64 { return float64(s.CO) },
		"air":     func(s models.SamplePoint) float64 { return float64(s.Air) },
		"gpi":     func(s models.SamplePoint) float64 { return float64(s.GPI) },
	}

	for channel, get := range extract {
		values := make([]float64, len(samples))
		for i, sample := range samples {
			values[i] = get(sample)
		}
		stats.Channels[channel] = summarize(channelLabels[channel], values)
	}

	// Tendência do GPI: média das 5 últimas amostras contra as 5 primeiras
	head := min(5, len(samples))
	var firstSum, lastSum float64
	for i := 0; i < head; i++ {
		firstSum += float64(samples[i].GPI)
		lastSum += float64(samples[len(samples)-1-i].GPI)
	}
	if lastSum > firstSum {
		stats.GPITrend = "crescente"
	} else {
		stats.GPITrend = "decrescente"
	}

	for _, sample := range samples {
		if sample.GPI > 100 {
			stats.Moderate++
		}
		if sample.GPI > 200 {
			stats.Unhealthy++
		}
	}

	return stats
}

// summarize calcula min/max/média/desvio padrão de uma série
func summarize(label string, values []float64) ChannelStats {
	cs := ChannelStats{Label: label, Min: values[0], Max: values[0]}

	var sum float64
	for _, v := range values {
		if v < cs.Min {
			cs.Min = v
		}
		if v > cs.Max {
			cs.Max = v
		}
		sum += v
	}
	cs.Mean = sum / float64(len(values))

	var variance float64
	for _, v := range values {
		diff := v - cs.Mean
		variance += diff * diff
	}
	if len(values) > 1 {
		// Desvio padrão amostral
		variance /= float64(len(values) - 1)
	}
	cs.Std = math.Sqrt(variance)

	return cs
}

// buildPrompt monta o prompt do analista ambiental com as estatísticas da janela
func buildPrompt(stats WindowStats) string {
	var b strings.Builder

	b.WriteString("You are an expert environmental safety analyst reviewing sensor data from an ")
	b.WriteString("autonomous gas detection robot called Pran-Bot. Analyze the following sensor data ")
	b.WriteString("and provide a comprehensive technical report.\n\n")

	b.WriteString("Sensor Data Statistics:\n")
	fmt.Fprintf(&b, "- Total Records: %d\n", stats.Samples)
	fmt.Fprintf(&b, "- Time Range: %s to %s\n\n", stats.From, stats.To)

	for _, channel := range []string{"smoke", "methane", "co", "air", "gpi"} {
		cs := stats.Channels[channel]
		fmt.Fprintf(&b, "%s: Min=%.0f, Max=%.0f, Mean=%.1f, Std=%.1f\n",
			cs.Label, cs.Min, cs.Max, cs.Mean, cs.Std)
	}

	pct := func(count int) float64 {
		if stats.Samples == 0 {
			return 0
		}
		return float64(count) / float64(stats.Samples) * 100
	}

	b.WriteString("\nTrend Analysis:\n")
	fmt.Fprintf(&b, "- GPI Trend: %s\n", stats.GPITrend)
	fmt.Fprintf(&b, "- Records with Moderate+ GPI (>100): %d (%.1f%%)\n", stats.Moderate, pct(stats.Moderate))
	fmt.Fprintf(&b, "- Records with Unhealthy+ GPI (>200): %d (%.1f%%)\n", stats.Unhealthy, pct(stats.Unhealthy))

	b.WriteString(`
Please provide:

1. EXECUTIVE SUMMARY (2-3 paragraphs):
- Overall air quality assessment
- Key findings and concerns
- Risk level classification

2. DETAILED SENSOR ANALYSIS:
- Analysis of each sensor (MQ-2, MQ-3, MQ-7, MQ-135)
- What each reading indicates about environmental conditions
- Correlation between sensors

3. GAS POLLUTION INDEX (GPI) ASSESSMENT:
- GPI trend interpretation
- Time periods of concern
- Comparison to safety standards

4. SAFETY RECOMMENDATIONS:
- Immediate actions if needed
- Long-term monitoring suggestions
- Ventilation recommendations

5. TECHNICAL CONCLUSIONS:
- Sensor calibration observations
- Data quality assessment
- System performance notes

Write in a professional, technical style suitable for industrial safety reports. Be specific with numbers and percentages.`)

	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
