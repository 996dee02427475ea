package gpi

import (
	"math/rand"
	"testing"

	"pranbot_go/internal/models"
)

func testBaselines() Baselines {
	return Baselines{Smoke: 800, Methane: 120, CO: 40, Air: 90}
}

func TestComputeCleanAir(t *testing.T) {
	frame := models.SensorFrame{Smoke: 0, Methane: 0, CO: 0, Air: 0}
	index := Compute(frame, testBaselines())

	if index.Value != 0 {
		t.Fatalf("ar limpo deveria resultar em GPI 0, obtido %d", index.Value)
	}
	if index.Tier != models.TierGood {
		t.Fatalf("ar limpo deveria resultar em faixa good, obtida %s", index.Tier)
	}
}

func TestComputeWorkedExample(t *testing.T) {
	// razões = {5, 1, 1, 1}, média = 2, raw = 100*log10(11) = 104.1
	frame := models.SensorFrame{Smoke: 4000, Methane: 120, CO: 40, Air: 90}
	index := Compute(frame, testBaselines())

	if index.Value != 104 {
		t.Fatalf("esperado GPI 104, obtido %d", index.Value)
	}
	if index.Tier != models.TierUnhealthy {
		t.Fatalf("esperada faixa unhealthy, obtida %s", index.Tier)
	}
}

func TestComputeBounded(t *testing.T) {
	b := testBaselines()
	extremes := []models.SensorFrame{
		{},
		{Smoke: 4095, Methane: 4095, CO: 4095, Air: 4095},
		{Smoke: 1 << 30, Methane: 1 << 30, CO: 1 << 30, Air: 1 << 30},
		{Smoke: 4095},
		{CO: 4095},
	}

	for _, frame := range extremes {
		index := Compute(frame, b)
		if index.Value < 0 || index.Value > IndexMax {
			t.Fatalf("GPI fora de [0,%d] para frame %+v: %d", IndexMax, frame, index.Value)
		}
	}
}

func TestComputeBoundedRandomized(t *testing.T) {
	b := testBaselines()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 5000; i++ {
		frame := models.SensorFrame{
			Smoke:   rng.Intn(1 << 20),
			Methane: rng.Intn(1 << 20),
			CO:      rng.Intn(1 << 20),
			Air:     rng.Intn(1 << 20),
		}
		index := Compute(frame, b)
		if index.Value < 0 || index.Value > IndexMax {
			t.Fatalf("GPI fora de [0,%d] para frame %+v: %d", IndexMax, frame, index.Value)
		}
	}
}

func TestComputeMonotonicPerChannel(t *testing.T) {
	b := testBaselines()
	base := models.SensorFrame{Smoke: 300, Methane: 200, CO: 100, Air: 400}

	channels := []struct {
		name string
		set  func(models.SensorFrame, int) models.SensorFrame
	}{
		{"smoke", func(f models.SensorFrame, v int) models.SensorFrame { f.Smoke = v; return f }},
		{"methane", func(f models.SensorFrame, v int) models.SensorFrame { f.Methane = v; return f }},
		{"co", func(f models.SensorFrame, v int) models.SensorFrame { f.CO = v; return f }},
		{"air", func(f models.SensorFrame, v int) models.SensorFrame { f.Air = v; return f }},
	}

	for _, ch := range channels {
		prev := -1
		for v := 0; v <= 4095; v += 15 {
			index := Compute(ch.set(base, v), b)
			if index.Value < prev {
				t.Fatalf("GPI não monotônico no canal %s: valor %d caiu de %d para %d",
					ch.name, v, prev, index.Value)
			}
			prev = index.Value
		}
	}
}

func TestTierBreakpoints(t *testing.T) {
	cases := []struct {
		value int
		tier  models.Tier
	}{
		{0, models.TierGood},
		{50, models.TierGood},
		{51, models.TierModerate},
		{100, models.TierModerate},
		{101, models.TierUnhealthy},
		{200, models.TierUnhealthy},
		{201, models.TierVeryUnhealthy},
		{300, models.TierVeryUnhealthy},
		{301, models.TierHazardous},
		{500, models.TierHazardous},
	}

	for _, tc := range cases {
		if got := TierFor(tc.value); got != tc.tier {
			t.Errorf("TierFor(%d) = %s, esperado %s", tc.value, got, tc.tier)
		}
	}
}

func TestComputeZeroBaselineIsSafe(t *testing.T) {
	// Baseline zerada não pode causar divisão por zero nem índice negativo
	frame := models.SensorFrame{Smoke: 1000, Methane: 1000, CO: 1000, Air: 1000}
	index := Compute(frame, Baselines{})

	if index.Value != 0 {
		t.Fatalf("baselines zeradas deveriam anular o índice, obtido %d", index.Value)
	}
}
