package copywriter

import (
	"math"
	"strings"
)

const (
	modelHaiku  = "claude-3-haiku-20240307"
	modelSonnet = "claude-3-5-sonnet-20241022"
)

// ModelConfig модель и бюджет токенов для тарифа.
type ModelConfig struct {
	Model       string
	MaxTokens   int
	DisplayName string
}

var tierModels = map[string]ModelConfig{
	"free": {Model: modelHaiku, MaxTokens: 2000, DisplayName: "Claude 3 Haiku"},
	"pro":  {Model: modelSonnet, MaxTokens: 6000, DisplayName: "Claude 3.5 Sonnet"},
	"gold": {Model: modelSonnet, MaxTokens: 8000, DisplayName: "Claude 3.5 Sonnet"},
}

// ModelForTier возвращает конфигурацию модели. Неизвестный тариф считается free.
func ModelForTier(tier string) ModelConfig {
	if cfg, ok := tierModels[normalizeTier(tier)]; ok {
		return cfg
	}
	return tierModels["free"]
}

func normalizeTier(tier string) string {
	tier = strings.ToLower(strings.TrimSpace(tier))
	if _, ok := tierModels[tier]; ok {
		return tier
	}
	return "free"
}

type price struct {
	input  float64
	output float64
}

// стоимость за 1000 токенов
var modelPrices = map[string]price{
	"haiku":  {input: 0.00025, output: 0.00125},
	"sonnet": {input: 0.003, output: 0.015},
	"opus":   {input: 0.015, output: 0.075},
}

// EstimateCost считает стоимость по семейству модели. Неизвестные модели тарифицируются как haiku.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p := modelPrices["haiku"]
	lower := strings.ToLower(model)
	for family, candidate := range modelPrices {
		if strings.Contains(lower, family) {
			p = candidate
			break
		}
	}
	return float64(inputTokens)/1000*p.input + float64(outputTokens)/1000*p.output
}

// EstimateTokens грубая оценка количества токенов по длине текста.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	base := math.Ceil(float64(len(text)) / 3.5)
	return int(math.Ceil(base * 1.1))
}
