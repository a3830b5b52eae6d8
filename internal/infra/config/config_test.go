package config

import "testing"

func TestModelMapDecodeKeepsColons(t *testing.T) {
	var m ModelMap
	if err := m.Decode("claude-3-5-sonnet-20241022 = us.anthropic.claude-3-5-sonnet-20241022-v2:0, claude-3-haiku-20240307=anthropic.claude-3-haiku-20240307-v1:0,"); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(m) != 2 || m["claude-3-5-sonnet-20241022"] != "us.anthropic.claude-3-5-sonnet-20241022-v2:0" {
		t.Fatalf("неожиданная карта: %v", m)
	}
	if err := m.Decode("broken"); err == nil {
		t.Fatal("ожидали ошибку для пары без =")
	}
}

func TestLoadReadsModelMap(t *testing.T) {
	t.Setenv("AI_BEDROCK_MODELS", "claude-x=anthropic.claude-x-v3:0")
	cfg := Load()
	if cfg.AI.BedrockModels["claude-x"] != "anthropic.claude-x-v3:0" {
		t.Fatalf("карта моделей не загружена: %v", cfg.AI.BedrockModels)
	}
}
