package main

import (
	"testing"

	"go.uber.org/zap"

	"sensor_data_service/config"
)

func TestRun_UsageErrors(t *testing.T) {
	a := &app{cfg: config.Default(), log: zap.NewNop()}

	tests := []struct {
		name    string
		command string
	}{
		{"migrate:create without name", "migrate:create"},
		{"scan without directory", "scan"},
		{"generate without directory", "generate"},
		{"unknown command", "frobnicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := a.run(tt.command, nil); err == nil {
				t.Errorf("expected %q to fail", tt.command)
			}
		})
	}
}

func TestRun_Generate(t *testing.T) {
	a := &app{cfg: config.Default(), log: zap.NewNop()}
	if err := a.run("generate", []string{t.TempDir()}); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
}
