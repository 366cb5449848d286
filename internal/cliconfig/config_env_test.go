package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"SKYCONDITION_ENDPOINT":        "envPipe",
				"SKYCONDITION_STATUS_FILE":     "/env/status.json",
				"SKYCONDITION_LOG_LEVEL":       "warn",
				"SKYCONDITION_LOG_FORMAT":      "json",
				"SKYCONDITION_BACKOFF_INITIAL": "2s",
				"SKYCONDITION_BACKOFF_MAX":     "1m",
				"SKYCONDITION_MAX_LINE_BYTES":  "64",
				"SKYCONDITION_WATCH_ENDPOINT":  "false",
			},
			changed: map[string]bool{},
			initial: Config{WatchEndpoint: true},
			expected: Config{
				Endpoint:       "envPipe",
				StatusFile:     "/env/status.json",
				LogLevel:       "warn",
				LogFormat:      "json",
				BackoffInitial: 2 * time.Second,
				BackoffMax:     time.Minute,
				MaxLineBytes:   64,
				WatchEndpoint:  false,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"SKYCONDITION_ENDPOINT":  "envPipe",
				"SKYCONDITION_LOG_LEVEL": "debug",
			},
			changed:  map[string]bool{"endpoint": true},
			initial:  Config{Endpoint: "flagPipe"},
			expected: Config{Endpoint: "flagPipe", LogLevel: "debug"},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"SKYCONDITION_BACKOFF_INITIAL": "not-a-duration",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"SKYCONDITION_MAX_LINE_BYTES": "lots",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid bool",
			envVars: map[string]string{
				"SKYCONDITION_WATCH_ENDPOINT": "maybe",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	trueVal := true

	fileConf := FileConfig{
		Endpoint:      "fileEndpoint",
		LogLevel:      "error",
		StatusFile:    "/file/status.json",
		WatchEndpoint: &trueVal,
	}

	t.Setenv("SKYCONDITION_ENDPOINT", "envEndpoint")
	t.Setenv("SKYCONDITION_LOG_LEVEL", "debug")

	// Simulate CLI flags
	changed := map[string]bool{
		"endpoint": true,
	}

	cfg := Config{
		Endpoint: "cliEndpoint",
	}

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.Endpoint != "cliEndpoint" {
		t.Errorf("Endpoint = %v, want cliEndpoint (CLI should win)", cfg.Endpoint)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug (env should override file)", cfg.LogLevel)
	}
	if cfg.StatusFile != "/file/status.json" {
		t.Errorf("StatusFile = %v, want /file/status.json (file should set)", cfg.StatusFile)
	}
	if !cfg.WatchEndpoint {
		t.Error("WatchEndpoint = false, want true (file should set)")
	}
}
