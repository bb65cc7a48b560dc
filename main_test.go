package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/user/listkeeper-go/config"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       config.LogConfig
		wantErr   bool
		wantJSON  bool
		wantDebug bool
	}{
		{"json info", config.LogConfig{Level: "info", Format: "json"}, false, true, false},
		{"text debug", config.LogConfig{Level: "debug", Format: "text"}, false, false, true},
		{"upper case level", config.LogConfig{Level: "WARN", Format: "json"}, false, true, false},
		{"bad level", config.LogConfig{Level: "loud", Format: "json"}, true, false, false},
		{"bad format", config.LogConfig{Level: "info", Format: "xml"}, true, false, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(&tc.cfg, &buf)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newLogger: %v", err)
			}
			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tc.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tc.wantDebug)
			}
			logger.Error("sample", "k", "v")
			line := strings.TrimSpace(buf.String())
			if got := json.Valid([]byte(line)); got != tc.wantJSON {
				t.Errorf("output %q: valid json = %v, want %v", line, got, tc.wantJSON)
			}
		})
	}
}

func TestOpenStoreMemory(t *testing.T) {
	st, err := openStore(context.Background(), &config.StoreConfig{Driver: config.DriverMemory, Timeout: time.Second})
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	if st.Transactional() {
		t.Error("memory store reports transactional")
	}
	if err := st.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	if _, err := openStore(context.Background(), &config.StoreConfig{Driver: "sqlite"}); err == nil {
		t.Fatal("expected an error for an unknown driver")
	}
}
