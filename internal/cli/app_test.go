package cli

import (
	"path/filepath"
	"testing"

	"github.com/ppiankov/coinsight/internal/model"
)

func TestResolvePaths(t *testing.T) {
	tests := []struct {
		name    string
		dataDir string
		sqlite  string
		want    string
	}{
		{"default", "data", "data/history.db", filepath.Join("data", "history.db")},
		{"moved data dir", "/tmp/mtr", "data/history.db", filepath.Join("/tmp/mtr", "history.db")},
		{"custom path kept", "/tmp/mtr", "/var/lib/coinsight/runs.db", "/var/lib/coinsight/runs.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultConfig()
			cfg.DataDir = tt.dataDir
			cfg.History.SQLitePath = tt.sqlite
			resolvePaths(cfg)
			if cfg.History.SQLitePath != tt.want {
				t.Errorf("expected %q, got %q", tt.want, cfg.History.SQLitePath)
			}
		})
	}
}
