package server_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/NicolasHaas/nforce/pkg/server"
)

func TestParseModConfig(t *testing.T) {
	tests := map[string]struct {
		yaml    string
		want    server.ModConfig
		wantErr bool
	}{
		"full config": {
			yaml: `
guild_id: "123"
report_channel_id: "456"
mod_role_ids:
  - "789"
  - "790"
`,
			want: server.ModConfig{
				GuildID:         "123",
				ReportChannelID: "456",
				ModRoleIDs:      []string{"789", "790"},
			},
		},
		"guild id optional": {
			yaml: `
report_channel_id: "456"
mod_role_ids: ["789"]
`,
			want: server.ModConfig{ReportChannelID: "456", ModRoleIDs: []string{"789"}},
		},
		"missing channel":   {yaml: `mod_role_ids: ["789"]`, wantErr: true},
		"missing mod roles": {yaml: `report_channel_id: "456"`, wantErr: true},
		"invalid yaml":      {yaml: `:{nope`, wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := server.ParseModConfig([]byte(tc.yaml))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseModConfig: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadModConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod.yaml")
	data := []byte("report_channel_id: \"456\"\nmod_role_ids: [\"789\"]\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := server.LoadModConfig(path)
	if err != nil {
		t.Fatalf("LoadModConfig: %v", err)
	}
	if cfg.ReportChannelID != "456" {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := server.LoadModConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
