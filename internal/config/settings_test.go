package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    Settings
		wantErr bool
	}{
		{
			name:    "defaults",
			environ: map[string]string{},
			want:    Settings{Username: "admin", Settle: 2 * time.Second},
		},
		{
			name: "everything set",
			environ: map[string]string{
				"ESPCFG_HOST":      "kitchen.local",
				"ESPCFG_USERNAME":  "root",
				"ESPCFG_PASSWORD":  "fibonacci",
				"ESPCFG_LOG_LEVEL": "debug",
				"ESPCFG_SETTLE":    "500ms",
			},
			want: Settings{
				Host:     "kitchen.local",
				Username: "root",
				Password: "fibonacci",
				LogLevel: "debug",
				Settle:   500 * time.Millisecond,
			},
		},
		{
			name:    "unprefixed variables are ignored",
			environ: map[string]string{"HOST": "elsewhere"},
			want:    Settings{Username: "admin", Settle: 2 * time.Second},
		},
		{
			name:    "bad duration",
			environ: map[string]string{"ESPCFG_SETTLE": "soon"},
			wantErr: true,
		},
		{
			name:    "zero settle",
			environ: map[string]string{"ESPCFG_SETTLE": "0s"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadSettings(tt.environ)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}
