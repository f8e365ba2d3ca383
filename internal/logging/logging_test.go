package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sghaida/modwire/internal/config"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     string
		level   string
		wantErr bool
	}{
		{name: "production", env: "production", level: "warn"},
		{name: "development", env: "development", level: "debug"},
		{name: "bad_level", env: "development", level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			cfg.Environment = tt.env
			cfg.LogLevel = tt.level

			l, err := New(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
			switch tt.level {
			case "warn":
				assert.Nil(t, l.Check(zap.InfoLevel, "x"))
				assert.NotNil(t, l.Check(zap.WarnLevel, "x"))
			case "debug":
				assert.NotNil(t, l.Check(zap.DebugLevel, "x"))
			}
		})
	}
}
