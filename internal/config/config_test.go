// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "console", cfg.Logger().Format)
	assert.Equal(t, "pagestudy", cfg.Logger().ServiceName)
	assert.False(t, cfg.Study().CSSPaths)
	assert.False(t, cfg.Study().KeepClean)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser().NavigationTimeout)
	assert.Equal(t, 10*time.Second, cfg.Browser().SnapshotTimeout)
	assert.Equal(t, 2*time.Second, cfg.Browser().VisibilityTimeout)
	assert.Equal(t, 1280, cfg.Browser().ViewportWidth)

	require.NoError(t, cfg.Validate(), "defaults must always validate")
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetStudyCSSPaths(true)
	cfg.SetBrowserHeadless(false)

	assert.True(t, cfg.Study().CSSPaths)
	assert.False(t, cfg.Browser().Headless)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Logger Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.LoggerCfg.Format = "xml"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger configuration invalid")
		assert.Contains(t, err.Error(), `got "xml"`)

		cfg = NewDefaultConfig()
		cfg.LoggerCfg.LogFile = "pagestudy.log"
		cfg.LoggerCfg.MaxSize = 0
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_size must be a positive integer")

		// Rotation size is irrelevant without a file.
		cfg.LoggerCfg.LogFile = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Browser Validation", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(*BrowserConfig)
			wantErr string
		}{
			{"Navigation timeout", func(b *BrowserConfig) { b.NavigationTimeout = 0 }, "navigation_timeout must be a positive duration"},
			{"Snapshot timeout", func(b *BrowserConfig) { b.SnapshotTimeout = -time.Second }, "snapshot_timeout must be a positive duration"},
			{"Visibility timeout", func(b *BrowserConfig) { b.VisibilityTimeout = 0 }, "visibility_timeout must be a positive duration"},
			{"Viewport", func(b *BrowserConfig) { b.ViewportHeight = 0 }, "viewport_width and viewport_height must be positive integers"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := NewDefaultConfig()
				tt.mutate(&cfg.BrowserCfg)
				err := cfg.Validate()
				require.Error(t, err)
				assert.Contains(t, err.Error(), "browser configuration invalid")
				assert.Contains(t, err.Error(), tt.wantErr)
			})
		}
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Valid Configuration", func(t *testing.T) {
		yamlBytes := []byte(`
logger:
  level: debug
  format: json
study:
  css_paths: true
browser:
  headless: false
  navigation_timeout: 45s
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		err := v.ReadConfig(bytes.NewBuffer(yamlBytes))
		require.NoError(t, err)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "debug", cfg.Logger().Level)
		assert.Equal(t, "json", cfg.Logger().Format)
		assert.True(t, cfg.Study().CSSPaths)
		assert.False(t, cfg.Browser().Headless)
		assert.Equal(t, 45*time.Second, cfg.Browser().NavigationTimeout)
		// Untouched keys keep their defaults.
		assert.Equal(t, 2*time.Second, cfg.Browser().VisibilityTimeout)
	})

	t.Run("Chrome Path From Environment", func(t *testing.T) {
		t.Setenv("PAGESTUDY_CHROME_PATH", "/opt/chrome/chrome")

		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "/opt/chrome/chrome", cfg.Browser().ExecPath)
	})

	t.Run("Invalid Configuration", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("browser.visibility_timeout", "0s")

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("Malformed Duration", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("browser.navigation_timeout", "soon")

		_, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "error unmarshaling config")
	})
}

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  service_name: study-test
  log_file: /tmp/pagestudy.log
  max_size: 5
  colors:
    info: green
    error: red
study:
  keep_clean: true
browser:
  args:
    - --disable-gpu
    - --no-sandbox
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	err := v.ReadConfig(bytes.NewBufferString(yamlInput))
	require.NoError(t, err)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "study-test", cfg.Logger().ServiceName)
	assert.Equal(t, "/tmp/pagestudy.log", cfg.Logger().LogFile)
	assert.Equal(t, 5, cfg.Logger().MaxSize)
	assert.Equal(t, "green", cfg.Logger().Colors.Info)
	assert.Equal(t, "red", cfg.Logger().Colors.Error)
	assert.True(t, cfg.Study().KeepClean)
	assert.Equal(t, []string{"--disable-gpu", "--no-sandbox"}, cfg.Browser().Args)
}
