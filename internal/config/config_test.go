package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/demostage/internal/errors"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, ModeServe, cfg.Mode)
	require.Equal(t, DefaultRootDir, cfg.RootDir)
	require.Equal(t, DefaultScratchDir, cfg.ScratchDir)
	require.Equal(t, DefaultReservedEntry, cfg.ReservedEntry)
	require.Equal(t, DefaultPort, cfg.Serve.Port)
	require.True(t, cfg.Serve.HTTPS)
	require.True(t, cfg.Serve.LiveReload)
	require.True(t, cfg.Build.Minify)
}

func TestLoad_OverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("DEMOSTAGE_TEST_PORT", "4010")
	path := filepath.Join(t.TempDir(), "demostage.yaml")
	content := `
root: ./examples
serve:
  port: ${DEMOSTAGE_TEST_PORT}
  https: false
  browser: firefox
build:
  out_dir: ./public
logging:
  level: DEBUG
  format: json
env:
  DEMO_FEATURE: "on"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./examples", cfg.RootDir)
	require.Equal(t, DefaultScratchDir, cfg.ScratchDir)
	require.Equal(t, 4010, cfg.Serve.Port)
	require.False(t, cfg.Serve.HTTPS)
	require.True(t, cfg.Serve.Open, "keys missing from the file keep their defaults")
	require.Equal(t, "firefox", cfg.Serve.Browser)
	require.Equal(t, "./public", cfg.Build.OutDir)
	require.Equal(t, LogLevelDebug, cfg.Logging.Level)
	require.Equal(t, LogFormatJSON, cfg.Logging.Format)
	require.Equal(t, "on", cfg.Env["DEMO_FEATURE"])
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demostage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("serve: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeServe, m)

	m, err = ParseMode(" Build ")
	require.NoError(t, err)
	require.Equal(t, ModeBuild, m)

	_, err = ParseMode("deploy")
	require.Error(t, err)
}

func resolvedConfig(t *testing.T) *Config {
	t.Helper()
	base := t.TempDir()
	cfg := Defaults()
	cfg.RootDir = filepath.Join(base, "demos")
	cfg.ScratchDir = filepath.Join(base, ".demos")
	cfg.Build.OutDir = filepath.Join(base, "dist")
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"scratch inside root", func(c *Config) { c.ScratchDir = filepath.Join(c.RootDir, "tmp") }, "scratch"},
		{"scratch equals root", func(c *Config) { c.ScratchDir = c.RootDir }, "scratch"},
		{"scratch contains root", func(c *Config) { c.ScratchDir = filepath.Dir(c.RootDir) }, "scratch"},
		{"scratch is filesystem ancestor of root", func(c *Config) { c.ScratchDir = filepath.Dir(filepath.Dir(c.RootDir)) }, "scratch"},
		{"out dir equals root", func(c *Config) {
			c.Mode = ModeBuild
			c.Build.OutDir = c.RootDir
		}, "build.out_dir"},
		{"out dir inside root", func(c *Config) {
			c.Mode = ModeBuild
			c.Build.OutDir = filepath.Join(c.RootDir, "dist")
		}, "build.out_dir"},
		{"out dir contains root", func(c *Config) {
			c.Mode = ModeBuild
			c.Build.OutDir = filepath.Dir(c.RootDir)
		}, "build.out_dir"},
		{"serve ignores out dir", func(c *Config) {
			c.Mode = ModeServe
			c.Build.OutDir = c.RootDir
		}, ""},
		{"sibling scratch and out", func(c *Config) {
			c.Mode = ModeBuild
			c.ScratchDir = c.RootDir + "-scratch"
			c.Build.OutDir = c.RootDir + "-dist"
		}, ""},
		{"negative port", func(c *Config) { c.Serve.Port = -1 }, "serve.port"},
		{"reserved entry empty", func(c *Config) { c.ReservedEntry = "" }, "reserved_entry"},
		{"reserved entry with slash", func(c *Config) { c.ReservedEntry = "a/config.js" }, "reserved_entry"},
		{"bad mode", func(c *Config) { c.Mode = "deploy" }, "mode"},
		{"bad demo name", func(c *Config) { c.DemoFilter = []string{"../etc"} }, "demos"},
		{"out dir in scratch", func(c *Config) {
			c.Mode = ModeBuild
			c.Build.OutDir = filepath.Join(c.ScratchDir, "dist")
		}, "build.out_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := resolvedConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, derrors.IsCategory(err, derrors.CategoryConfig))
			dse, ok := derrors.As(err)
			require.True(t, ok)
			require.Equal(t, tt.field, dse.Context["field"])
		})
	}
}

func TestResolve_MakesPathsAbsolute(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Resolve())
	require.True(t, filepath.IsAbs(cfg.RootDir))
	require.True(t, filepath.IsAbs(cfg.ScratchDir))
	require.True(t, filepath.IsAbs(cfg.Build.OutDir))
	require.Equal(t, filepath.Dir(cfg.RootDir), filepath.Dir(cfg.ScratchDir), "scratch is a sibling of the demo root")
}

func TestLoadEnv_FilesProcessAndExtra(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("DEMO_ROOM=lobby\nDEMO_COLOR=red\nUNRELATED=skip\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"),
		[]byte("DEMO_COLOR=blue\n"), 0o600))
	t.Setenv("DEMO_FROM_PROCESS", "yes")

	env, err := LoadEnv(dir, map[string]string{"DEMO_EXTRA": "1"})
	require.NoError(t, err)
	require.Equal(t, "lobby", env["DEMO_ROOM"])
	require.Equal(t, "blue", env["DEMO_COLOR"], ".env.local overrides .env")
	require.Equal(t, "yes", env["DEMO_FROM_PROCESS"])
	require.Equal(t, "1", env["DEMO_EXTRA"])
	require.NotContains(t, env, "UNRELATED")
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	lc := LoggingConfig{Level: LogLevelWarn, Format: LogFormatJSON}
	logger := lc.NewLogger(os.Stderr)
	require.NotNil(t, logger)
	require.Equal(t, LogLevelInfo, NormalizeLogLevel("verbose"))
	require.Equal(t, LogFormatText, NormalizeLogFormat("xml"))
}
