package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/validation"
)

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("testdata/empty.env")
	require.NoError(t, err)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"App.Name", cfg.App.Name, "GoInject"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"App.Debug", cfg.App.Debug, true},
		{"Container.ValidateOnBuild", cfg.Container.ValidateOnBuild, true},
		{"Container.LogLevel", cfg.Container.LogLevel, "info"},
		{"Container.Metrics", cfg.Container.Metrics, true},
		{"Container.MetricsNamespace", cfg.Container.MetricsNamespace, "goinject"},
		{"Container.Tracing", cfg.Container.Tracing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
	assert.Empty(t, cfg.Container.DisabledPolicies)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("APP_NAME", "MyApp")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("APP_DEBUG", "false")
	t.Setenv("CONTAINER_DISABLED_POLICIES", "argument-safety, circular-dependencies")
	t.Setenv("CONTAINER_METRICS", "false")

	cfg, err := config.Load("testdata/empty.env")
	require.NoError(t, err)

	assert.Equal(t, "MyApp", cfg.App.Name)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "9000", cfg.App.Port)
	assert.False(t, cfg.App.Debug)
	assert.False(t, cfg.Container.Metrics)
	assert.Equal(t, []string{container.PolicyArgumentSafety, container.PolicyCircular}, cfg.Container.DisabledPolicies)
}

func TestLoad_DotenvFile(t *testing.T) {
	t.Cleanup(func() {
		os.Unsetenv("APP_NAME")
		os.Unsetenv("APP_PORT")
	})

	cfg, err := config.Load("testdata/app.env")
	require.NoError(t, err)
	assert.Equal(t, "FromDotenv", cfg.App.Name)
	assert.Equal(t, "9100", cfg.App.Port)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	t.Setenv("CONTAINER_CONFIG_FILE", "testdata/container.yaml")
	t.Setenv("APP_PORT", "7100")

	cfg, err := config.Load("testdata/empty.env")
	require.NoError(t, err)

	assert.Equal(t, "FromYAML", cfg.App.Name)
	assert.Equal(t, "7100", cfg.App.Port, "environment wins over the file")
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.Container.ValidateOnBuild)
	assert.Equal(t, []string{container.PolicyArgumentSafety}, cfg.Container.DisabledPolicies)
	assert.Equal(t, "warn", cfg.Container.LogLevel)
	assert.Equal(t, "yaml_ns", cfg.Container.MetricsNamespace)
	assert.True(t, cfg.Container.Tracing)
}

func TestLoad_YAMLErrors(t *testing.T) {
	t.Setenv("CONTAINER_CONFIG_FILE", "testdata/missing.yaml")
	_, err := config.Load("testdata/empty.env")
	assert.ErrorIs(t, err, os.ErrNotExist)

	t.Setenv("CONTAINER_CONFIG_FILE", "testdata/broken.yaml")
	_, err = config.Load("testdata/empty.env")
	assert.ErrorContains(t, err, "parsing testdata/broken.yaml")
}

// ── Validate ─────────────────────────────────────────────────────────────────

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"APP_ENV", "staging"},
		{"APP_PORT", "http"},
		{"CONTAINER_LOG_LEVEL", "verbose"},
		{"CONTAINER_METRICS_NAMESPACE", "go-inject"},
		{"CONTAINER_DISABLED_POLICIES", "argument-safety,undefined-behaviors"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := config.Load("testdata/empty.env")
			var bag *validation.Errors
			require.ErrorAs(t, err, &bag)
			assert.NotEmpty(t, bag.First(tt.key), "errors: %+v", bag.Bag)
		})
	}
}

// ── Options / Logger ─────────────────────────────────────────────────────────

func TestContainerConfig_Options(t *testing.T) {
	cc := config.ContainerConfig{
		ValidateOnBuild:  false,
		DisabledPolicies: []string{container.PolicyArgumentSafety},
		Metrics:          true,
	}

	type Ctx struct{}
	type Handler struct{}
	bindings := []container.Binding{
		container.Bind[*Ctx](container.Factory(func() (any, error) { return &Ctx{}, nil }), container.InScope(container.PerRequest)),
		container.Bind[*Handler](container.Construct(func(container.Args) (any, error) { return &Handler{}, nil },
			container.Dep[*Ctx]()), container.InScope(container.Singleton)),
		container.Bind[*os.File](container.Provider{}, container.InScope(container.External)),
	}

	// Lifetime checks are disabled and the missing external is only
	// reported once resolved.
	m := container.NewMetrics("cfg_test")
	inj, err := container.Build(bindings, nil, cc.Options(zap.NewNop(), m)...)
	require.NoError(t, err)

	_, err = container.Resolve[*Handler](inj)
	require.NoError(t, err)
	_, err = container.Resolve[*os.File](inj)
	var missing *container.MissingExternalInstanceError
	assert.ErrorAs(t, err, &missing)

	_, err = container.Build(bindings, nil, config.Default().Container.Options(zap.NewNop(), nil)...)
	var lifetime *container.LifetimeSafetyError
	assert.ErrorAs(t, err, &lifetime)
}

func TestConfig_Logger(t *testing.T) {
	cfg := config.Default()
	cfg.Container.LogLevel = "warn"

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	cfg.Container.LogLevel = "loud"
	_, err = cfg.Logger()
	assert.Error(t, err)
}
