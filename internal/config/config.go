// Package config loads globe-visualizer settings from defaults, an optional
// YAML file and GLOBE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/signalsfoundry/globe-visualizer/core"
	"github.com/signalsfoundry/globe-visualizer/internal/logging"
	"github.com/signalsfoundry/globe-visualizer/internal/observability"
	"github.com/signalsfoundry/globe-visualizer/internal/scene"
	"github.com/signalsfoundry/globe-visualizer/model"
)

// Config holds all application configuration.
type Config struct {
	Earth       EarthConfig       `mapstructure:"earth"`
	Satellite   SatelliteConfig   `mapstructure:"satellite"`
	Punctuation PunctuationConfig `mapstructure:"punctuation"`
	FlyLine     FlyLineConfig     `mapstructure:"flyLine"`
	Pie         PieConfig         `mapstructure:"pie"`
	Scene       SceneConfig       `mapstructure:"scene"`
	Server      ServerConfig      `mapstructure:"server"`
	Data        DataConfig        `mapstructure:"data"`
	Assets      AssetsConfig      `mapstructure:"assets"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Log         LogConfig         `mapstructure:"log"`
}

type EarthConfig struct {
	Radius      float64 `mapstructure:"radius"`
	RotateSpeed float64 `mapstructure:"rotateSpeed"`
	IsRotation  bool    `mapstructure:"isRotation"`
}

type SatelliteConfig struct {
	Show        bool    `mapstructure:"show"`
	RotateSpeed float64 `mapstructure:"rotateSpeed"`
	Size        float64 `mapstructure:"size"`
	Number      int     `mapstructure:"number"`
	// Tilt is the ring inclination in degrees, ignored when a TLE is set.
	Tilt float64 `mapstructure:"tilt"`
	TLE1 string  `mapstructure:"tle1"`
	TLE2 string  `mapstructure:"tle2"`
}

type PunctuationConfig struct {
	CircleColor string            `mapstructure:"circleColor"`
	LightColumn LightColumnConfig `mapstructure:"lightColumn"`
}

type LightColumnConfig struct {
	StartColor string `mapstructure:"startColor"`
	EndColor   string `mapstructure:"endColor"`
}

type FlyLineConfig struct {
	Color        string  `mapstructure:"color"`
	FlyLineColor string  `mapstructure:"flyLineColor"`
	Speed        float64 `mapstructure:"speed"`
	HeightFactor float64 `mapstructure:"heightFactor"`
}

type PieConfig struct {
	Size float64 `mapstructure:"size"`
}

type SceneConfig struct {
	Kind        string `mapstructure:"kind"` // earth | pie
	Seed        int64  `mapstructure:"seed"`
	IntroFrames int    `mapstructure:"introFrames"`
}

type ServerConfig struct {
	GRPCAddr    string `mapstructure:"grpcAddr"`
	StreamAddr  string `mapstructure:"streamAddr"`
	MetricsAddr string `mapstructure:"metricsAddr"`
	FPS         int    `mapstructure:"fps"`
}

type DataConfig struct {
	Routes string `mapstructure:"routes"`
	Pie    string `mapstructure:"pie"`
}

type AssetsConfig struct {
	Dir string `mapstructure:"dir"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"serviceName"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sampleRatio"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. When path is empty, config.yaml is looked up
// in the working directory and ./configs; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix("GLOBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("earth.radius", 50.0)
	v.SetDefault("earth.rotateSpeed", 0.002)
	v.SetDefault("earth.isRotation", true)

	v.SetDefault("satellite.show", true)
	v.SetDefault("satellite.rotateSpeed", -0.01)
	v.SetDefault("satellite.size", 1.0)
	v.SetDefault("satellite.number", 2)
	v.SetDefault("satellite.tilt", 0.0)
	v.SetDefault("satellite.tle1", "")
	v.SetDefault("satellite.tle2", "")

	v.SetDefault("punctuation.circleColor", "#3892ff")
	v.SetDefault("punctuation.lightColumn.startColor", "#e4007f")
	v.SetDefault("punctuation.lightColumn.endColor", "#ffffff")

	v.SetDefault("flyLine.color", "#f3ae76")
	v.SetDefault("flyLine.flyLineColor", "#ff7714")
	v.SetDefault("flyLine.speed", 0.004)
	v.SetDefault("flyLine.heightFactor", 0.2)

	v.SetDefault("pie.size", 300.0)

	v.SetDefault("scene.kind", "earth")
	v.SetDefault("scene.seed", 1)
	v.SetDefault("scene.introFrames", 120)

	v.SetDefault("server.grpcAddr", ":50061")
	v.SetDefault("server.streamAddr", ":8090")
	v.SetDefault("server.metricsAddr", ":9090")
	v.SetDefault("server.fps", 60)

	v.SetDefault("data.routes", "configs/routes.json")
	v.SetDefault("data.pie", "")
	v.SetDefault("assets.dir", "assets")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "globe.selection")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "globe-visualizer")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sampleRatio", 1.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks required fields and value ranges, reporting every
// problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Earth.Radius <= 0 {
		errs = append(errs, "earth.radius must be > 0")
	}
	if c.Satellite.Number < 0 {
		errs = append(errs, "satellite.number must be >= 0")
	}
	if c.Satellite.Size < 0 {
		errs = append(errs, "satellite.size must be >= 0")
	}
	if (c.Satellite.TLE1 == "") != (c.Satellite.TLE2 == "") {
		errs = append(errs, "satellite.tle1 and satellite.tle2 must be set together")
	}
	for _, col := range []struct{ key, raw string }{
		{"punctuation.circleColor", c.Punctuation.CircleColor},
		{"punctuation.lightColumn.startColor", c.Punctuation.LightColumn.StartColor},
		{"punctuation.lightColumn.endColor", c.Punctuation.LightColumn.EndColor},
		{"flyLine.color", c.FlyLine.Color},
		{"flyLine.flyLineColor", c.FlyLine.FlyLineColor},
	} {
		if _, err := model.ParseColor(col.raw); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", col.key, err))
		}
	}
	if c.FlyLine.Speed < 0 {
		errs = append(errs, "flyLine.speed must be >= 0")
	}
	if c.FlyLine.HeightFactor <= 0 {
		errs = append(errs, "flyLine.heightFactor must be > 0")
	}
	if c.Pie.Size <= 0 {
		errs = append(errs, "pie.size must be > 0")
	}
	switch c.Scene.Kind {
	case "earth", "pie":
	default:
		errs = append(errs, fmt.Sprintf("scene.kind %q must be earth or pie", c.Scene.Kind))
	}
	if c.Scene.IntroFrames < 0 {
		errs = append(errs, "scene.introFrames must be >= 0")
	}
	if c.Server.FPS <= 0 {
		errs = append(errs, "server.fps must be > 0")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, "tracing.sampleRatio must be within [0, 1]")
	}
	switch strings.ToLower(c.Tracing.Exporter) {
	case "stdout", "otlp", "otlpgrpc", "":
	default:
		errs = append(errs, fmt.Sprintf("tracing.exporter %q is not supported", c.Tracing.Exporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// FrameInterval is the wall-clock duration of one animation frame.
func (c *Config) FrameInterval() time.Duration {
	if c.Server.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Server.FPS)
}

// Logging maps the log section onto the logger config.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}

// TracingSettings maps the tracing section onto the observability config.
func (c *Config) TracingSettings() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

// EarthScene converts the earth-related sections into a scene config. The
// orbit tilt comes from the TLE pair when present, evaluated at the given
// instant.
func (c *Config) EarthScene(at time.Time) (scene.EarthConfig, error) {
	out := scene.DefaultEarthConfig()
	out.Radius = c.Earth.Radius
	out.Seed = c.Scene.Seed
	out.IntroFrames = c.Scene.IntroFrames

	out.Markers = core.MarkerStyle{
		CircleColor:      model.MustParseColor(c.Punctuation.CircleColor),
		PillarStartColor: model.MustParseColor(c.Punctuation.LightColumn.StartColor),
		PillarEndColor:   model.MustParseColor(c.Punctuation.LightColumn.EndColor),
	}

	out.Arcs.TrackColor = model.MustParseColor(c.FlyLine.Color)
	out.Arcs.FlowColor = model.MustParseColor(c.FlyLine.FlyLineColor)
	out.Arcs.HeightFactor = c.FlyLine.HeightFactor

	out.Animation.GlobeRotation = c.Earth.IsRotation
	out.Animation.GlobeRotateSpeed = c.Earth.RotateSpeed
	out.Animation.OrbitRotateSpeed = c.Satellite.RotateSpeed
	out.Animation.FlowSpeed = c.FlyLine.Speed

	out.Satellite.Show = c.Satellite.Show
	out.Satellite.Size = c.Satellite.Size
	out.Satellite.Number = c.Satellite.Number

	plane := core.OrbitPlane{InclinationDeg: c.Satellite.Tilt}
	if c.Satellite.TLE1 != "" {
		p, err := core.OrbitPlaneFromTLE(c.Satellite.TLE1, c.Satellite.TLE2, at)
		if err != nil {
			return scene.EarthConfig{}, fmt.Errorf("satellite tle: %w", err)
		}
		plane = p
	}
	out.Satellite.Tilt = plane.Quat()
	return out, nil
}

// PieScene converts the pie section into a scene config.
func (c *Config) PieScene() scene.PieConfig {
	out := scene.DefaultPieConfig()
	out.Size = c.Pie.Size
	out.Seed = c.Scene.Seed
	return out
}
