package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"capture-session/internal/domain"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "CAPTURE"

// Config конфигурация приложения
type Config struct {
	Camera CameraConfig `mapstructure:"camera"`
	Feed   FeedConfig   `mapstructure:"feed"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// CameraConfig параметры захвата
type CameraConfig struct {
	DeviceID      string `mapstructure:"device_id"`
	Width         int    `mapstructure:"width"`
	Height        int    `mapstructure:"height"`
	FrameRate     int    `mapstructure:"frame_rate"`
	PreviewWidth  int    `mapstructure:"preview_width"`
	PreviewHeight int    `mapstructure:"preview_height"`
	Orientation   string `mapstructure:"orientation"`
}

// FeedConfig параметры раздачи кадров
type FeedConfig struct {
	MaxSessions int `mapstructure:"max_sessions"` // 0 - без ограничения
}

// ServerConfig параметры сервера превью
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig параметры логирования
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New создает viper со значениями по умолчанию и переменными окружения CAPTURE_*
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("camera.device_id", "")
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.frame_rate", 30)
	v.SetDefault("camera.preview_width", 640)
	v.SetDefault("camera.preview_height", 480)
	v.SetDefault("camera.orientation", "up")
	v.SetDefault("feed.max_sessions", 0)
	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load читает файл конфигурации и собирает Config.
// Если path пуст, config.yaml ищется в текущей директории и в $HOME/.capture-demo,
// отсутствие файла не ошибка.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(os.ExpandEnv("$HOME/.capture-demo"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "чтение файла конфигурации")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "разбор конфигурации")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет значения конфигурации
func (c Config) Validate() error {
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FrameRate < 0 {
		return errors.Errorf("некорректные параметры захвата %dx%d@%d",
			c.Camera.Width, c.Camera.Height, c.Camera.FrameRate)
	}
	if c.Camera.PreviewWidth < 0 || c.Camera.PreviewHeight < 0 {
		return errors.Errorf("некорректный размер превью %dx%d",
			c.Camera.PreviewWidth, c.Camera.PreviewHeight)
	}
	if _, ok := domain.ParseOrientation(c.Camera.Orientation); !ok {
		return errors.Errorf("неизвестная ориентация %q", c.Camera.Orientation)
	}
	if c.Feed.MaxSessions < 0 {
		return errors.Errorf("feed.max_sessions не может быть отрицательным: %d", c.Feed.MaxSessions)
	}
	return nil
}

// VideoConfig возвращает параметры сессии захвата
func (c Config) VideoConfig() domain.VideoConfig {
	orientation, _ := domain.ParseOrientation(c.Camera.Orientation)
	return domain.VideoConfig{
		DeviceID:      c.Camera.DeviceID,
		Width:         c.Camera.Width,
		Height:        c.Camera.Height,
		FrameRate:     c.Camera.FrameRate,
		PreviewWidth:  c.Camera.PreviewWidth,
		PreviewHeight: c.Camera.PreviewHeight,
		Orientation:   orientation,
	}
}
