// Package config загружает конфигурацию сервиса и профиль калибровки
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ferry-service/internal/queueing"
)

// Config содержит конфигурацию сервиса
type Config struct {
	ServerAddr      string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTL        time.Duration
	WorkerCount     int
	BufferSize      int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	LogLevel        string
	CalibrationFile string
}

// Load читает .env (если есть) и переменные окружения
func Load(envPath string) (*Config, error) {
	if envPath == "" {
		envPath = ".env"
	}
	// отсутствие .env не ошибка
	_ = godotenv.Load(envPath)

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SERVER_ADDR", ":8080")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("WORKER_COUNT", runtime.NumCPU())
	v.SetDefault("BUFFER_SIZE", 10000)
	v.SetDefault("READ_TIMEOUT", "15s")
	v.SetDefault("WRITE_TIMEOUT", "15s")
	v.SetDefault("IDLE_TIMEOUT", "60s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CALIBRATION_FILE", "")

	cfg := &Config{
		ServerAddr:      v.GetString("SERVER_ADDR"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),
		CacheTTL:        v.GetDuration("CACHE_TTL"),
		WorkerCount:     v.GetInt("WORKER_COUNT"),
		BufferSize:      v.GetInt("BUFFER_SIZE"),
		ReadTimeout:     v.GetDuration("READ_TIMEOUT"),
		WriteTimeout:    v.GetDuration("WRITE_TIMEOUT"),
		IdleTimeout:     v.GetDuration("IDLE_TIMEOUT"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		CalibrationFile: v.GetString("CALIBRATION_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения конфигурации
func (c *Config) Validate() error {
	var errs []error
	if c.ServerAddr == "" {
		errs = append(errs, errors.New("SERVER_ADDR must not be empty"))
	}
	if c.WorkerCount <= 0 {
		errs = append(errs, fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount))
	}
	if c.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("BUFFER_SIZE must be positive, got %d", c.BufferSize))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel переводит LOG_LEVEL в уровень slog
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown LOG_LEVEL %q", level)
	}
}

// LoadCalibration читает YAML-профиль поверх значений по умолчанию.
// Пустой путь означает калибровку по умолчанию.
func LoadCalibration(path string) (queueing.Calibration, error) {
	cal := queueing.DefaultCalibration()
	if path == "" {
		return cal, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cal, fmt.Errorf("failed to read calibration file: %w", err)
	}
	return ParseCalibration(data)
}

// ParseCalibration разбирает YAML-профиль; неизвестные поля считаются ошибкой
func ParseCalibration(data []byte) (queueing.Calibration, error) {
	cal := queueing.DefaultCalibration()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cal); err != nil && !errors.Is(err, io.EOF) {
		return cal, fmt.Errorf("failed to parse calibration: %w", err)
	}

	if err := cal.Validate(); err != nil {
		return cal, fmt.Errorf("invalid calibration: %w", err)
	}
	return cal, nil
}
