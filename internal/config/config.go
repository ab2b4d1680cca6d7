package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lockveil/lockveil/internal/logger"
)

// Config holds the backdrop settings.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level"`

	// ScaleFactor is the output scale the backdrop is rendered for;
	// the blur radius is 32 * ScaleFactor.
	ScaleFactor int `json:"scale_factor" yaml:"scale_factor"`

	// Workers bounds blur parallelism; 0 means one worker per
	// logical CPU.
	Workers int `json:"workers" yaml:"workers"`

	// PreviewPort is the port the preview server listens on.
	PreviewPort int `json:"preview_port" yaml:"preview_port"`

	// OutputPath is the default file the snap command writes to.
	OutputPath string `json:"output_path" yaml:"output_path"`
}

// Manager loads, serves and persists the configuration.
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a configuration manager. An empty configFile
// selects $HOME/.config/lockveil/config.yaml; a missing file is
// created with defaults.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "lockveil")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{configPath: actualConfigPath}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return m, nil
}

func getDefaults() *Config {
	return &Config{
		LogLevel:    "info",
		ScaleFactor: 1,
		Workers:     0,
		PreviewPort: 8080,
		OutputPath:  "backdrop.png",
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := getDefaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.ScaleFactor < 1 {
		cfg.ScaleFactor = 1
	}

	m.config = cfg
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.config
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SetLogLevel updates the log level
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
}

// SetScaleFactor updates the output scale factor
func (m *Manager) SetScaleFactor(scale int) {
	if scale < 1 {
		scale = 1
	}
	m.mu.Lock()
	m.config.ScaleFactor = scale
	m.mu.Unlock()
}

// SetWorkers updates the blur worker count
func (m *Manager) SetWorkers(workers int) {
	m.mu.Lock()
	m.config.Workers = workers
	m.mu.Unlock()
}

// SetPreviewPort updates the preview server port
func (m *Manager) SetPreviewPort(port int) {
	m.mu.Lock()
	m.config.PreviewPort = port
	m.mu.Unlock()
}

// GetConfigPath returns the path of the backing config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
