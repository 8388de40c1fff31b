// Package config provides XML-based configuration management for the converter server.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backend modes select which conversion endpoint is used.
const (
	ModeDevelopment = "DEVELOPMENT"
	ModeProduction  = "PRODUCTION"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"ExcelToJSON"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Conversion backend configuration
	Backend BackendConfig `xml:"Backend"`

	// Remote source classification
	Sources SourcesConfig `xml:"Sources"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Session lifecycle configuration
	Sessions SessionsConfig `xml:"Sessions"`

	// File picker constraints
	Picker PickerConfig `xml:"Picker"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// BackendConfig contains the conversion API endpoints.
type BackendConfig struct {
	Mode           string `xml:"Mode"`
	DevelopmentURL string `xml:"DevelopmentURL"`
	ProductionURL  string `xml:"ProductionURL"`
	// 0 leaves the HTTP client default in place
	RequestTimeout int `xml:"RequestTimeoutSeconds"`
}

// SourceRule maps a URL path marker to a file extension.
type SourceRule struct {
	Marker    string `xml:"Marker,attr"`
	Extension string `xml:"Extension,attr"`
}

// SourcesConfig controls how pasted URLs are classified.
type SourcesConfig struct {
	PathIndex int          `xml:"PathIndex"`
	Rules     []SourceRule `xml:"Rule"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory    string `xml:"DataDirectory"`
	UploadsDirectory string `xml:"UploadsDirectory"`
	HistoryDatabase  string `xml:"HistoryDatabase"` // empty disables history
}

// SessionsConfig contains session lifecycle settings
type SessionsConfig struct {
	MaxSessions            int `xml:"MaxSessions"`
	SessionTimeoutMinutes  int `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int `xml:"CleanupIntervalMinutes"`
	NotificationBuffer     int `xml:"NotificationBuffer"`
}

// PickerConfig lists what the file picker offers.
type PickerConfig struct {
	AllowedFileTypes  string `xml:"AllowedFileTypes"`
	AllowedMediaTypes string `xml:"AllowedMediaTypes"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	EnableRequestLogging bool `xml:"EnableRequestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  120,
			BodyLimit:    "64M",
		},
		Backend: BackendConfig{
			Mode:           ModeDevelopment,
			DevelopmentURL: "http://192.168.29.248:8501/api",
			ProductionURL:  "https://excel-to-json-backend-nine.vercel.app/api",
			RequestTimeout: 0,
		},
		Sources: SourcesConfig{
			PathIndex: 3,
			Rules: []SourceRule{
				{Marker: "spreadsheets", Extension: "xlsx"},
				{Marker: "file", Extension: "csv"},
			},
		},
		Storage: StorageConfig{
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
			HistoryDatabase:  "./data/history.duckdb",
		},
		Sessions: SessionsConfig{
			MaxSessions:            100,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			NotificationBuffer:     32,
		},
		Picker: PickerConfig{
			AllowedFileTypes: ".csv,.xls,.xlsx",
			AllowedMediaTypes: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet," +
				"application/vnd.ms-excel",
		},
		Advanced: AdvancedConfig{
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so sections missing from the file keep sane values
	config := DefaultConfig()
	config.Sources.Rules = nil
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(config.Sources.Rules) == 0 {
		config.Sources.Rules = DefaultConfig().Sources.Rules
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Excel-to-JSON Converter Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR override
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "uploads")
	}

	// APP_MODE switches between the development and production backend
	if mode := os.Getenv("APP_MODE"); mode != "" {
		c.Backend.Mode = strings.ToUpper(mode)
	}

	// API_BASE_URL pins the backend regardless of mode
	if baseURL := os.Getenv("API_BASE_URL"); baseURL != "" {
		c.Backend.DevelopmentURL = baseURL
		c.Backend.ProductionURL = baseURL
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.UploadsDirectory) {
		c.Storage.UploadsDirectory = filepath.Join(configDir, c.Storage.UploadsDirectory)
	}
	if c.Storage.HistoryDatabase != "" && !filepath.IsAbs(c.Storage.HistoryDatabase) {
		c.Storage.HistoryDatabase = filepath.Join(configDir, c.Storage.HistoryDatabase)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetBackendURL returns the conversion API base URL for the configured mode.
// Unknown modes fall back to the development endpoint.
func (c *AppConfig) GetBackendURL() string {
	if strings.EqualFold(c.Backend.Mode, ModeProduction) {
		return c.Backend.ProductionURL
	}
	return c.Backend.DevelopmentURL
}

// GetRequestTimeout returns the outbound request timeout, 0 meaning none.
func (c *AppConfig) GetRequestTimeout() time.Duration {
	if c.Backend.RequestTimeout <= 0 {
		return 0
	}
	return time.Duration(c.Backend.RequestTimeout) * time.Second
}

// GetAllowedFileTypes returns the file picker accept list.
func (c *AppConfig) GetAllowedFileTypes() []string {
	return splitList(c.Picker.AllowedFileTypes + "," + c.Picker.AllowedMediaTypes)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
	}
	if c.Storage.HistoryDatabase != "" {
		dirs = append(dirs, filepath.Dir(c.Storage.HistoryDatabase))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
