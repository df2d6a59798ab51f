package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Model backends
const (
	BackendGemini   = "gemini"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// Detection backends
const (
	DetectionModel    = "model"
	DetectionSaliency = "saliency"
)

// Generative region editors
const (
	GenerativeAdjust = "adjust"
	GenerativeGemini = "gemini"
)

// Config holds the application configuration
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Image     ImageConfig     `yaml:"image"`
	Detection DetectionConfig `yaml:"detection"`
	Editor    EditorConfig    `yaml:"editor"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ModelConfig selects and configures the model service
type ModelConfig struct {
	Backend    string `yaml:"backend"` // gemini, ollama, llamacpp
	Name       string `yaml:"name"`    // empty selects the backend default
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
}

// ImageConfig controls the images sent to the model
type ImageConfig struct {
	SendFormat  string `yaml:"send_format"` // jpg, png
	SendMaxDim  int    `yaml:"send_max_dim"`
	SendQuality int    `yaml:"send_quality"`
}

// DetectionConfig holds configuration for region detection
type DetectionConfig struct {
	Backend       string  `yaml:"backend"` // model, saliency
	MinConfidence float64 `yaml:"min_confidence"`
	MaxRegions    int     `yaml:"max_regions"`
}

// EditorConfig selects the region editors
type EditorConfig struct {
	Generative        string  `yaml:"generative"` // adjust, gemini
	ImageModel        string  `yaml:"image_model"`
	InpaintIterations int     `yaml:"inpaint_iterations"`
	BlurSigma         float64 `yaml:"blur_sigma"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	JPEGQuality  int  `yaml:"jpeg_quality"`
	WebPQuality  int  `yaml:"webp_quality"`
	WebPLossless bool `yaml:"webp_lossless"`
	DebugOverlay bool `yaml:"debug_overlay"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Backend:    BackendGemini,
			Timeout:    "300s",
			MaxRetries: 2,
		},
		Image: ImageConfig{
			SendFormat:  "jpg",
			SendMaxDim:  1024,
			SendQuality: 85,
		},
		Detection: DetectionConfig{
			Backend:       DetectionModel,
			MinConfidence: 0.3,
			MaxRegions:    5,
		},
		Editor: EditorConfig{
			Generative:        GenerativeAdjust,
			ImageModel:        "gemini-2.5-flash-image",
			InpaintIterations: 200,
			BlurSigma:         12,
		},
		Output: OutputConfig{
			JPEGQuality: 95,
			WebPQuality: 90,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
// A missing file yields the defaults. Environment overrides are applied last.
func LoadFromFile(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv applies environment variable overrides
func (c *Config) ApplyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Model.APIKey = key
	}
	if backend := os.Getenv("IMAGE_ASSISTANT_BACKEND"); backend != "" {
		c.Model.Backend = strings.ToLower(backend)
	}
	if model := os.Getenv("IMAGE_ASSISTANT_MODEL"); model != "" {
		c.Model.Name = model
	}
	if url := os.Getenv("IMAGE_ASSISTANT_URL"); url != "" {
		c.Model.URL = url
	}
}

// Timeout returns the model timeout; 0 means the backend default
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.Model.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case BackendGemini, BackendOllama, BackendLlamaCpp:
	default:
		return fmt.Errorf("model.backend must be one of %s, %s, %s", BackendGemini, BackendOllama, BackendLlamaCpp)
	}

	if c.Model.Timeout != "" {
		if _, err := time.ParseDuration(c.Model.Timeout); err != nil {
			return fmt.Errorf("model.timeout: %w", err)
		}
	}

	if c.Model.MaxRetries < 0 {
		return fmt.Errorf("model.max_retries cannot be negative")
	}

	switch strings.ToLower(c.Image.SendFormat) {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("image.send_format must be jpg or png")
	}

	if c.Image.SendMaxDim < 1 {
		return fmt.Errorf("image.send_max_dim must be positive")
	}

	if c.Image.SendQuality < 1 || c.Image.SendQuality > 100 {
		return fmt.Errorf("image.send_quality must be between 1 and 100")
	}

	switch c.Detection.Backend {
	case DetectionModel, DetectionSaliency:
	default:
		return fmt.Errorf("detection.backend must be %s or %s", DetectionModel, DetectionSaliency)
	}

	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.min_confidence must be between 0 and 1")
	}

	if c.Detection.MaxRegions < 1 {
		return fmt.Errorf("detection.max_regions must be positive")
	}

	switch c.Editor.Generative {
	case GenerativeAdjust, GenerativeGemini:
	default:
		return fmt.Errorf("editor.generative must be %s or %s", GenerativeAdjust, GenerativeGemini)
	}

	if c.Editor.Generative == GenerativeGemini && c.Model.APIKey == "" {
		return fmt.Errorf("editor.generative gemini requires model.api_key")
	}

	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be between 1 and 100")
	}

	if c.Output.WebPQuality < 1 || c.Output.WebPQuality > 100 {
		return fmt.Errorf("output.webp_quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "image-assistant", "config.yaml")
}
