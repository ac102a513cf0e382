package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EngineConfig selects the analysis engine.
type EngineConfig struct {
	Type           string `yaml:"type"`
	Path           string `yaml:"path,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CasesConfig holds the human-readable case directory settings.
type CasesConfig struct {
	Prefix   string `yaml:"prefix"`
	Template string `yaml:"template"`
}

// LegacyConfig controls the per-id mirror directory.
type LegacyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CatalogConfig controls the SQLite case catalog.
type CatalogConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config holds casebook configuration.
type Config struct {
	Version string        `yaml:"version"`
	Engine  EngineConfig  `yaml:"engine,omitempty"`
	Cases   CasesConfig   `yaml:"cases,omitempty"`
	Legacy  LegacyConfig  `yaml:"legacy,omitempty"`
	Catalog CatalogConfig `yaml:"catalog,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Engine: EngineConfig{
			Type:           "template",
			TimeoutSeconds: 300,
		},
		Cases: CasesConfig{
			Prefix:   "案件：",
			Template: "示例案件",
		},
		Legacy:  LegacyConfig{Enabled: true},
		Catalog: CatalogConfig{Enabled: true},
	}
}

// Store represents a loaded CASEBOOK_HOME.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the CASEBOOK_HOME path, respecting the CASEBOOK_HOME env var.
func Home() string {
	if h := os.Getenv("CASEBOOK_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".casebook")
	}
	return filepath.Join(home, ".casebook")
}

// TemplateReadme is written into the template case directory. The
// placeholders are substituted when a case is created from it.
const TemplateReadme = `# 示例案件

- 案件编号：CASE001
- 创建日期：2023-06-25

## 目录说明

- 案件材料/：按材料类型存放的案件材料
- 分析结果/：按分析类型存放的分析报告
- 当事人/：按诉讼地位存放的当事人信息
- 时间线/：案件大事记
`

// Init creates the CASEBOOK_HOME directory structure.
func Init(home string, force bool) error {
	if _, err := os.Stat(home); err == nil && !force {
		return fmt.Errorf("CASEBOOK_HOME already exists at %s (use --force to reinitialize)", home)
	}

	cfg := DefaultConfig()
	dirs := []string{
		home,
		filepath.Join(home, "cases"),
		filepath.Join(home, "legacy"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	if err := writeTemplate(filepath.Join(home, "cases"), cfg.Cases); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	cfgPath := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func writeTemplate(casesDir string, cc CasesConfig) error {
	dir := filepath.Join(casesDir, cc.Prefix+cc.Template)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	readme := filepath.Join(dir, "README.md")
	if _, err := os.Stat(readme); err == nil {
		return nil
	}
	if err := os.WriteFile(readme, []byte(TemplateReadme), 0644); err != nil {
		return fmt.Errorf("failed to write template README: %w", err)
	}
	return nil
}

// Load reads and validates an existing CASEBOOK_HOME.
// Missing config fields are filled from defaults.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read CASEBOOK_HOME config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return &Store{Home: home, Config: cfg}, nil
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	cfgPath := filepath.Join(s.Home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ConfigKeys lists the keys accepted by SetConfigValue.
var ConfigKeys = []string{
	"engine.type", "engine.path", "engine.timeout_seconds",
	"cases.prefix", "cases.template", "legacy.enabled", "catalog.enabled",
}

// SetConfigValue sets a config value by dot-path key (e.g. "engine.type").
func (s *Store) SetConfigValue(key, value string) error {
	switch key {
	case "engine.type":
		switch value {
		case "template", "claude", "codex":
		default:
			return fmt.Errorf("engine.type must be one of template, claude, codex")
		}
		s.Config.Engine.Type = value
	case "engine.path":
		s.Config.Engine.Path = value
	case "engine.timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("engine.timeout_seconds must be a positive integer")
		}
		s.Config.Engine.TimeoutSeconds = n
	case "cases.prefix":
		s.Config.Cases.Prefix = value
	case "cases.template":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("cases.template must not be empty")
		}
		s.Config.Cases.Template = value
	case "legacy.enabled":
		s.Config.Legacy.Enabled = value == "true"
	case "catalog.enabled":
		s.Config.Catalog.Enabled = value == "true"
	default:
		return fmt.Errorf("unknown config key: %s\nValid keys: %s", key, strings.Join(ConfigKeys, ", "))
	}
	return s.SaveConfig()
}

// Path resolves a path within CASEBOOK_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// CasesDir is the root of the human-readable case directories.
func (s *Store) CasesDir() string { return s.Path("cases") }

// LegacyDir is the root of the per-id case directories.
func (s *Store) LegacyDir() string { return s.Path("legacy") }

// CatalogPath is the SQLite catalog file.
func (s *Store) CatalogPath() string { return s.Path("catalog.db") }

// TemplateDir is the directory new cases are copied from.
func (s *Store) TemplateDir() string {
	return filepath.Join(s.CasesDir(), s.Config.Cases.Prefix+s.Config.Cases.Template)
}

// CheckHealth verifies CASEBOOK_HOME structure integrity.
func CheckHealth(home string) []Issue {
	var issues []Issue

	for _, dir := range []string{"cases", "legacy"} {
		p := filepath.Join(home, dir)
		info, err := os.Stat(p)
		if err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("missing directory: %s", p)})
		} else if !info.IsDir() {
			issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", p)})
		}
	}

	cfg := DefaultConfig()
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
	}

	tmpl := filepath.Join(home, "cases", cfg.Cases.Prefix+cfg.Cases.Template)
	if info, err := os.Stat(tmpl); err != nil || !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("missing case template: %s", tmpl)})
	}

	return issues
}

// FixIssues attempts to repair simple issues in CASEBOOK_HOME.
func FixIssues(home string) []string {
	var fixed []string

	for _, dir := range []string{"cases", "legacy"} {
		p := filepath.Join(home, dir)
		if _, err := os.Stat(p); err != nil {
			if err := os.MkdirAll(p, 0755); err == nil {
				fixed = append(fixed, fmt.Sprintf("recreated missing directory: %s", dir))
			}
		}
	}

	cfg := DefaultConfig()
	cfgPath := filepath.Join(home, "config.yaml")
	if data, err := os.ReadFile(cfgPath); err != nil {
		data, _ := yaml.Marshal(cfg)
		if os.WriteFile(cfgPath, data, 0644) == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
	} else {
		_ = yaml.Unmarshal(data, &cfg)
	}

	tmpl := filepath.Join(home, "cases", cfg.Cases.Prefix+cfg.Cases.Template)
	if _, err := os.Stat(tmpl); err != nil {
		if writeTemplate(filepath.Join(home, "cases"), cfg.Cases) == nil {
			fixed = append(fixed, "recreated missing case template")
		}
	}

	return fixed
}
