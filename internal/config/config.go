// 包 config 负责加载与校验应用配置（settings.yaml），
// 并允许以 XC_ 前缀的环境变量覆盖（XC_LOG_LEVEL、XC_DATABASE__DSN 等，双下划线表示嵌套）。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig 为配置校验失败的哨兵错误。
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix 为环境变量覆盖前缀。
const EnvPrefix = "XC_"

type Config struct {
	Addr         string   `yaml:"ADDR"`
	Source       string   `yaml:"SOURCE"` // json|html
	RulesPreset  string   `yaml:"RULES_PRESET"`
	OutputDir    string   `yaml:"OUTPUT_DIR"`
	ResetOnStart bool     `yaml:"RESET_ON_START"`
	CORSOrigins  []string `yaml:"CORS_ORIGINS"`
	Database     Database `yaml:"DATABASE"`
	Upstream     Upstream `yaml:"UPSTREAM"`
	Proxy        Proxy    `yaml:"PROXY"`
	LogLevel     string   `yaml:"LOG_LEVEL"`
	LogFormat    string   `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale    string   `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor     string   `yaml:"LOG_COLOR"`  // auto|always|never
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`  // ./athletes.db
}

// Upstream 为上游站点地址。路径中的 {athleteId} 会被替换。
type Upstream struct {
	BaseURL           string `yaml:"base_url"`
	AthleteBioAPI     string `yaml:"athlete_bio_api"`
	AthleteBioPage    string `yaml:"athlete_bio_page"`
	RosterPage        string `yaml:"roster_page"`
	RaceResultsAPI    string `yaml:"race_results_api"`
	MeetEventsAPI     string `yaml:"meet_events_api"`
	MeetAllResultsAPI string `yaml:"meet_all_results_api"`
	LevelMask         int    `yaml:"level_mask"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	Retry             int    `yaml:"retry"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Load 读取 YAML（path 为空时仅使用默认值）、叠加环境变量，并校验与填充默认值。
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config %s: %w", path, err)
		}
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// applyEnv 将 XC_* 环境变量按 yaml 标签覆盖到已解析的配置上（键名不区分大小写）。
func (c *Config) applyEnv() error {
	k := koanf.New(".")
	provider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(provider, nil); err != nil {
		return err
	}
	if len(k.Keys()) == 0 {
		return nil
	}
	return k.UnmarshalWithConf("", c, koanf.UnmarshalConf{Tag: "yaml"})
}

func (c *Config) Validate() error {
	// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
	if c.Addr == "" {
		c.Addr = ":5001"
	}
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	if c.Source == "" {
		c.Source = "json"
	}
	if c.Source != "json" && c.Source != "html" {
		return fmt.Errorf("%w: unsupported SOURCE: %s", ErrInvalidConfig, c.Source)
	}
	if c.OutputDir == "" {
		c.OutputDir = "./outputs"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("%w: unsupported database type: %s", ErrInvalidConfig, c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./athletes.db"
	}
	u := &c.Upstream
	if u.BaseURL == "" {
		u.BaseURL = "https://www.athletic.net"
	}
	if u.AthleteBioAPI == "" {
		u.AthleteBioAPI = "/api/v1/AthleteBio/GetAthleteBioData?athleteId={athleteId}&sport=xc&level=0"
	}
	if u.AthleteBioPage == "" {
		u.AthleteBioPage = "/CrossCountry/Athlete.aspx?AID={athleteId}"
	}
	if u.RosterPage == "" {
		u.RosterPage = "/CrossCountry/seasonbest"
	}
	if u.RaceResultsAPI == "" {
		u.RaceResultsAPI = "/api/v1/Meet/GetResultsData"
	}
	if u.MeetEventsAPI == "" {
		u.MeetEventsAPI = "/api/v1/Meet/GetEventListData"
	}
	if u.MeetAllResultsAPI == "" {
		u.MeetAllResultsAPI = "/api/v1/Meet/GetAllResultsData"
	}
	if u.LevelMask == 0 {
		// 4 = 高中组
		u.LevelMask = 4
	}
	if u.TimeoutSeconds < 0 || u.Retry < 0 {
		return fmt.Errorf("%w: UPSTREAM timeout_seconds/retry must be >= 0", ErrInvalidConfig)
	}
	if u.TimeoutSeconds == 0 {
		u.TimeoutSeconds = 25
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}
