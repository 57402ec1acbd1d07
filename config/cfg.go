package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"storynav/common"
	"storynav/misc"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	APIConfig struct {
		BaseURL      string `yaml:"base_url" validate:"required,url"`
		OAuthBaseURL string `yaml:"oauth_base_url" validate:"required,url"`
		// SiteHost is the only host accepted in gallery URLs and used to
		// recognize deviation links on gallery pages.
		SiteHost      string        `yaml:"site_host" validate:"required,hostname"`
		UserAgent     string        `yaml:"user_agent"`
		Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
		PageSize      int           `yaml:"page_size" validate:"min=1,max=24"`
		MatureContent bool          `yaml:"mature_content"`
	}

	CredentialsConfig struct {
		EnvFile   string `yaml:"env_file" sanitize:"path_clean" validate:"required,filepath"`
		Bootstrap bool   `yaml:"bootstrap"`
	}

	SyncConfig struct {
		Order            common.Order `yaml:"order" validate:"gte=0,lte=1"`
		WorkdirRoot      string       `yaml:"workdir_root" sanitize:"path_clean" validate:"required"`
		WorkdirTemplate  string       `yaml:"workdir_template" validate:"required"`
		DiffPreviewLines int          `yaml:"diff_preview_lines" validate:"gte=0"`
		Journal          bool         `yaml:"journal"`
	}

	Config struct {
		Version     int               `yaml:"version" validate:"eq=1"`
		API         APIConfig         `yaml:"api"`
		Credentials CredentialsConfig `yaml:"credentials"`
		Sync        SyncConfig        `yaml:"sync"`
		Logging     LoggingConfig     `yaml:"logging"`
		Reporting   ReporterConfig    `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, expanded later for every sync
	// run rather than when configuration is loaded
	WorkdirTemplateFieldName TemplateFieldName = "workdir_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(WorkdirTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if haveFile {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if cfg, err = unmarshalConfig(data, cfg, haveFile); err != nil {
			return nil, fmt.Errorf("failed to process configuration file: %w", err)
		}
	}
	if len(cfg.API.UserAgent) == 0 {
		cfg.API.UserAgent = misc.GetUserAgent()
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
