package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	SiteConfig struct {
		TemplatePath   string `yaml:"template_path" sanitize:"assure_file_access"`
		StylesheetPath string `yaml:"stylesheet_path" sanitize:"assure_file_access"`
		NavLabelMax    int    `yaml:"nav_label_max" validate:"gte=0"`
		ButtonLabelMax int    `yaml:"button_label_max" validate:"gte=0"`
		PrevLabel      string `yaml:"prev_label" validate:"required"`
		NextLabel      string `yaml:"next_label" validate:"required"`
		TOCXML         bool   `yaml:"toc_xml"`
	}

	ImagesConfig struct {
		Directory   string `yaml:"directory" validate:"required"`
		Dedupe      bool   `yaml:"dedupe"`
		MaxWidth    int    `yaml:"max_width" validate:"gte=0"`
		JPEGQuality int    `yaml:"jpeg_quality_level" validate:"min=40,max=100"`
	}

	AssetsConfig struct {
		Copy        bool         `yaml:"copy"`
		Stylesheets []string     `yaml:"stylesheets" validate:"dive,required"`
		Images      ImagesConfig `yaml:"images"`
	}

	DocumentConfig struct {
		Rules                 string       `yaml:"rules" validate:"required"`
		InputName             string       `yaml:"input_name" validate:"required"`
		ForceEncoding         string       `yaml:"force_encoding"`
		OutputNameTemplate    string       `yaml:"output_name_template"`
		FileNameTransliterate bool         `yaml:"file_name_transliterate"`
		Site                  SiteConfig   `yaml:"site"`
		Assets                AssetsConfig `yaml:"assets"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// only fields we defined are allowed, so no yaml.Unmarshal here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to
// provide sane defaults and performs validation.
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
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
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
