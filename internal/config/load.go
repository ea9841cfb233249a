package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"golang.org/x/image/colornames"
)

// EnvPrefix marks environment variables that override configuration keys.
// Nested keys are separated by a double underscore, so
// COMMS_INSPECTOR_SERVER__ADDR sets server.addr.
const EnvPrefix = "COMMS_INSPECTOR_"

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// Load layers defaults, the file at path (skipped when path is empty) and
// the environment, applies override when non-nil, then validates the
// result. Files ending in .json are parsed as JSON; anything else as YAML.
func Load(path string, override func(*Config)) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if override != nil {
		override(cfg)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return jsonParser{}
	}
	return yaml.Parser()
}

// jsonParser decodes JSON configuration files.
type jsonParser struct{}

func (jsonParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (jsonParser) Marshal(m map[string]interface{}) ([]byte, error) {
	return json.Marshal(m)
}

func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	if key == "" {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(key, "__", "."))
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Render.Mode = strings.ToLower(c.Render.Mode)
	c.Render.Resolution = strings.ToLower(c.Render.Resolution)
	c.Render.LandColor = strings.ToLower(c.Render.LandColor)
	c.Render.OceanColor = strings.ToLower(c.Render.OceanColor)
	if c.Cesium.Token == "" {
		c.Cesium.Token = DefaultCesiumToken
	}
	// The viewer is always served by this process.
	if url, err := LocalServerURL(c.Server.Addr); err == nil {
		c.Cesium.LocalServer = url
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("colorname", func(fl validator.FieldLevel) bool {
			return IsColorName(fl.Field().String())
		})
	})
	return validate
}

// IsColorName reports whether name is a CSS/SVG colour keyword.
func IsColorName(name string) bool {
	_, ok := colornames.Map[strings.ToLower(name)]
	return ok
}

// Validate checks the configuration, joining every field failure into one
// error wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "colorname":
		return fmt.Sprintf("%s: %q is not a named colour", field, fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%s: %q is not host:port", field, fe.Value())
	}
	return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
}
