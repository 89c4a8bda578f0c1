package configparser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported config format")

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and unmarshals the result into dst using koanf tags.
//
// Environment keys are PREFIX_SECTION__KEY, e.g. TAXI_DATABASE__HOST
// overrides database.host.
func Load(path, envPrefix string, dst any) error {
	k := koanf.New(".")

	if path != "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("could not load config file: %w", err)
		}
	}

	prefix := strings.ToUpper(envPrefix) + "_"
	if err := k.Load(env.Provider(prefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, prefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return fmt.Errorf("could not load environment: %w", err)
	}

	if err := k.UnmarshalWithConf("", dst, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("could not unmarshal config: %w", err)
	}

	return nil
}
