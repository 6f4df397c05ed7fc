package commons

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"storefront/internal/config"
)

// LoadConfig decodes the YAML base file and layers the environment on top of
// it. An empty path skips the file.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var base config.Config
	if err := yaml.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config.Load(&base)
}
