// Package config holds the tunables of the bulk codec and the host.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
	"github.com/reglet-dev/triebridge/infrastructure/parser"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New()

// Config configures a codec and the host it runs in. Zero values mean
// "use the default".
type Config struct {
	// NodeOrder is the trie sibling order, "weight" or "label".
	NodeOrder string `yaml:"node_order" json:"node_order,omitempty" validate:"omitempty,oneof=weight label" jsonschema:"enum=weight,enum=label,default=weight"`

	// Compression wraps the serialized trie in a compression frame.
	Compression string `yaml:"compression" json:"compression,omitempty" validate:"omitempty,oneof=none snappy lz4 zstd gzip" jsonschema:"enum=none,enum=snappy,enum=lz4,enum=zstd,enum=gzip,default=none"`

	// MaxTransfer bounds the bytes requested by one gateway call.
	MaxTransfer int `yaml:"max_transfer" json:"max_transfer,omitempty" validate:"omitempty,min=1,max=67108864" jsonschema:"minimum=1,maximum=67108864"`

	// MaxHeap bounds the far-side heap in bytes.
	MaxHeap int `yaml:"max_heap" json:"max_heap,omitempty" validate:"omitempty,min=1" jsonschema:"minimum=1"`

	// MaxKeyBytes bounds the key bytes collected for one encode.
	MaxKeyBytes int `yaml:"max_key_bytes" json:"max_key_bytes,omitempty" validate:"omitempty,min=1" jsonschema:"minimum=1"`

	// LogLevel is a zap level name.
	LogLevel string `yaml:"log_level" json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
}

// Default returns the configuration used when none is given.
func Default() Config {
	return Config{
		NodeOrder:   "weight",
		Compression: "none",
		MaxTransfer: 1 << 20,
		LogLevel:    "info",
	}
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &domainerrors.ConfigError{
				Err:   fmt.Errorf("failed %q constraint (value %v)", fe.Tag(), fe.Value()),
				Field: fe.Field(),
			}
		}
		return &domainerrors.ConfigError{Err: err}
	}
	return nil
}

// Load parses YAML over the defaults and validates the result.
func Load(data []byte) (Config, error) {
	cfg := Default()
	if err := parser.NewYamlConfigParser().Parse(data, &cfg); err != nil {
		return Config{}, &domainerrors.ConfigError{Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads and loads a YAML file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Load(data)
}
