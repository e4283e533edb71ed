package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrConfig marks every configuration problem; callers abort before any network activity.
var ErrConfig = errors.New("configuration error")

// FileReader defines the interface for reading files
type FileReader interface {
	// ReadFile reads the file at the given path and returns the contents
	ReadFile(path string) ([]byte, error)
}

// DefaultFileReader implements FileReader using os.ReadFile
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TracerConfigLoader wraps a FileReader to provide dependency injection for config loading
type TracerConfigLoader struct {
	fileReader FileReader
}

// NewTracerConfigLoader creates a loader with the given FileReader
func NewTracerConfigLoader(fileReader FileReader) *TracerConfigLoader {
	return &TracerConfigLoader{fileReader: fileReader}
}

// NewDefaultTracerConfigLoader creates a loader reading from the local filesystem
func NewDefaultTracerConfigLoader() *TracerConfigLoader {
	return NewTracerConfigLoader(&DefaultFileReader{})
}

// LoadTracerConfig reads, parses and validates the tracer config at the given path
func (cl *TracerConfigLoader) LoadTracerConfig(configPath string) (*TracerConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("%w: config file must be a toml file: %s", ErrConfig, configPath)
	}
	body, err := cl.fileReader.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrConfig, err)
	}
	return ParseTracerConfig(body)
}

// ParseTracerConfig unmarshals and validates a TOML document
func ParseTracerConfig(body []byte) (*TracerConfig, error) {
	var config TracerConfig
	if err := toml.Unmarshal(body, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %w", ErrConfig, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return &config, nil
}

// Validate checks every required key and returns all problems found at once
func (c *TracerConfig) Validate() error {
	var errs []error

	if len(c.Chains) == 0 {
		errs = append(errs, fmt.Errorf("chains is required"))
	}

	seenIDs := make(map[string]string, len(c.Chains))
	for _, key := range c.ChainKeys() {
		chain := c.Chains[key]
		if chain.Name == "" {
			errs = append(errs, fmt.Errorf("chains.%s.name is required", key))
		}
		if chain.Prefix == "" {
			errs = append(errs, fmt.Errorf("chains.%s.prefix is required", key))
		}
		if chain.ChainID == "" {
			errs = append(errs, fmt.Errorf("chains.%s.chain_id is required", key))
		} else if other, dup := seenIDs[chain.ChainID]; dup {
			errs = append(errs, fmt.Errorf("chains.%s.chain_id %s duplicates chains.%s", key, chain.ChainID, other))
		} else {
			seenIDs[chain.ChainID] = key
		}
		if err := validateLCD(chain.LCD); err != nil {
			errs = append(errs, fmt.Errorf("chains.%s.lcd: %w", key, err))
		}
	}

	if len(c.Paths) == 0 {
		errs = append(errs, fmt.Errorf("paths is required"))
	}
	// chain ids in paths may name chains without a configured endpoint, they are only labels
	for dest, sources := range c.Paths {
		if len(sources) == 0 {
			errs = append(errs, fmt.Errorf("paths.%s has no links", dest))
		}
		for source, channel := range sources {
			if !strings.HasPrefix(channel, "channel-") {
				errs = append(errs, fmt.Errorf("paths.%s.%s: malformed channel id %q", dest, source, channel))
			}
		}
	}

	if len(c.Denoms) == 0 {
		errs = append(errs, fmt.Errorf("denoms is required"))
	}
	for i, denom := range c.Denoms {
		if strings.TrimSpace(denom) == "" {
			errs = append(errs, fmt.Errorf("denoms[%d] is empty", i))
		}
	}

	if c.DenomsSource == "" {
		errs = append(errs, fmt.Errorf("denoms_source is required"))
	}

	if c.Query.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("query.parallelism must not be negative"))
	}

	if len(errs) > 0 {
		// keep a stable message, map iteration above is random
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
	}
	return nil
}

func validateLCD(lcd string) error {
	if lcd == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(lcd)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url host is missing")
	}
	return nil
}

// ChainKeys returns the chain keys sorted, which is the processing order of a run
func (c *TracerConfig) ChainKeys() []string {
	keys := make([]string, 0, len(c.Chains))
	for key := range c.Chains {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
