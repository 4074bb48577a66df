package confloader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the prefix of environment variables read by Load.
const DefaultEnvPrefix = "KISS_"

// Loader layers the configuration sources onto a target struct.
type Loader struct {
	envPrefix string
	filePath  string
	overrides map[string]any
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile adds a YAML file layer. An empty path adds nothing.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides adds a top layer keyed by dotted path ("server.addr").
// Command line flags use it.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type layer struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
}

// layers lists the sources lowest priority first.
func (l *Loader) layers() []layer {
	var out []layer
	if l.filePath != "" {
		out = append(out, layer{"file " + l.filePath, file.Provider(l.filePath), yaml.Parser()})
	}
	prefix := l.envPrefix
	out = append(out, layer{"environment", env.Provider(prefix, ".", func(name string) string {
		return EnvKey(prefix, name)
	}), nil})
	if len(l.overrides) > 0 {
		out = append(out, layer{"overrides", overrideProvider(maps.Unflatten(l.overrides, ".")), nil})
	}
	return out
}

// Load applies every layer and decodes the result into target. Fields of
// target that no layer sets keep their value, so callers pass a struct
// already holding defaults. Load may be called again to re-read the
// sources.
func (l *Loader) Load(target any) error {
	k := koanf.New(".")
	for _, src := range l.layers() {
		if err := k.Load(src.provider, src.parser); err != nil {
			return fmt.Errorf("load %s: %w", src.name, err)
		}
	}
	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// EnvKey maps an environment variable name to its configuration key.
// Only the first underscore after the prefix separates section from key,
// so keys keep their own underscores: KISS_SERVER_QUEUE_SIZE is
// server.queue_size.
func EnvKey(prefix, name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, prefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return section
	}
	return section + "." + key
}

// overrideProvider serves an already nested map to koanf.
type overrideProvider map[string]any

func (p overrideProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: override provider has no byte form")
}

func (p overrideProvider) Read() (map[string]any, error) {
	return p, nil
}
