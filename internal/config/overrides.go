package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"k8s.io/utils/ptr"
)

// Layer names reported by Resolve for each key.
const (
	OriginDefault = "default"
	OriginConfig  = "config"
	OriginEnvFile = "env-file"
	OriginEnviron = "environment"
)

// LookupFunc reads a process environment variable.
type LookupFunc func(key string) (string, bool)

type override struct {
	key   string
	get   func(Config) string
	apply func(*Config, string) error
}

func stringKey(key string, field func(*Config) *string) override {
	return override{
		key: key,
		get: func(c Config) string { return *field(&c) },
		apply: func(c *Config, value string) error {
			*field(c) = value
			return nil
		},
	}
}

func boolKey(key string, field func(*Config) **bool) override {
	return override{
		key: key,
		get: func(c Config) string { return strconv.FormatBool(ptr.Deref(*field(&c), false)) },
		apply: func(c *Config, value string) error {
			value = strings.TrimSpace(value)
			if value == "" {
				*field(c) = nil
				return nil
			}
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*field(c) = ptr.To(parsed)
			return nil
		},
	}
}

var overrides = []override{
	stringKey("FLUTTER_VERSION", func(c *Config) *string { return &c.Flutter.Version }),
	stringKey("FLUTTER_CHANNEL", func(c *Config) *string { return &c.Flutter.Channel }),
	stringKey("FLUTTER_SOURCE", func(c *Config) *string { return &c.Flutter.Source }),
	stringKey("FLUTTER_REF", func(c *Config) *string { return &c.Flutter.Ref }),
	stringKey("FLUTTER_URL", func(c *Config) *string { return &c.Flutter.URL }),
	stringKey("FLUTTER_GIT_URL", func(c *Config) *string { return &c.Flutter.GitURL }),
	boolKey("FLUTTER_PRECACHE_WINDOWS", func(c *Config) **bool { return &c.Flutter.PrecacheWindows }),
	stringKey("ANDROID_CMDLINE_TOOLS", func(c *Config) *string { return &c.Android.CmdlineTools }),
	stringKey("ANDROID_CMDLINE_TOOLS_URL", func(c *Config) *string { return &c.Android.CmdlineToolsURL }),
	stringKey("ANDROID_PLATFORM", func(c *Config) *string { return &c.Android.Platform }),
	stringKey("ANDROID_BUILD_TOOLS", func(c *Config) *string { return &c.Android.BuildTools }),
	stringKey("ANDROID_NDK", func(c *Config) *string { return &c.Android.NDK }),
	stringKey("ANDROID_CMAKE", func(c *Config) *string { return &c.Android.CMake }),
	{
		key: "ANDROID_EXTRA_PACKAGES",
		get: func(c Config) string { return strings.Join(c.Android.ExtraPackages, ",") },
		apply: func(c *Config, value string) error {
			c.Android.ExtraPackages = nil
			for _, part := range strings.Split(value, ",") {
				if part = strings.TrimSpace(part); part != "" {
					c.Android.ExtraPackages = append(c.Android.ExtraPackages, part)
				}
			}
			return nil
		},
	},
	boolKey("MSVC_SKIP", func(c *Config) **bool { return &c.MSVC.Skip }),
	stringKey("MSVC_WINGET_ID", func(c *Config) *string { return &c.MSVC.WingetID }),
	stringKey("MSVC_COMPONENT", func(c *Config) *string { return &c.MSVC.Component }),
	stringKey("MSVC_OVERRIDE", func(c *Config) *string { return &c.MSVC.Override }),
	stringKey("JAVA_WINGET_ID", func(c *Config) *string { return &c.Java.WingetID }),
	stringKey("EDITOR_CONFIG_MODE", func(c *Config) *string { return &c.Editor.Mode }),
}

// KnownKeys returns the override keys accepted from .env files and the environment.
func KnownKeys() []string {
	keys := make([]string, 0, len(overrides))
	for _, o := range overrides {
		keys = append(keys, o.key)
	}
	sort.Strings(keys)
	return keys
}

// Value returns the current value of an override key in its string form.
func (c Config) Value(key string) (string, bool) {
	for _, o := range overrides {
		if o.key == key {
			return o.get(c), true
		}
	}
	return "", false
}

// ApplyOverrides sets every known key present in values. Unknown keys are
// ignored so the same .env file can carry unrelated project variables.
func (c *Config) ApplyOverrides(values map[string]string) ([]string, error) {
	var applied []string
	for _, o := range overrides {
		value, ok := values[o.key]
		if !ok {
			continue
		}
		if err := o.apply(c, value); err != nil {
			return applied, fmt.Errorf("invalid %s=%q: %w", o.key, value, err)
		}
		applied = append(applied, o.key)
	}
	return applied, nil
}

// Resolved is the effective configuration plus the layer each key came from.
type Resolved struct {
	Config  Config
	Origins map[string]string
}

// Resolve layers defaults, the YAML project config, the .env override file and
// the process environment, in increasing precedence.
func Resolve(configFile, envFile string, lookup LookupFunc) (Resolved, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg, err := Load(configFile)
	if err != nil {
		return Resolved{}, err
	}

	origins := make(map[string]string, len(overrides))
	defaults := Default()
	for _, o := range overrides {
		if o.get(cfg) == o.get(defaults) {
			origins[o.key] = OriginDefault
		} else {
			origins[o.key] = OriginConfig
		}
	}

	fileValues, err := LoadEnvFile(envFile)
	if err != nil {
		return Resolved{}, err
	}
	applied, err := cfg.ApplyOverrides(fileValues)
	if err != nil {
		return Resolved{}, fmt.Errorf("%s: %w", envFile, err)
	}
	for _, key := range applied {
		origins[key] = OriginEnvFile
	}

	environ := map[string]string{}
	for _, o := range overrides {
		if value, ok := lookup(o.key); ok {
			environ[o.key] = value
		}
	}
	applied, err = cfg.ApplyOverrides(environ)
	if err != nil {
		return Resolved{}, fmt.Errorf("environment: %w", err)
	}
	for _, key := range applied {
		origins[key] = OriginEnviron
	}

	cfg.ApplyDefaults()
	return Resolved{Config: cfg, Origins: origins}, nil
}
