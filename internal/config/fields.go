package config

import (
	"os"
	"strconv"
)

// Field is one user-facing setting. Env lists the variables that override
// the file value, highest precedence first.
type Field struct {
	Label string
	Env   []string
	get   func(*Config) string
	set   func(*Config, string) bool
}

// Fields lists every setting in display order.
var Fields = []Field{
	stringField("URL", func(c *Config) *string { return &c.URL }, "CFMD_URL", "ATLASSIAN_URL"),
	stringField("Email", func(c *Config) *string { return &c.Email }, "CFMD_EMAIL", "ATLASSIAN_EMAIL"),
	stringField("API Token", func(c *Config) *string { return &c.APIToken }, "CFMD_API_TOKEN", "ATLASSIAN_API_TOKEN"),
	stringField("Space", func(c *Config) *string { return &c.DefaultSpace }, "CFMD_DEFAULT_SPACE"),
	stringField("Output Dir", func(c *Config) *string { return &c.OutputDir }, "CFMD_OUTPUT_DIR"),
	{
		Label: "Concurrency",
		Env:   []string{"CFMD_CONCURRENCY"},
		get: func(c *Config) string {
			if c.Concurrency == 0 {
				return ""
			}
			return strconv.Itoa(c.Concurrency)
		},
		set: func(c *Config, v string) bool {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return false
			}
			c.Concurrency = n
			return true
		},
	},
	stringField("Assets Dir", func(c *Config) *string { return &c.AssetsDir }, "CFMD_ASSETS_DIR"),
	stringField("Exported By", func(c *Config) *string { return &c.ExportedBy }, "CFMD_EXPORTED_BY"),
}

func stringField(label string, ptr func(*Config) *string, env ...string) Field {
	return Field{
		Label: label,
		Env:   env,
		get:   func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) bool {
			*ptr(c) = v
			return true
		},
	}
}

// Get returns the field's value in c, or "" when unset.
func (f Field) Get(c *Config) string {
	return f.get(c)
}

// EnvSource returns the first of f.Env that is set to a usable value, or ""
// when the environment does not override the field.
func (f Field) EnvSource() string {
	for _, name := range f.Env {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if f.set(&Config{}, v) {
			return name
		}
	}
	return ""
}

// EnvVars returns every environment variable that can override a setting.
func EnvVars() []string {
	var names []string
	for _, f := range Fields {
		names = append(names, f.Env...)
	}
	return names
}
