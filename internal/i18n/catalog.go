// Package i18n serves the localized text tables and resolves which locale a
// browser should see.
package i18n

import (
	"embed"
	"fmt"
	"maps"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	dErrors "bharatkyc/pkg/domain-errors"
)

// Locale is a supported language code.
type Locale string

const (
	English Locale = "en"
	Hindi   Locale = "hi"
	Bengali Locale = "bn"
	Tamil   Locale = "ta"
	Telugu  Locale = "te"
	Marathi Locale = "mr"

	// Fallback is consulted for any key missing in the requested locale.
	Fallback = English
)

// Language describes a selectable locale.
type Language struct {
	Code       Locale `json:"code"`
	NativeName string `json:"native_name"`
}

// Languages lists every supported locale in display order.
var Languages = []Language{
	{Code: English, NativeName: "English"},
	{Code: Hindi, NativeName: "हिंदी"},
	{Code: Bengali, NativeName: "বাংলা"},
	{Code: Tamil, NativeName: "தமிழ்"},
	{Code: Telugu, NativeName: "తెలుగు"},
	{Code: Marathi, NativeName: "मराठी"},
}

// IsSupported reports whether l is one of the six locales.
func (l Locale) IsSupported() bool {
	for _, lang := range Languages {
		if lang.Code == l {
			return true
		}
	}
	return false
}

// ParseLocale validates an untrusted locale code.
func ParseLocale(s string) (Locale, error) {
	l := Locale(strings.ToLower(strings.TrimSpace(s)))
	if !l.IsSupported() {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported locale %q", s))
	}
	return l, nil
}

//go:embed locales/*.yaml
var localeFS embed.FS

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Catalog holds the flattened translation tables.
type Catalog struct {
	tables map[Locale]map[string]string
}

// Load parses the embedded locale tables.
func Load() (*Catalog, error) {
	c := &Catalog{tables: make(map[Locale]map[string]string, len(Languages))}
	for _, lang := range Languages {
		raw, err := localeFS.ReadFile("locales/" + string(lang.Code) + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", lang.Code, err)
		}
		table, err := parseTable(raw)
		if err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", lang.Code, err)
		}
		c.tables[lang.Code] = table
	}
	return c, nil
}

// MustLoad is Load for process start and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func parseTable(raw []byte) (map[string]string, error) {
	var nested map[string]any
	if err := yaml.Unmarshal(raw, &nested); err != nil {
		return nil, err
	}
	flat := make(map[string]string)
	flatten("", nested, flat)
	return flat, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// T returns the text for key in locale, falling back to English per key, and
// to the key itself when neither table has it. {{name}} placeholders are
// replaced from vars; unknown placeholders are left as written.
func (c *Catalog) T(locale Locale, key string, vars map[string]string) string {
	text, ok := c.tables[locale][key]
	if !ok {
		text, ok = c.tables[Fallback][key]
	}
	if !ok {
		return key
	}
	return Interpolate(text, vars)
}

// Has reports whether locale defines key without fallback.
func (c *Catalog) Has(locale Locale, key string) bool {
	_, ok := c.tables[locale][key]
	return ok
}

// Table returns the merged table for locale: English overlaid with the
// locale's own entries.
func (c *Catalog) Table(locale Locale) map[string]string {
	merged := maps.Clone(c.tables[Fallback])
	maps.Copy(merged, c.tables[locale])
	return merged
}

// Keys lists the English keys in sorted order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.tables[Fallback]))
	for k := range c.tables[Fallback] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interpolate substitutes {{name}} placeholders.
func Interpolate(text string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(text, "{{") {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}
