package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// DefaultLang is used when a user's language has no translation for a key
const DefaultLang = "en"

// Translator loads YAML locale files and provides lookup with fallback.
type Translator struct {
	locales     map[string]map[string]string
	defaultLang string
}

// Embedded returns a translator over the locales compiled into the binary
func Embedded(defaultLang string) (*Translator, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, err
	}
	return NewTranslator(sub, defaultLang)
}

// NewTranslator loads all *.yaml locale files from the root of fsys.
// Each file should be named like en.yaml, ru.yaml and contain flat key/value pairs.
func NewTranslator(fsys fs.FS, defaultLang string) (*Translator, error) {
	t := &Translator{
		locales:     make(map[string]map[string]string),
		defaultLang: defaultLang,
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		lang := strings.TrimSuffix(e.Name(), ".yaml")
		data, readErr := fs.ReadFile(fsys, e.Name())
		if readErr != nil {
			return nil, fmt.Errorf("read locale %s: %w", e.Name(), readErr)
		}
		kv := make(map[string]string)
		if unmarshalErr := yaml.Unmarshal(data, &kv); unmarshalErr != nil {
			return nil, fmt.Errorf("parse locale %s: %w", e.Name(), unmarshalErr)
		}
		t.locales[lang] = kv
	}

	// Ensure default exists
	if _, ok := t.locales[defaultLang]; !ok {
		t.locales[defaultLang] = make(map[string]string)
	}

	return t, nil
}

// NewFallback creates a translator with no locales and a given default language.
func NewFallback(defaultLang string) *Translator {
	return &Translator{
		locales:     map[string]map[string]string{defaultLang: {}},
		defaultLang: defaultLang,
	}
}

// T returns translation for key with fallback to default and then the key itself.
func (t *Translator) T(lang, key string) string {
	if lang != "" {
		if val, ok := t.locales[lang][key]; ok {
			return val
		}
	}
	if val, ok := t.locales[t.defaultLang][key]; ok {
		return val
	}
	return key
}

// Tf translates key and formats it with args
func (t *Translator) Tf(lang, key string, args ...any) string {
	s := t.T(lang, key)
	if len(args) == 0 {
		return s
	}
	return fmt.Sprintf(s, args...)
}

// Has reports whether lang has a locale file
func (t *Translator) Has(lang string) bool {
	_, ok := t.locales[lang]
	return ok
}

// Available returns loaded language codes, sorted.
func (t *Translator) Available() []string {
	keys := make([]string, 0, len(t.locales))
	for k := range t.locales {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Keys returns every key defined for lang, sorted
func (t *Translator) Keys(lang string) []string {
	keys := make([]string, 0, len(t.locales[lang]))
	for k := range t.locales[lang] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
