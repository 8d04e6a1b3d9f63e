// Package content holds the study quotes and conversation topics served by /studyquote and /topic.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Store is a read-only set of quotes and topics
type Store struct {
	Quotes []string `yaml:"quotes"`
	Topics []string `yaml:"topics"`
}

// Default returns the built-in quotes and topics
func Default() *Store {
	s, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("content: embedded defaults are broken: %v", err))
	}
	return s
}

// Load reads quotes and topics from a YAML file.
// A missing file falls back to the built-in defaults.
func Load(path string) (*Store, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse content %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML document with non-empty quotes and topics lists
func Parse(data []byte) (*Store, error) {
	var s Store
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if len(s.Quotes) == 0 {
		return nil, errors.New("no quotes defined")
	}
	if len(s.Topics) == 0 {
		return nil, errors.New("no topics defined")
	}
	return &s, nil
}

// RandomQuote returns one quote chosen uniformly
func (s *Store) RandomQuote() string {
	return s.Quotes[rand.Intn(len(s.Quotes))]
}

// RandomTopic returns one topic chosen uniformly
func (s *Store) RandomTopic() string {
	return s.Topics[rand.Intn(len(s.Topics))]
}
