// Package classifier decides whether free-text item names are food and whether
// merchant names are grocery retailers, using keyword substring tables.
package classifier

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var embeddedKeywords []byte

// Keywords holds the three substring tables driving classification.
type Keywords struct {
	Food          []string `yaml:"food"`
	NonFood       []string `yaml:"non_food"`
	GroceryStores []string `yaml:"grocery_stores"`
}

// LoadKeywords reads a keyword table file from disk.
func LoadKeywords(path string) (Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("failed to read keywords file: %w", err)
	}
	return LoadKeywordsFromBytes(data)
}

// LoadKeywordsFromBytes parses a YAML keyword table.
func LoadKeywordsFromBytes(data []byte) (Keywords, error) {
	var k Keywords
	if err := yaml.Unmarshal(data, &k); err != nil {
		return Keywords{}, fmt.Errorf("failed to parse keywords YAML: %w", err)
	}
	if len(k.Food) == 0 || len(k.GroceryStores) == 0 {
		return Keywords{}, fmt.Errorf("keywords YAML must define food and grocery_stores")
	}
	return k, nil
}

var defaultKeywords = sync.OnceValue(func() Keywords {
	k, err := LoadKeywordsFromBytes(embeddedKeywords)
	if err != nil {
		panic(fmt.Sprintf("embedded keywords.yaml is invalid: %v", err))
	}
	return k
})

// DefaultKeywords returns the built-in tables. Callers must not mutate the slices.
func DefaultKeywords() Keywords {
	return defaultKeywords()
}

// Classifier applies a fixed set of keyword tables. It is safe for concurrent use.
type Classifier struct {
	food    []string
	nonFood []string
	grocery []string
}

// New builds a Classifier; keywords are lowercased once here.
func New(k Keywords) *Classifier {
	return &Classifier{
		food:    lowerAll(k.Food),
		nonFood: lowerAll(k.NonFood),
		grocery: lowerAll(k.GroceryStores),
	}
}

var defaultClassifier = sync.OnceValue(func() *Classifier {
	return New(DefaultKeywords())
})

// Default returns the Classifier over the built-in tables.
func Default() *Classifier {
	return defaultClassifier()
}

// IsFood reports whether name denotes a food product. A food keyword match
// wins outright; otherwise any non-food keyword rejects it, and unmatched
// names count as food.
func (c *Classifier) IsFood(name string) bool {
	lower := strings.ToLower(name)
	if containsAny(lower, c.food) {
		return true
	}
	return !containsAny(lower, c.nonFood)
}

// IsGroceryStore reports whether merchantName matches a known grocery chain or
// grocery word. Unmatched merchants are not grocery stores.
func (c *Classifier) IsGroceryStore(merchantName string) bool {
	return containsAny(strings.ToLower(merchantName), c.grocery)
}

// IsFood classifies with the built-in tables.
func IsFood(name string) bool {
	return Default().IsFood(name)
}

// IsGroceryStore classifies with the built-in tables.
func IsGroceryStore(merchantName string) bool {
	return Default().IsGroceryStore(merchantName)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
