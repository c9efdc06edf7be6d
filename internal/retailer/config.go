package retailer

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed sources.json
var embeddedSources []byte

// SourceConfig describes where a retailer page keeps its deal list and how
// to read each item. Paths are dot separated; numeric segments index arrays.
type SourceConfig struct {
	Store     string   `json:"store"`
	URL       string   `json:"url"`
	ItemPaths []string `json:"item_paths"`
	// InlineVar names a window.<var> = [...] assignment used when the page
	// carries no __NEXT_DATA__ script.
	InlineVar string      `json:"inline_var,omitempty"`
	Fields    FieldConfig `json:"fields"`
}

type FieldConfig struct {
	Name         []string `json:"name"`
	SalePrice    []string `json:"sale_price"`
	RegularPrice []string `json:"regular_price"`
	Expires      []string `json:"expires,omitempty"`
	Image        []string `json:"image,omitempty"`
}

// LoadSources reads source definitions from a JSON file.
func LoadSources(path string) (map[string]SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read retailer source file: %w", err)
	}
	return LoadSourcesFromBytes(data)
}

// LoadSourcesFromBytes parses source definitions and checks each has what a
// fetch needs.
func LoadSourcesFromBytes(data []byte) (map[string]SourceConfig, error) {
	var sources map[string]SourceConfig
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse retailer source JSON: %w", err)
	}
	for name, src := range sources {
		if src.Store == "" || src.URL == "" || len(src.ItemPaths) == 0 {
			return nil, fmt.Errorf("retailer source %q needs store, url and item_paths", name)
		}
		if len(src.Fields.Name) == 0 || len(src.Fields.SalePrice) == 0 {
			return nil, fmt.Errorf("retailer source %q needs name and sale_price fields", name)
		}
	}
	return sources, nil
}

// DefaultSources returns the built-in definitions for Aldi, Walmart and H-E-B.
func DefaultSources() map[string]SourceConfig {
	sources, err := LoadSourcesFromBytes(embeddedSources)
	if err != nil {
		panic(fmt.Sprintf("embedded sources.json is invalid: %v", err))
	}
	return sources
}
