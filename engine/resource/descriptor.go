package resource

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/rentabot/rentabot/engine/core"
)

type descriptorEntry struct {
	Description     string `yaml:"description"`
	Endpoint        string `yaml:"endpoint"`
	Tags            string `yaml:"tags"`
	MaxLockDuration int    `yaml:"max_lock_duration"`
}

// LoadDescriptor reads a YAML resource descriptor and returns the catalog
// it declares. The top level is a mapping from resource name to an entry
// with optional keys; resources are numbered 1..N in file order.
func LoadDescriptor(path string) ([]Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resource descriptor %s: %w", path, err)
	}
	return ParseDescriptor(data, path)
}

// ParseDescriptor parses descriptor bytes. An empty descriptor is a
// startup failure, not an empty catalog.
func ParseDescriptor(data []byte, path string) ([]Resource, error) {
	// MapSlice keeps the file order, which drives resource numbering.
	var ordered yaml.MapSlice
	if err := yaml.Unmarshal(data, &ordered); err != nil {
		return nil, fmt.Errorf("parsing resource descriptor %s: %w", path, err)
	}
	if len(ordered) == 0 {
		return nil, core.NewError(
			core.ErrCodeResourceDescriptorEmpty,
			fmt.Sprintf("The resource descriptor is empty : %s", path),
			map[string]any{"descriptor": path},
		)
	}
	var entries map[string]descriptorEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing resource descriptor %s: %w", path, err)
	}
	resources := make([]Resource, 0, len(ordered))
	for i, item := range ordered {
		name := fmt.Sprintf("%v", item.Key)
		entry := entries[name]
		maxLock := entry.MaxLockDuration
		if maxLock <= 0 {
			maxLock = DefaultMaxLockDuration
		}
		resources = append(resources, Resource{
			ID:              i + 1,
			Name:            name,
			Description:     entry.Description,
			Endpoint:        entry.Endpoint,
			Tags:            entry.Tags,
			MaxLockDuration: maxLock,
			LockDetails:     DetailsAvailableInitial,
		})
	}
	return resources, nil
}
