// Package catalog loads and saves the flat JSON documents that describe an
// installation's devices, characters, personas, and settings. These are
// boundary documents edited by the companion application's own UI; this
// module only reads (and, for devices, writes back primary-flag changes to)
// them.
//
// Deliberately implemented on stdlib encoding/json + os rather than any
// third-party document store: each document is a single small JSON file with
// no query surface, versioning, or concurrent-writer requirement, so there is
// no framework concern here to wire a library to (see DESIGN.md).
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowcore/flowengine/device"
)

// Character is one entry of characters.json: persona-facing identity data
// consumed when resolving reminders and LLM system-prompt context.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Persona is one entry of personas.json.
type Persona struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// Settings is the single-object shape of settings.json: global LLM and
// generation configuration.
type Settings struct {
	GenerationProvider string `json:"generationProvider,omitempty"` // anthropic | openai | google
	GenerationModel    string `json:"generationModel,omitempty"`
	DefaultCooldown    int    `json:"defaultCooldown,omitempty"`
}

// Catalog holds the four documents loaded from a directory.
type Catalog struct {
	Devices    []device.Record
	Characters []Character
	Personas   []Persona
	Settings   Settings
}

// Load reads devices.json, characters.json, personas.json, and
// settings.json from dir. A missing characters/personas/settings file is not
// an error (those are optional per spec.md §6); a missing or malformed
// devices.json is, since the engine cannot resolve device references
// without it.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{}

	devicesPath := filepath.Join(dir, "devices.json")
	if err := readJSON(devicesPath, &c.Devices); err != nil {
		return nil, fmt.Errorf("load devices.json: %w", err)
	}

	if err := readOptionalJSON(filepath.Join(dir, "characters.json"), &c.Characters); err != nil {
		return nil, fmt.Errorf("load characters.json: %w", err)
	}
	if err := readOptionalJSON(filepath.Join(dir, "personas.json"), &c.Personas); err != nil {
		return nil, fmt.Errorf("load personas.json: %w", err)
	}
	if err := readOptionalJSON(filepath.Join(dir, "settings.json"), &c.Settings); err != nil {
		return nil, fmt.Errorf("load settings.json: %w", err)
	}

	return c, nil
}

// SaveDevices writes c.Devices back to devices.json in dir, overwriting it.
// Used when a flow or UI action flips a device's isPrimaryPump/isPrimaryVibe
// flag.
func (c *Catalog) SaveDevices(dir string) error {
	blob, err := json.MarshalIndent(c.Devices, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal devices.json: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "devices.json"), blob, 0o644)
}

// Resolver builds a device.Resolver over the loaded device catalog.
func (c *Catalog) Resolver() device.Resolver {
	return device.NewCatalogResolver(c.Devices)
}

func readJSON(path string, v interface{}) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(blob, v)
}

func readOptionalJSON(path string, v interface{}) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(blob, v)
}
