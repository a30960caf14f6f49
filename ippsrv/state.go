package ippsrv

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// pluginConfigFile is the persisted plugin_config.json document shape
// from §6: a single "configurations" map keyed by plugin id.
type pluginConfigFile struct {
	Configurations map[string]map[string]any `json:"configurations"`
}

// loadPluginConfig applies a previously persisted plugin_config.json (if
// present) onto registry. A missing file is not an error.
func loadPluginConfig(fs afero.Fs, path string, configure func(id string, cfg map[string]any) error) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var doc pluginConfigFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	for id, cfg := range doc.Configurations {
		if err := configure(id, cfg); err != nil {
			return err
		}
	}
	return nil
}

// savePluginConfig writes the registry's current per-plugin
// configurations to path, overwriting whatever was there.
func savePluginConfig(fs afero.Fs, path string, configs map[string]map[string]any) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(pluginConfigFile{Configurations: configs}, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o600)
}
