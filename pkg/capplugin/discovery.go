package capplugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// manifestSuffix marks a plugin binary's sidecar manifest: "scraper-bin"
// ships alongside "scraper-bin.capplugin.yaml".
const manifestSuffix = ".capplugin.yaml"

// Discovered is a plugin binary found on disk, before it is loaded.
type Discovered struct {
	Path     string
	Manifest *Manifest
}

// Discover scans dirs (non-recursively) for "*.capplugin.yaml" manifests
// and pairs each with its executable. Missing directories are skipped,
// not an error, so a deployment can list optional plugin paths. Adapted
// from the teacher's pkg/plugins.PluginDiscovery, trimmed to single-level
// scanning since SPEC_FULL.md's plugin directories are flat.
func Discover(dirs []string) ([]Discovered, error) {
	var found []Discovered
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read plugin dir %q: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), manifestSuffix) {
				continue
			}
			manifestPath := filepath.Join(dir, entry.Name())
			execPath := strings.TrimSuffix(manifestPath, manifestSuffix)

			manifest, err := readManifest(manifestPath)
			if err != nil {
				return nil, fmt.Errorf("manifest %q: %w", manifestPath, err)
			}
			if _, err := os.Stat(execPath); err != nil {
				return nil, fmt.Errorf("plugin executable for %q not found: %w", manifestPath, err)
			}

			found = append(found, Discovered{Path: execPath, Manifest: manifest})
		}
	}
	return found, nil
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Name == "" || m.Version == "" || m.Kind == "" {
		return nil, fmt.Errorf("manifest missing name/version/kind")
	}
	switch m.Kind {
	case KindLLMProvider, KindVectorSearcher, KindScraper:
	default:
		return nil, fmt.Errorf("unknown plugin kind %q", m.Kind)
	}
	return &m, nil
}
