package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/veedy-dev/rockup/internal/domain"
)

// Manifest is the JSON mirror of the install journal. It is rewritten after
// every journal mutation so the editor layer can read the installed set
// without linking a sqlite driver.
type Manifest struct {
	Installed []domain.InstallRecord `json:"installed"`
}

// ReadManifest loads an exported manifest. A missing file is an empty
// manifest, not an error.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func writeManifest(path string, m *Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
