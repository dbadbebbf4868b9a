package importer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/esplay/internal/optree"
)

// Export renders an override tree as indented JSON.
func Export(tree *optree.Node) ([]byte, error) {
	if tree == nil {
		tree = optree.NewGroup()
	}
	return optree.Pretty(tree)
}

// ExportFile writes the exported tree to path. The file is replaced by
// rename so readers never see a partial write.
func ExportFile(path string, tree *optree.Node) error {
	data, err := Export(tree)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".esplay-export-*")
	if err != nil {
		return fmt.Errorf("exporting options: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("exporting options: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("exporting options: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("exporting options: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("exporting options: %w", err)
	}
	return nil
}
