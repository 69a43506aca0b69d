package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// convert prints the compiler options derived from the project
// configuration, or saves them to ConvertFile.
func (a *App) convert(ctx context.Context) error {
	p, err := a.loadProject(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(p.options, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode compiler options: %w", err)
	}
	data = append(data, '\n')

	if !a.cfg.Save {
		_, err := a.outW.Write(data)
		return err
	}

	target := filepath.Join(a.cwd, ConvertFile)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to save %s: %w", target, err)
	}
	fmt.Fprintf(a.outW, "Saved config to %s\n", ConvertFile)
	return nil
}
