package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/fleetfeast/pogicity/internal/geo"
)

// export restores the newest snapshot and writes it as GeoJSON to path.
func (a *app) export(path string) error {
	if err := a.openStorage(); err != nil {
		return err
	}
	if err := a.restore(); err != nil {
		return err
	}

	anchor, err := geo.NewAnchor(config.GetGeoConfig())
	if err != nil {
		return err
	}
	fc := geo.Export(a.engine.Snapshot(), a.zones.Zones(), anchor)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	if err := geo.WriteGeoJSON(f, fc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %d features to %s\n", len(fc.Features), path)
	return nil
}

// checksum restores the newest snapshot and prints the grid checksum. It
// fails when the stored checksum does not match the restored grid.
func (a *app) checksum(w io.Writer) error {
	if err := a.openStorage(); err != nil {
		return err
	}
	snap, err := a.backend.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := a.engine.Restore(snap); err != nil {
		return fmt.Errorf("failed to restore snapshot %d: %w", snap.ID, err)
	}

	sum := a.engine.Checksum()
	fmt.Fprintf(w, "%s  snapshot %d tick %d\n", sum, snap.ID, snap.Tick)
	if snap.Checksum != "" && snap.Checksum != sum {
		return fmt.Errorf("stored checksum %s does not match grid %s", snap.Checksum, sum)
	}
	return nil
}
