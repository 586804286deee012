// Package app wires configuration, data files and assets into a scene. It
// is shared by the server and the headless simulator.
package app

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/signalsfoundry/globe-visualizer/core"
	"github.com/signalsfoundry/globe-visualizer/internal/assets"
	"github.com/signalsfoundry/globe-visualizer/internal/config"
	"github.com/signalsfoundry/globe-visualizer/internal/logging"
	"github.com/signalsfoundry/globe-visualizer/internal/scene"
	"github.com/signalsfoundry/globe-visualizer/kb"
	"github.com/signalsfoundry/globe-visualizer/model"
)

// labelPointSize is the font size of rasterized city labels.
const labelPointSize = 32

// LoadRoutes reads the route file at path into catalog. Files ending in
// .geojson are read as GeoJSON, anything else as the route JSON format. An
// empty path or a missing file leaves the catalog empty.
func LoadRoutes(ctx context.Context, log logging.Logger, catalog *kb.Catalog, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn(ctx, "route file not found; starting without routes", logging.String("path", path))
			return nil
		}
		return fmt.Errorf("open routes: %w", err)
	}
	defer f.Close()

	load := core.LoadRoutes
	if strings.EqualFold(filepath.Ext(path), ".geojson") {
		load = core.LoadRoutesGeoJSON
	}
	routes, err := load(f)
	if err != nil {
		return fmt.Errorf("load routes %s: %w", path, err)
	}
	if err := catalog.AddRoutes(routes); err != nil {
		return fmt.Errorf("load routes %s: %w", path, err)
	}

	sum := core.Summarize(routes)
	log.Info(ctx, "loaded routes",
		logging.String("path", path),
		logging.Int("routes", sum.Routes),
		logging.Int("cities", sum.Cities),
		logging.Int("arcs", sum.Arcs),
	)
	return nil
}

// LoadAssets loads the texture directory, substituting solid placeholders
// for every required texture when the directory does not exist.
func LoadAssets(ctx context.Context, log logging.Logger, dir string) (assets.Loader, error) {
	if dir != "" {
		if _, err := os.Stat(dir); err == nil {
			cat, err := assets.LoadDir(dir)
			if err != nil {
				return nil, err
			}
			if missing := assets.Missing(cat, core.RequiredTextures()); len(missing) > 0 {
				log.Warn(ctx, "asset directory is incomplete",
					logging.String("dir", dir),
					logging.String("missing", strings.Join(missing, ",")),
				)
			}
			return cat, nil
		}
	}
	log.Warn(ctx, "asset directory not found; using placeholder textures", logging.String("dir", dir))
	return assets.Placeholders(core.RequiredTextures())
}

// BuildScene constructs the scene named by cfg.Scene.Kind.
func BuildScene(ctx context.Context, cfg *config.Config, catalog *kb.Catalog, loader assets.Loader, log logging.Logger) (scene.Composer, error) {
	switch cfg.Scene.Kind {
	case "pie":
		pc := cfg.PieScene()
		if cfg.Data.Pie != "" {
			data, err := loadPieData(cfg.Data.Pie)
			if err != nil {
				return nil, err
			}
			pc.Data = data
		}
		return scene.NewPie(ctx, pc, loader, scene.WithLogger(log))
	default:
		ec, err := cfg.EarthScene(time.Now().UTC())
		if err != nil {
			return nil, err
		}
		labeler, err := assets.NewBitmapLabeler(labelPointSize, color.White)
		if err != nil {
			return nil, err
		}
		return scene.NewEarth(ctx, ec, catalog.Routes(), loader, scene.WithLogger(log), scene.WithLabeler(labeler))
	}
}

func loadPieData(path string) ([]model.PieDatum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pie data: %w", err)
	}
	defer f.Close()
	data, err := core.LoadPieData(f)
	if err != nil {
		return nil, fmt.Errorf("load pie data %s: %w", path, err)
	}
	return data, nil
}
