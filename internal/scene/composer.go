package scene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signalsfoundry/globe-visualizer/core"
	"github.com/signalsfoundry/globe-visualizer/internal/assets"
	"github.com/signalsfoundry/globe-visualizer/model"
)

// ErrAssetMissing is returned when a scene is built before every texture
// it references is available.
var ErrAssetMissing = errors.New("asset missing")

// Composer is a built scene that can be ticked, resized, picked and
// captured. Implementations are not safe for concurrent use; callers
// serialize access.
type Composer interface {
	// Kind names the scene ("earth" or "pie").
	Kind() string
	// Render advances one frame.
	Render() core.TickStats
	// Resize applies a new viewport. Non-positive sizes are ignored.
	Resize(width, height float64)
	// Viewport returns the current viewport.
	Viewport() Viewport
	// Pick hit-tests the pixel (x, y) of the current viewport.
	Pick(x, y float64) (model.Selection, bool)
	// HitTest returns the payload of the nearest clickable node on r.
	HitTest(r Ray) (model.Selection, bool)
	// CaptureFrame writes the animated state into dst.
	CaptureFrame(dst *FrameState)
	// Describe returns the static scene description.
	Describe() Description
	// Counts returns node counts by kind.
	Counts() map[string]int
}

func requireTextures(l assets.Loader, names []string) error {
	if l == nil {
		return fmt.Errorf("%w: no asset loader", ErrAssetMissing)
	}
	if missing := assets.Missing(l, names); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrAssetMissing, strings.Join(missing, ", "))
	}
	return nil
}
