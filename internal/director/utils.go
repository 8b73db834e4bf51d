package director

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ivlev/choreo/internal/system"
)

// GenerateScenarioPath names a recording of effect inside dir by wall time.
func GenerateScenarioPath(dir, effect string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.yaml", effect, time.Now().Format("2006-01-02_15-04-05")))
}

// FindLatestScenario returns the most recently written scenario in dir.
func FindLatestScenario(dir string) (string, error) {
	path, err := system.FindLatest(dir, system.ScenarioExts...)
	if err != nil {
		return "", fmt.Errorf("find scenario: %w", err)
	}
	return path, nil
}
