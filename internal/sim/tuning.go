package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning collects every gameplay constant the engine consumes. Values are
// per-second where they scale with wall clock and per-point where they scale
// with score.
type Tuning struct {
	SmoothingAlpha    float64 `yaml:"smoothingAlpha"`
	BaseSpeed         float64 `yaml:"baseSpeed"`         // px/s at score 0
	SpeedGainPerPoint float64 `yaml:"speedGainPerPoint"` // px/s added per point
	SpawnIntervalMs   float64 `yaml:"spawnIntervalMs"`
	BaseGap           float64 `yaml:"baseGap"`
	MinGap            float64 `yaml:"minGap"`
	GapShrinkPerPoint float64 `yaml:"gapShrinkPerPoint"`
	MinStubHeight     float64 `yaml:"minStubHeight"`
	ObstacleWidth     float64 `yaml:"obstacleWidth"`
	AvatarRadius      float64 `yaml:"avatarRadius"`
	AvatarAnchor      float64 `yaml:"avatarAnchor"` // fraction of field width
	MaxGapFraction    float64 `yaml:"maxGapFraction"`
}

func DefaultTuning() Tuning {
	return Tuning{
		SmoothingAlpha:    0.15,
		BaseSpeed:         140.0,
		SpeedGainPerPoint: 4.0,
		SpawnIntervalMs:   1400.0,
		BaseGap:           180.0,
		MinGap:            120.0,
		GapShrinkPerPoint: 2.0,
		MinStubHeight:     40.0,
		ObstacleWidth:     70.0,
		AvatarRadius:      16.0,
		AvatarAnchor:      0.2,
		MaxGapFraction:    0.25,
	}
}

// LoadTuning overlays a YAML file onto the defaults. Absent keys keep their
// default value because the file decodes into a pre-populated struct.
func LoadTuning(path string) (Tuning, error) {
	tuning := DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		return tuning, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return tuning, fmt.Errorf("decode tuning file: %w", err)
	}
	return tuning, nil
}
