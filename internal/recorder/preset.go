package recorder

import "fmt"

// Quality names a recording preset.
type Quality string

const (
	QualityOriginal           Quality = "original"
	QualitySkipFrames         Quality = "skip_frames"
	QualitySkipFramesHalfSize Quality = "skip_frames_half_size"
)

// DuplicateThreshold is the sampled difference below which a frame is a
// duplicate of the previous kept frame.
const DuplicateThreshold = 0.01

// DefaultFPS is used when the configured rate is not supported.
const DefaultFPS = 30

// SupportedFPS lists the capture rates a session may use.
var SupportedFPS = []int{15, 30, 60}

// Preset bundles the resolution scale and duplicate handling of a quality.
type Preset struct {
	Quality        Quality
	Scale          float64
	SkipDuplicates bool
	Threshold      float64
}

var presets = map[Quality]Preset{
	QualityOriginal:           {Quality: QualityOriginal, Scale: 1.0},
	QualitySkipFrames:         {Quality: QualitySkipFrames, Scale: 1.0, SkipDuplicates: true, Threshold: DuplicateThreshold},
	QualitySkipFramesHalfSize: {Quality: QualitySkipFramesHalfSize, Scale: 0.5, SkipDuplicates: true, Threshold: DuplicateThreshold},
}

// PresetFor returns the preset for q, defaulting to skip_frames.
func PresetFor(q Quality) Preset {
	if p, ok := presets[q]; ok {
		return p
	}
	return presets[QualitySkipFrames]
}

// ParseQuality validates a quality name.
func ParseQuality(s string) (Quality, error) {
	q := Quality(s)
	if _, ok := presets[q]; !ok {
		return "", fmt.Errorf("unknown quality %q (want original, skip_frames or skip_frames_half_size)", s)
	}
	return q, nil
}

// ValidFPS reports whether fps is one of SupportedFPS.
func ValidFPS(fps int) bool {
	for _, f := range SupportedFPS {
		if f == fps {
			return true
		}
	}
	return false
}

// IntervalMs returns the whole-millisecond frame interval for fps.
// Unsupported rates use DefaultFPS.
func IntervalMs(fps int) int {
	if !ValidFPS(fps) {
		fps = DefaultFPS
	}
	return 1000 / fps
}
