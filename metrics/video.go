package metrics

import "math"

// Landmark indices into the face mesh and pose schemas.
const (
	NoseTip          = 1
	MouthLeftCorner  = 61
	MouthRightCorner = 291
	LeftShoulder     = 11
	RightShoulder    = 12
)

// Landmark coordinates are normalized to the frame. Any coordinate may be
// missing in client telemetry.
type Landmark struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z,omitempty"`
}

// Frame is one telemetry sample. Face and Pose are absent when the tracker
// lost the subject.
type Frame struct {
	Face []*Landmark `json:"face,omitempty"`
	Pose []*Landmark `json:"pose,omitempty"`
}

type VideoMetrics struct {
	GazeStability       float64 `json:"gaze_stability"`
	ExpressionStability float64 `json:"expression_stability"`
	PostureStability    float64 `json:"posture_stability"`
}

// Video computes the three stability scores. Each metric only looks at frames
// that carry the landmarks it needs, and a metric with no usable frames is 0.
func Video(frames []Frame) VideoMetrics {
	var gaze, expression, posture []float64

	for _, f := range frames {
		if nose := at(f.Face, NoseTip); nose != nil && nose.X != nil {
			gaze = append(gaze, *nose.X)
		}

		left, right := at(f.Face, MouthLeftCorner), at(f.Face, MouthRightCorner)
		if hasXY(left) && hasXY(right) {
			expression = append(expression, math.Hypot(*left.X-*right.X, *left.Y-*right.Y))
		}

		ls, rs := at(f.Pose, LeftShoulder), at(f.Pose, RightShoulder)
		if ls != nil && rs != nil && ls.Y != nil && rs.Y != nil {
			posture = append(posture, math.Abs(*ls.Y-*rs.Y))
		}
	}

	return VideoMetrics{
		GazeStability:       StdDev(gaze),
		ExpressionStability: StdDev(expression),
		PostureStability:    StdDev(posture),
	}
}

func at(list []*Landmark, idx int) *Landmark {
	if idx >= len(list) {
		return nil
	}
	return list[idx]
}

func hasXY(l *Landmark) bool {
	return l != nil && l.X != nil && l.Y != nil
}

// StdDev is the population standard deviation, 0 for an empty slice.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
