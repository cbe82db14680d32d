package metrics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func faceWithNose(x float64) []*Landmark {
	face := make([]*Landmark, 2)
	face[NoseTip] = &Landmark{X: ptr(x), Y: ptr(0.5)}
	return face
}

func faceWithMouth(lx, ly, rx, ry float64) []*Landmark {
	face := make([]*Landmark, MouthRightCorner+1)
	face[NoseTip] = &Landmark{X: ptr(0.5), Y: ptr(0.5)}
	face[MouthLeftCorner] = &Landmark{X: ptr(lx), Y: ptr(ly)}
	face[MouthRightCorner] = &Landmark{X: ptr(rx), Y: ptr(ry)}
	return face
}

func poseWithShoulders(ly, ry float64) []*Landmark {
	pose := make([]*Landmark, RightShoulder+1)
	pose[LeftShoulder] = &Landmark{X: ptr(0.3), Y: ptr(ly)}
	pose[RightShoulder] = &Landmark{X: ptr(0.7), Y: ptr(ry)}
	return pose
}

func TestVideo(t *testing.T) {
	tests := []struct {
		name string
		in   []Frame
		want VideoMetrics
	}{
		{
			name: "constant nose gives zero gaze",
			in: []Frame{
				{Face: faceWithNose(0.1)},
				{Face: faceWithNose(0.1)},
				{Face: faceWithNose(0.1)},
			},
			want: VideoMetrics{},
		},
		{
			name: "frames without face",
			in:   []Frame{{}, {}, {Pose: nil}},
			want: VideoMetrics{},
		},
		{
			name: "empty input",
			in:   nil,
			want: VideoMetrics{},
		},
		{
			name: "gaze population stddev",
			in: []Frame{
				{Face: faceWithNose(0.2)},
				{Face: faceWithNose(0.4)},
			},
			want: VideoMetrics{GazeStability: 0.1},
		},
		{
			name: "mouth distance varies",
			in: []Frame{
				{Face: faceWithMouth(0, 0, 0.3, 0.4)}, // distance 0.5
				{Face: faceWithMouth(0, 0, 0.6, 0.8)}, // distance 1.0
			},
			want: VideoMetrics{ExpressionStability: 0.25},
		},
		{
			name: "shoulder tilt varies",
			in: []Frame{
				{Pose: poseWithShoulders(0.5, 0.5)},
				{Pose: poseWithShoulders(0.5, 0.7)},
			},
			want: VideoMetrics{PostureStability: 0.1},
		},
		{
			name: "short face list is skipped for expression only",
			in: []Frame{
				{Face: faceWithNose(0.2)},
				{Face: faceWithMouth(0, 0, 0.3, 0.4)},
			},
			want: VideoMetrics{GazeStability: 0.15},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Video(tt.in)
			assert.InDelta(t, tt.want.GazeStability, got.GazeStability, 1e-9)
			assert.InDelta(t, tt.want.ExpressionStability, got.ExpressionStability, 1e-9)
			assert.InDelta(t, tt.want.PostureStability, got.PostureStability, 1e-9)
		})
	}
}

func TestVideoFromClientJSON(t *testing.T) {
	payload := `[
		{"face": [{"x": 0.0}, {"x": 0.1, "y": 0.2}]},
		{"face": [{"x": 0.0}, {"y": 0.2}]},
		{"pose": [{"x": 0.1, "y": 0.1}]},
		{"face": [{"x": 0.0}, {"x": 0.3, "y": 0.2}]}
	]`

	var frames []Frame
	require.NoError(t, json.Unmarshal([]byte(payload), &frames))

	got := Video(frames)
	assert.InDelta(t, 0.1, got.GazeStability, 1e-9)
	assert.Zero(t, got.ExpressionStability)
	assert.Zero(t, got.PostureStability)
}
