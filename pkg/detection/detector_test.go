package detection

import (
	"context"
	"errors"
	"image"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-assistant/pkg/client"
	"github.com/menta2k/image-assistant/pkg/types"
)

func stubService(answer string, err error, seen *client.Request) client.ModelService {
	return client.ModelServiceFunc(func(ctx context.Context, req client.Request) (string, error) {
		if seen != nil {
			*seen = req
		}
		return answer, err
	})
}

func TestModelDetectorParsesCorners(t *testing.T) {
	var req client.Request
	svc := stubService("```json\n"+`{"objects": [
		{"label": "Car", "x1": 10, "y1": 10, "x2": 50, "y2": 50, "confidence": 0.9},
		{"label": "", "x1": 80, "y1": 90, "x2": 60, "y2": 70, "confidence": 1.7}
	]}`+"\n```", nil, &req)

	d := NewModelDetector(svc, nil, EncodeOptions{Format: "png", MaxDim: 64}, nil)
	got, err := d.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 400, 300)), "car")
	require.NoError(t, err)

	want := []Detection{
		{Box: types.PercentBox{X: 10, Y: 10, W: 40, H: 40}, Label: "car", Score: 0.9},
		{Box: types.PercentBox{X: 60, Y: 70, W: 20, H: 20}, Label: "car", Score: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Detect() mismatch (-want +got):\n%s", diff)
	}

	assert.Contains(t, req.Prompt, `"car"`)
	require.NotNil(t, req.Image)
	assert.Equal(t, "image/png", req.Image.MIMEType)
	require.NotNil(t, req.Schema)
}

func TestModelDetectorErrors(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))

	d := NewModelDetector(stubService("", errors.New("service down"), nil), nil, EncodeOptions{}, nil)
	_, err := d.Detect(context.Background(), img, "car")
	assert.EqualError(t, err, "service down")

	d = NewModelDetector(stubService("I see a car!", nil, nil), nil, EncodeOptions{}, nil)
	_, err = d.Detect(context.Background(), img, "car")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	dets := []Detection{
		{Label: "a", Score: 0.9},
		{Label: "b", Score: 0.1},
		{Label: "c", Score: 0.3},
		{Label: "d", Score: 0.5},
		{Label: "e", Score: 0.8},
	}

	labels := func(ds []Detection) string {
		var out []string
		for _, d := range ds {
			out = append(out, d.Label)
		}
		return strings.Join(out, ",")
	}

	assert.Equal(t, "a,c,d,e", labels(Filter(dets, DefaultMinConfidence, 0)))
	assert.Equal(t, "a,c", labels(Filter(dets, DefaultMinConfidence, 2)))
	assert.Equal(t, "a,e", labels(Filter(dets, 0.8, DefaultMaxRegions)))
	assert.Empty(t, Filter(nil, 0, 5))

	odd := []Detection{
		{Label: "nan", Score: math.NaN()},
		{Label: "inf", Score: math.Inf(1)},
		{Label: "high", Score: 1.7},
	}
	assert.Equal(t, "high", labels(Filter(odd, 0, 0)))
}

func TestPlannerQueries(t *testing.T) {
	svc := stubService(`{"queries": [
		{"object": "Person", "action": "remove the  person"},
		{"object": "", "action": "remove the ghost"},
		{"object": "person", "action": "remove the person"},
		{"object": "car", "action": ""}
	]}`, nil, nil)

	got, err := NewPlanner(svc).Queries(context.Background(), "remove the person and the car")
	require.NoError(t, err)

	want := []types.DetectionQuery{
		{ObjectClass: "person", Action: "remove the person"},
		{ObjectClass: "car", Action: "remove the person and the car"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Queries() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "remove_person", got[0].Tag())
}

func TestPlannerEmptyAndMalformed(t *testing.T) {
	got, err := NewPlanner(stubService(`{"queries": []}`, nil, nil)).Queries(context.Background(), "do something")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NewPlanner(stubService(`{"queries": [`, nil, nil)).Queries(context.Background(), "x")
	assert.Error(t, err)
}
