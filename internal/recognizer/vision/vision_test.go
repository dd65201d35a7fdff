package vision

import (
	"context"
	"errors"
	"image"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"

	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
)

type fakeAnnotator struct {
	resp   *visionpb.BatchAnnotateImagesResponse
	err    error
	req    *visionpb.BatchAnnotateImagesRequest
	closed bool
}

func (f *fakeAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakeAnnotator) Close() error {
	f.closed = true
	return nil
}

func symbols(text string, brk visionpb.TextAnnotation_DetectedBreak_BreakType) []*visionpb.Symbol {
	rs := []rune(text)
	out := make([]*visionpb.Symbol, len(rs))
	for i, r := range rs {
		out[i] = &visionpb.Symbol{Text: string(r)}
	}
	out[len(out)-1].Property = &visionpb.TextAnnotation_TextProperty{
		DetectedBreak: &visionpb.TextAnnotation_DetectedBreak{Type: brk},
	}
	return out
}

func box(x0, y0, x1, y1 int32) *visionpb.BoundingPoly {
	return &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	}}
}

func sampleResponse() *visionpb.BatchAnnotateImagesResponse {
	para := &visionpb.Paragraph{
		Confidence:  0.9,
		BoundingBox: box(0, 0, 100, 20),
		Words: []*visionpb.Word{
			{Confidence: 0.95, BoundingBox: box(0, 0, 40, 20), Symbols: symbols("헤라", visionpb.TextAnnotation_DetectedBreak_SPACE)},
			{Confidence: 0.85, BoundingBox: box(50, 0, 100, 20), Symbols: symbols("[17N1]", visionpb.TextAnnotation_DetectedBreak_LINE_BREAK)},
		},
	}
	return &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			FullTextAnnotation: &visionpb.TextAnnotation{
				Pages: []*visionpb.Page{{Blocks: []*visionpb.Block{{Paragraphs: []*visionpb.Paragraph{para}}}}},
			},
		}},
	}
}

func testImage() image.Image {
	return image.NewNRGBA(image.Rect(0, 0, 100, 20))
}

func TestRecognize_Paragraphs(t *testing.T) {
	api := &fakeAnnotator{resp: sampleResponse()}
	e := newEngine(api, nil)

	opts := recognizer.Options{Paragraph: true, Allowlist: recognizer.DefaultAllowlist, Blocklist: recognizer.PrimaryBlocklist}
	lines, err := e.Recognize(context.Background(), testImage(), opts)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "헤라 17N1", lines[0].Text)
	assert.InDelta(t, 0.9, lines[0].Confidence, 1e-6)
	assert.Len(t, lines[0].Box, 4)

	req := api.req.GetRequests()[0]
	assert.Equal(t, visionpb.Feature_TEXT_DETECTION, req.GetFeatures()[0].GetType())
	assert.Equal(t, DefaultLanguageHints, req.GetImageContext().GetLanguageHints())
	assert.NotEmpty(t, req.GetImage().GetContent())
}

func TestRecognize_Words(t *testing.T) {
	e := newEngine(&fakeAnnotator{resp: sampleResponse()}, []string{"ko"})
	lines, err := e.Recognize(context.Background(), testImage(), recognizer.Options{})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "헤라", lines[0].Text)
	assert.Equal(t, "[17N1]", lines[1].Text)
	assert.Equal(t, []image.Point{{50, 0}, {100, 0}, {100, 20}, {50, 20}}, lines[1].Box)
}

func TestRecognize_BoxesMappedBackFromMagnification(t *testing.T) {
	e := newEngine(&fakeAnnotator{resp: sampleResponse()}, nil)
	lines, err := e.Recognize(context.Background(), image.NewNRGBA(image.Rect(0, 0, 50, 10)), recognizer.Options{MagRatio: 2})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, []image.Point{{25, 0}, {50, 0}, {50, 10}, {25, 10}}, lines[1].Box)
}

func TestRecognize_Errors(t *testing.T) {
	_, err := newEngine(&fakeAnnotator{err: errors.New("unavailable")}, nil).
		Recognize(context.Background(), testImage(), recognizer.Options{})
	assert.ErrorContains(t, err, "unavailable")

	apiErr := &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{
		Error: &statuspb.Status{Message: "quota exceeded"},
	}}}
	_, err = newEngine(&fakeAnnotator{resp: apiErr}, nil).
		Recognize(context.Background(), testImage(), recognizer.Options{})
	assert.ErrorContains(t, err, "quota exceeded")

	lines, err := newEngine(&fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{}}, nil).
		Recognize(context.Background(), testImage(), recognizer.Options{})
	assert.NoError(t, err)
	assert.Empty(t, lines)
}

func TestClose(t *testing.T) {
	api := &fakeAnnotator{}
	require.NoError(t, newEngine(api, nil).Close())
	assert.True(t, api.closed)
}
