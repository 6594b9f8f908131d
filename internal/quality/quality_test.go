package quality

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drawFinder paints one 7x7-module finder pattern (dark ring, light ring,
// dark 3x3 core) at module offset (ox, oy).
func drawFinder(img *image.Gray, ox, oy, m int) {
	for gy := 0; gy < 7; gy++ {
		for gx := 0; gx < 7; gx++ {
			dark := gx == 0 || gx == 6 || gy == 0 || gy == 6 ||
				(gx >= 2 && gx <= 4 && gy >= 2 && gy <= 4)
			if !dark {
				continue
			}
			for py := 0; py < m; py++ {
				for px := 0; px < m; px++ {
					img.SetGray((ox+gx)*m+px, (oy+gy)*m+py, color.Gray{Y: 0})
				}
			}
		}
	}
}

// testCode draws the three finder patterns of a 21-module grid with a
// 4-module quiet zone, like a rendered code stripped of its data region.
func testCode(m int) *image.Gray {
	const grid = 29 // 21 modules + 4 quiet zone on each side
	img := image.NewGray(image.Rect(0, 0, grid*m, grid*m))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	drawFinder(img, 4, 4, m)
	drawFinder(img, 18, 4, m)
	drawFinder(img, 4, 18, m)
	return img
}

func checkerboard(m, modules int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m*modules, m*modules))
	for y := 0; y < m*modules; y++ {
		for x := 0; x < m*modules; x++ {
			v := uint8(255)
			if ((x/m)+(y/m))%2 == 0 {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func uniform(size int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

type fakeDecoder struct {
	text string
	ok   bool
}

func (d fakeDecoder) Decode(context.Context, image.Image) (string, bool) {
	return d.text, d.ok
}

func TestDetectFinders(t *testing.T) {
	t.Run("clean code yields three finders", func(t *testing.T) {
		g := toGray(testCode(4))
		finders := detectFinders(g)
		require.Len(t, finders, 3)
		for _, f := range finders {
			assert.InDelta(t, 4, f.module, 1)
		}
		assert.Equal(t, 100.0, alignmentScore(finders, DefaultConfig()))
	})

	t.Run("small modules still detected", func(t *testing.T) {
		g := toGray(testCode(2))
		assert.Len(t, detectFinders(g), 3)
	})

	t.Run("flat image yields none", func(t *testing.T) {
		g := toGray(uniform(64, 255))
		assert.Empty(t, detectFinders(g))
	})
}

func TestAlignmentScore(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("missing finders get partial credit", func(t *testing.T) {
		assert.Equal(t, 0.0, alignmentScore(nil, cfg))
		assert.Equal(t, 20.0, alignmentScore([]finder{{x: 10, y: 10, module: 4}}, cfg))
		assert.Equal(t, 45.0, alignmentScore([]finder{{x: 10, y: 10, module: 4}, {x: 90, y: 10, module: 4}}, cfg))
	})

	t.Run("right angle scores full", func(t *testing.T) {
		finders := []finder{{x: 10, y: 10}, {x: 110, y: 10}, {x: 10, y: 110}}
		assert.Equal(t, 100.0, alignmentScore(finders, cfg))
	})

	t.Run("skew costs partial credit", func(t *testing.T) {
		// Bottom-left shifted sideways: the corner angle is off 90 degrees.
		finders := []finder{{x: 10, y: 10}, {x: 110, y: 10}, {x: 16, y: 110}}
		score := alignmentScore(finders, cfg)
		assert.Less(t, score, 100.0)
		assert.Greater(t, score, 40.0)
	})
}

func TestSizeScore(t *testing.T) {
	cfg := DefaultConfig() // MinModulePx = 4

	t.Run("at reference size", func(t *testing.T) {
		assert.Equal(t, 100.0, sizeScore(4, 10, cfg))
		assert.Equal(t, 100.0, sizeScore(8, 10, cfg))
		assert.InDelta(t, 50, sizeScore(3, 10, cfg), 1e-9)
		assert.Equal(t, 0.0, sizeScore(2, 10, cfg))
		assert.Equal(t, 0.0, sizeScore(1, 10, cfg))
	})

	t.Run("small components need more pixels per module", func(t *testing.T) {
		// 5mm declared size doubles the requirement to 8px per module.
		assert.Equal(t, 100.0, sizeScore(8, 5, cfg))
		assert.InDelta(t, 50, sizeScore(6, 5, cfg), 1e-9)
		assert.Equal(t, 0.0, sizeScore(4, 5, cfg))
	})

	t.Run("strictly decreasing below the threshold", func(t *testing.T) {
		prev := sizeScore(4, 10, cfg)
		for _, m := range []float64{3.8, 3.4, 3.0, 2.6, 2.2} {
			cur := sizeScore(m, 10, cfg)
			assert.Less(t, cur, prev, "module %g", m)
			prev = cur
		}
	})
}

func TestContrastScore(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("full separation scores full", func(t *testing.T) {
		g := toGray(checkerboard(4, 16))
		assert.Equal(t, 100.0, contrastScore(g, 4, cfg))
	})

	t.Run("weak separation degrades linearly", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 64, 64))
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				v := uint8(150)
				if ((x/4)+(y/4))%2 == 0 {
					v = 100
				}
				img.SetGray(x, y, color.Gray{Y: v})
			}
		}
		score := contrastScore(toGray(img), 4, cfg)
		// Separation 50/255 against threshold 0.5.
		assert.InDelta(t, 39.2, score, 1)
	})

	t.Run("flat image scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, contrastScore(toGray(uniform(64, 128)), 4, cfg))
	})
}

func TestSharpnessScore(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("crisp edges score full", func(t *testing.T) {
		assert.Equal(t, 100.0, sharpnessScore(toGray(checkerboard(4, 16)), cfg))
	})

	t.Run("flat image scores zero", func(t *testing.T) {
		assert.InDelta(t, 0, sharpnessScore(toGray(uniform(64, 128)), cfg), 1e-9)
	})
}

func TestVerdict(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("exactly at pass threshold passes", func(t *testing.T) {
		assert.Equal(t, VerdictPass, verdict(70, 100, cfg))
	})

	t.Run("just under pass threshold is marginal", func(t *testing.T) {
		assert.Equal(t, VerdictMarginal, verdict(69.9, 100, cfg))
	})

	t.Run("under marginal threshold fails", func(t *testing.T) {
		assert.Equal(t, VerdictFail, verdict(49.9, 100, cfg))
	})

	t.Run("undecodable code never passes", func(t *testing.T) {
		assert.NotEqual(t, VerdictPass, verdict(95, 0, cfg))
	})
}

func TestEngine_Score(t *testing.T) {
	const expected = "IR-WR-BCT-021-114320-BOLT-2024-001234"
	ctx := context.Background()

	t.Run("clean decodable code passes", func(t *testing.T) {
		engine, err := New(fakeDecoder{text: expected, ok: true}, DefaultConfig())
		require.NoError(t, err)

		report := engine.Score(ctx, testCode(8), 10, expected)
		assert.Equal(t, 100.0, report.ReadabilityScore)
		assert.Equal(t, 100.0, report.AlignmentScore)
		assert.Equal(t, 100.0, report.SizeScore)
		assert.Equal(t, VerdictPass, report.Verdict)
		assert.Empty(t, report.Suggestions)
	})

	t.Run("decode mismatch zeroes readability", func(t *testing.T) {
		engine, err := New(fakeDecoder{text: "IR-SR-MAS-001-000001-CLIP-2023-000001", ok: true}, DefaultConfig())
		require.NoError(t, err)

		report := engine.Score(ctx, testCode(8), 10, expected)
		assert.Equal(t, 0.0, report.ReadabilityScore)
		assert.NotEqual(t, VerdictPass, report.Verdict)
		assert.NotEmpty(t, report.Suggestions)
	})

	t.Run("undecodable image folds into verdict, not error", func(t *testing.T) {
		engine, err := New(fakeDecoder{}, DefaultConfig())
		require.NoError(t, err)

		report := engine.Score(ctx, uniform(64, 200), 10, expected)
		assert.Equal(t, 0.0, report.ReadabilityScore)
		assert.Equal(t, VerdictFail, report.Verdict)
	})

	t.Run("shrinking the render decreases the size score", func(t *testing.T) {
		engine, err := New(fakeDecoder{text: expected, ok: true}, DefaultConfig())
		require.NoError(t, err)

		prev := engine.Score(ctx, testCode(4), 10, expected).SizeScore
		for _, m := range []int{3, 2} {
			cur := engine.Score(ctx, testCode(m), 10, expected).SizeScore
			assert.Less(t, cur, prev, "module %d", m)
			prev = cur
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})

	t.Run("weights must sum to one", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Weights.Size = 0.5
		require.Error(t, cfg.Validate())

		_, err := New(fakeDecoder{}, cfg)
		require.Error(t, err)
	})

	t.Run("marginal threshold below pass threshold", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MarginalThreshold = 80
		require.Error(t, cfg.Validate())
	})
}
