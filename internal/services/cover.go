package services

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

// ImageGenerator is the remote visual service.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error)
}

// CoverService produces the illustrative course image. It never fails: a
// remote error falls back to a locally drawn card, and a storage error leaves
// the URL empty.
type CoverService interface {
	CreateCover(ctx context.Context, course *learning.Course, settings *user.Settings) string
	RenderPlaceholder(title string, width, height int) ([]byte, error)
}

type coverService struct {
	log       *logger.Logger
	generator ImageGenerator
	bucket    BucketService
	palette   []color.NRGBA
	font      *truetype.Font
}

var coverPalette = []string{"#264653", "#2A9D8F", "#E76F51", "#6D597A", "#355070", "#B56576", "#3D405B", "#81B29A"}

func NewCoverService(baseLog *logger.Logger, generator ImageGenerator, bucket BucketService) (CoverService, error) {
	parsed, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse cover font: %w", err)
	}
	palette := make([]color.NRGBA, 0, len(coverPalette))
	for _, h := range coverPalette {
		r, g, b, err := parseHexRGB(h)
		if err != nil {
			return nil, err
		}
		palette = append(palette, color.NRGBA{R: r, G: g, B: b, A: 255})
	}
	return &coverService{
		log:       baseLog.With("service", "CoverService"),
		generator: generator,
		bucket:    bucket,
		palette:   palette,
		font:      parsed,
	}, nil
}

func (cs *coverService) CreateCover(ctx context.Context, course *learning.Course, settings *user.Settings) string {
	if course == nil {
		return ""
	}
	aspect := "16:9"
	visuals := true
	if settings != nil {
		visuals = settings.VisualsEnabled
		if settings.AspectRatio != "" {
			aspect = settings.AspectRatio
		}
	}
	w, h := AspectSize(aspect, 1024)

	var img []byte
	if visuals && cs.generator != nil {
		raw, err := cs.generator.GenerateImage(ctx, coverPrompt(course), w, h)
		if err != nil {
			cs.log.Warn("cover generation failed, drawing placeholder", "course_id", course.ID, "error", err)
		} else if img, err = fitImage(raw, w, h); err != nil {
			cs.log.Warn("cover image unreadable, drawing placeholder", "course_id", course.ID, "error", err)
			img = nil
		}
	}
	if img == nil {
		var err error
		if img, err = cs.RenderPlaceholder(course.Title, w, h); err != nil {
			cs.log.Warn("placeholder cover failed", "course_id", course.ID, "error", err)
			return ""
		}
	}

	key := fmt.Sprintf("course_cover/%s.png", course.ID)
	url, err := cs.bucket.UploadFile(ctx, key, "image/png", bytes.NewReader(img))
	if err != nil {
		cs.log.Warn("cover upload failed", "course_id", course.ID, "error", err)
		return ""
	}
	return url
}

func coverPrompt(c *learning.Course) string {
	return fmt.Sprintf("A clean, friendly editorial illustration for an online course titled %q. %s No text in the image.", c.Title, c.Description)
}

// RenderPlaceholder draws a solid card with the wrapped title. The color is
// stable per title.
func (cs *coverService) RenderPlaceholder(title string, width, height int) ([]byte, error) {
	dc := gg.NewContext(width, height)
	dc.SetColor(cs.pickColor(title))
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	size := float64(height) / 9
	face := truetype.NewFace(cs.font, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
	dc.SetFontFace(face)
	dc.SetColor(color.White)
	text := strings.TrimSpace(title)
	if text == "" {
		text = "Course"
	}
	margin := float64(width) * 0.08
	dc.DrawStringWrapped(text, float64(width)/2, float64(height)/2, 0.5, 0.5, float64(width)-2*margin, 1.3, gg.AlignCenter)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (cs *coverService) pickColor(key string) color.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return cs.palette[h.Sum32()%uint32(len(cs.palette))]
}

// fitImage center-crops raw to the target aspect and scales it to w x h.
func fitImage(raw []byte, w, h int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	cropW, cropH := b.Dx(), b.Dx()*h/w
	if cropH > b.Dy() {
		cropH = b.Dy()
		cropW = b.Dy() * w / h
	}
	x0 := b.Min.X + (b.Dx()-cropW)/2
	y0 := b.Min.Y + (b.Dy()-cropH)/2

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, image.Rect(x0, y0, x0+cropW, y0+cropH), draw.Over, nil)

	var buf bytes.Buffer
	dc := gg.NewContextForRGBA(dst)
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// AspectSize turns "W:H" into pixel dimensions with the long side at long.
// Unknown ratios fall back to 16:9.
func AspectSize(ratio string, long int) (int, int) {
	var rw, rh int
	if _, err := fmt.Sscanf(ratio, "%d:%d", &rw, &rh); err != nil || rw <= 0 || rh <= 0 {
		rw, rh = 16, 9
	}
	if rw >= rh {
		return long, long * rh / rw
	}
	return long * rw / rh, long
}

func parseHexRGB(s string) (r, g, b uint8, err error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("expected 6 hex chars in %q", s)
	}
	var v uint32
	if _, err := fmt.Sscanf(s, "%06x", &v); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}
