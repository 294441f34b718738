package certificate

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
)

const (
	canvasWidth  = 1600
	canvasHeight = 1130
)

// Data carries the fields printed onto a certificate artifact.
type Data struct {
	StudentName    string
	CourseTitle    string
	CompletionDate time.Time
	CertificateID  string
}

// Renderer draws completion certificates as PNG documents.
type Renderer struct {
	font   *truetype.Font
	logger zerolog.Logger
}

// NewRenderer loads the TTF font used for all certificate text.
func NewRenderer(fontPath string, logger zerolog.Logger) (*Renderer, error) {
	if fontPath == "" {
		return nil, fmt.Errorf("certificate font path must be provided")
	}

	raw, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate font: %w", err)
	}

	parsed, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate font: %w", err)
	}

	return &Renderer{
		font:   parsed,
		logger: logger.With().Str("component", "certificate_renderer").Logger(),
	}, nil
}

// Render produces the PNG artifact for the given completion data.
func (r *Renderer) Render(data Data) ([]byte, error) {
	if data.StudentName == "" || data.CourseTitle == "" {
		return nil, fmt.Errorf("student name and course title are required")
	}

	dc := gg.NewContext(canvasWidth, canvasHeight)

	dc.SetColor(color.White)
	dc.Clear()

	dc.SetRGB255(30, 41, 59)
	dc.SetLineWidth(12)
	dc.DrawRectangle(40, 40, canvasWidth-80, canvasHeight-80)
	dc.Stroke()

	dc.SetLineWidth(2)
	dc.DrawRectangle(60, 60, canvasWidth-120, canvasHeight-120)
	dc.Stroke()

	centerX := float64(canvasWidth) / 2

	dc.SetFontFace(r.face(64))
	dc.SetRGB255(30, 41, 59)
	dc.DrawStringAnchored("CERTIFICATE OF COMPLETION", centerX, 220, 0.5, 0.5)

	dc.SetFontFace(r.face(32))
	dc.SetRGB255(100, 116, 139)
	dc.DrawStringAnchored("This certifies that", centerX, 360, 0.5, 0.5)

	dc.SetFontFace(r.face(72))
	dc.SetRGB255(15, 23, 42)
	dc.DrawStringAnchored(data.StudentName, centerX, 470, 0.5, 0.5)

	dc.SetFontFace(r.face(32))
	dc.SetRGB255(100, 116, 139)
	dc.DrawStringAnchored("has successfully completed the course", centerX, 580, 0.5, 0.5)

	dc.SetFontFace(r.face(52))
	dc.SetRGB255(15, 23, 42)
	dc.DrawStringAnchored(data.CourseTitle, centerX, 680, 0.5, 0.5)

	dc.SetFontFace(r.face(28))
	dc.SetRGB255(100, 116, 139)
	dc.DrawStringAnchored(data.CompletionDate.Format("January 2, 2006"), centerX, 820, 0.5, 0.5)

	dc.SetFontFace(r.face(22))
	dc.SetRGB255(148, 163, 184)
	dc.DrawStringAnchored("Certificate ID: "+data.CertificateID, centerX, 990, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode certificate: %w", err)
	}

	r.logger.Debug().Str("certificate_id", data.CertificateID).Msg("certificate rendered")

	return buf.Bytes(), nil
}

func (r *Renderer) face(points float64) font.Face {
	return truetype.NewFace(r.font, &truetype.Options{Size: points})
}
