package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
)

const Quality = 85

// Processed is a re-encoded image ready for upload.
type Processed struct {
	Body        *bytes.Buffer
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Process decodes an uploaded jpeg, png or webp and re-encodes it in the
// same format, dropping metadata.
func Process(r io.Reader) (*Processed, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("could not decode image: %w", err)
	}

	buf := new(bytes.Buffer)
	switch format {
	case "jpeg":
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: Quality})
	case "png":
		err = png.Encode(buf, img)
	case "webp":
		err = webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: Quality})
	default:
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("could not encode image: %w", err)
	}

	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}
	b := img.Bounds()
	return &Processed{
		Body:        buf,
		ContentType: "image/" + format,
		Ext:         ext,
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// ToWebP converts any supported image to lossy webp. Check-in photos are
// stored this way.
func ToWebP(r io.Reader) (*Processed, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("could not decode image: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: Quality}); err != nil {
		return nil, fmt.Errorf("could not encode webp: %w", err)
	}

	b := img.Bounds()
	return &Processed{Body: buf, ContentType: "image/webp", Ext: ".webp", Width: b.Dx(), Height: b.Dy()}, nil
}
