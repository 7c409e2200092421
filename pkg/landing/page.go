package landing

import (
	"bytes"
	"math"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// GenerateSlug appends a base36 timestamp so two pages with the same title
// never collide.
func GenerateSlug(title string, now time.Time) string {
	base := slug.Make(title)
	if base == "" {
		base = "pagina"
	}
	return base + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}

func DuplicateTitle(title string) string {
	return title + " (Copia)"
}

// ConversionRate is conversions/views as a percentage with two decimals.
func ConversionRate(conversions, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return math.Round(float64(conversions)/float64(views)*10000) / 100
}

// Raw HTML in markdown is escaped since WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderPublic prepares blocks for visitors: text blocks get their markdown
// content rendered into settings["html"]. The input is not modified.
func RenderPublic(blocks []Block) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Type != BlockText {
			out = append(out, b)
			continue
		}

		settings := make(map[string]any, len(b.Settings)+1)
		for k, v := range b.Settings {
			settings[k] = v
		}
		if content, ok := b.Settings["content"].(string); ok {
			var buf bytes.Buffer
			if err := mdRenderer.Convert([]byte(content), &buf); err == nil {
				settings["html"] = buf.String()
			}
		}
		b.Settings = settings
		out = append(out, b)
	}
	return out
}
