package handlers

import (
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/example/describer/internal/session"
	"github.com/example/describer/internal/wordlimit"
)

const pageTemplateName = "index.tmpl"

//go:embed templates/*.tmpl static/hero.svg
var assets embed.FS

var pageTemplate = template.Must(template.New("").ParseFS(assets, "templates/*.tmpl"))

// HeroImage is the decorative header image, inlined as a data URL.
type HeroImage struct {
	src template.URL
}

// NewHeroImage inlines data; an empty slice selects the bundled image.
func NewHeroImage(data []byte) HeroImage {
	if len(data) == 0 {
		data, _ = assets.ReadFile("static/hero.svg")
	}
	mediaType, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return HeroImage{
		src: template.URL("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)),
	}
}

// LoadHeroImage reads the hero image from path, or uses the bundled one when
// path is empty.
func LoadHeroImage(path string) (HeroImage, error) {
	if path == "" {
		return NewHeroImage(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return HeroImage{}, fmt.Errorf("read hero image: %w", err)
	}
	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return HeroImage{}, fmt.Errorf("hero image %s is not an image", path)
	}
	return NewHeroImage(data), nil
}

// Src returns the data URL of the image.
func (h HeroImage) Src() template.URL {
	if h.src == "" {
		return NewHeroImage(nil).src
	}
	return h.src
}

type markdownRenderer struct {
	md goldmark.Markdown
}

// newMarkdownRenderer renders GitHub flavoured markdown. Raw HTML in the
// source is dropped by goldmark's default renderer.
func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

func (r *markdownRenderer) render(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

type pageView struct {
	HeroSrc         template.URL
	Accept          string
	HasStaged       bool
	StagedName      string
	WordLimit       int
	MinWords        int
	MaxWords        int
	Ceiling         int
	Description     string
	DescriptionHTML template.HTML
	Notice          *session.Notice
	HasClipboard    bool
	Clipboard       template.JS
}

func (h *handler) newPageView(s *session.Session, notice *session.Notice, clipboard string, hasClipboard bool) (pageView, error) {
	view := pageView{
		HeroSrc:     h.hero.Src(),
		Accept:      ".png,.jpg,.jpeg,.gif,.webp",
		WordLimit:   sliderValue(s.WordLimit),
		MinWords:    session.MinWordLimit,
		MaxWords:    session.MaxWordLimit,
		Ceiling:     wordlimit.Ceiling,
		Description: s.Description,
		Notice:      notice,
	}
	if s.Staged != nil {
		view.HasStaged = true
		view.StagedName = s.Staged.Filename
	}
	if s.Description != "" {
		rendered, err := h.markdown.render(s.Description)
		if err != nil {
			return pageView{}, fmt.Errorf("render description: %w", err)
		}
		view.DescriptionHTML = rendered
	}
	if hasClipboard {
		// json.Marshal escapes <, > and & so the literal is safe inside <script>.
		encoded, err := json.Marshal(clipboard)
		if err != nil {
			return pageView{}, fmt.Errorf("encode clipboard payload: %w", err)
		}
		view.HasClipboard = true
		view.Clipboard = template.JS(encoded)
	}
	return view, nil
}

// sliderValue keeps the rendered slider inside its own bounds; the stored
// limit itself is clamped by the describe pipeline.
func sliderValue(words int) int {
	if words < session.MinWordLimit {
		return session.MinWordLimit
	}
	if words > session.MaxWordLimit {
		return session.MaxWordLimit
	}
	return words
}
