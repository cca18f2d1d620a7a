package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"statguard/internal/config"
	"statguard/internal/model"
	"statguard/internal/rules"
)

const (
	Width        = 820
	HeaderHeight = 90
	RowHeight    = 40
	FooterHeight = 40

	titleY       = 20
	headerLabelY = 60
)

var (
	background  = color.RGBA{17, 24, 39, 255}
	gradientEnd = color.RGBA{45, 59, 92, 255}
	headerColor = color.RGBA{250, 204, 21, 255}
	footerColor = color.RGBA{156, 163, 175, 255}
	textColor   = color.RGBA{255, 255, 255, 255}
)

type column struct {
	label string
	x     int
	stat  string
}

var columns = []column{
	{label: "DATE", x: 20},
	{label: "TM", x: 130},
	{label: "OPP", x: 185},
	{label: "MIN", x: 245},
	{label: "PTS", x: 305, stat: model.StatPoints},
	{label: "REB", x: 365, stat: model.StatRebounds},
	{label: "AST", x: 425, stat: model.StatAssists},
	{label: "FG", x: 485, stat: model.StatFieldGoals},
	{label: "3PT", x: 570, stat: model.StatThrees},
	{label: "PF", x: 655, stat: model.StatFouls},
}

// Spec is everything needed to draw one stat table.
type Spec struct {
	Title  string
	Mode   model.Mode
	Rows   []model.GameRow
	Rules  []model.ThresholdRule
	Footer string
}

// Renderer draws stat tables as PNG. Parsed fonts are shared; faces are
// created per call so Render may run concurrently.
type Renderer struct {
	regular *opentype.Font
	bold    *opentype.Font
	logger  *slog.Logger
}

func NewRenderer(cfg config.RenderConfig, logger *slog.Logger) *Renderer {
	return &Renderer{
		regular: loadFont(cfg.FontPath, goregular.TTF, logger),
		bold:    loadFont(cfg.BoldFontPath, gobold.TTF, logger),
		logger:  logger,
	}
}

// NewBitmapRenderer draws with the built-in 7x13 bitmap face only.
func NewBitmapRenderer() *Renderer {
	return &Renderer{}
}

func loadFont(path string, builtin []byte, logger *slog.Logger) *opentype.Font {
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			var f *opentype.Font
			if f, err = opentype.Parse(data); err == nil {
				return f
			}
		}
		if logger != nil {
			logger.Warn("font unavailable, using built-in", "path", path, "err", err)
		}
	}
	f, err := opentype.Parse(builtin)
	if err != nil {
		if logger != nil {
			logger.Warn("built-in font unavailable, using bitmap face", "err", err)
		}
		return nil
	}
	return f
}

func Height(rows int) int {
	return HeaderHeight + rows*RowHeight + FooterHeight
}

func (r *Renderer) Render(spec Spec) ([]byte, error) {
	img := r.RenderImage(spec)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) RenderImage(spec Spec) *image.RGBA {
	height := Height(len(spec.Rows))
	img := image.NewRGBA(image.Rect(0, 0, Width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	if spec.Mode == model.ModeFirstQuarter {
		paintGradient(img, HeaderHeight, height-FooterHeight)
	}

	faces := r.faces()
	defer faces.close()

	drawCentered(img, faces.title, textColor, Width/2, titleY, spec.Title, faces.fauxBold)
	for _, c := range columns {
		drawText(img, faces.body, headerColor, c.x, headerLabelY, c.label, false)
	}
	for i, row := range spec.Rows {
		top := HeaderHeight + i*RowHeight
		cells := Cells(row)
		emphasis := Emphasis(row, spec.Rules)
		for j, c := range columns {
			face := faces.body
			if emphasis[j] {
				face = faces.bold
			}
			drawText(img, face, textColor, c.x, rowTextTop(face, top), cells[j], emphasis[j] && faces.fauxBold)
		}
	}
	drawCentered(img, faces.footer, footerColor, Width/2, height-FooterHeight/2, spec.Footer, false)
	return img
}

// Cells formats row in column order. Empty text shows as "-".
func Cells(row model.GameRow) []string {
	date := "-"
	if row.HasDate() {
		date = row.Date.Format("02/01/2006")
	}
	return []string{
		date,
		orDash(row.Team),
		orDash(row.Opponent),
		orDash(row.Minutes),
		model.FormatNumber(row.Points),
		model.FormatNumber(row.Rebounds),
		model.FormatNumber(row.Assists),
		row.FieldGoals(),
		row.Threes(),
		model.FormatNumber(row.PersonalFouls),
	}
}

// Emphasis marks, per column, whether the row's value meets the rule
// threshold for that column's stat. Split columns compare the made count.
func Emphasis(row model.GameRow, table []model.ThresholdRule) []bool {
	out := make([]bool, len(columns))
	for i, c := range columns {
		if c.stat == "" {
			continue
		}
		threshold, ok := rules.Threshold(table, c.stat)
		if !ok {
			continue
		}
		v, _ := rules.Value(row, c.stat)
		out[i] = v >= threshold
	}
	return out
}

func paintGradient(img *image.RGBA, from, to int) {
	span := to - from
	if span <= 0 {
		return
	}
	for y := from; y < to; y++ {
		t := float64(y-from) / float64(span)
		c := color.RGBA{
			R: lerp(background.R, gradientEnd.R, t),
			G: lerp(background.G, gradientEnd.G, t),
			B: lerp(background.B, gradientEnd.B, t),
			A: 255,
		}
		for x := 0; x < Width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + t*(float64(b)-float64(a)))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type faceSet struct {
	title    font.Face
	body     font.Face
	bold     font.Face
	footer   font.Face
	fauxBold bool
	owned    []font.Face
}

func (r *Renderer) faces() *faceSet {
	if r.regular == nil || r.bold == nil {
		return bitmapFaces()
	}
	fs := &faceSet{}
	var err error
	if fs.title, err = fs.open(r.bold, 26); err != nil {
		return r.fallback(fs, err)
	}
	if fs.body, err = fs.open(r.regular, 18); err != nil {
		return r.fallback(fs, err)
	}
	if fs.bold, err = fs.open(r.bold, 18); err != nil {
		return r.fallback(fs, err)
	}
	if fs.footer, err = fs.open(r.regular, 14); err != nil {
		return r.fallback(fs, err)
	}
	return fs
}

func (fs *faceSet) open(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	fs.owned = append(fs.owned, face)
	return face, nil
}

func (r *Renderer) fallback(fs *faceSet, err error) *faceSet {
	fs.close()
	if r.logger != nil {
		r.logger.Warn("font face unavailable, using bitmap face", "err", err)
	}
	return bitmapFaces()
}

func (fs *faceSet) close() {
	for _, f := range fs.owned {
		_ = f.Close()
	}
	fs.owned = nil
}

func bitmapFaces() *faceSet {
	f := basicfont.Face7x13
	return &faceSet{title: f, body: f, bold: f, footer: f, fauxBold: true}
}

func rowTextTop(face font.Face, rowTop int) int {
	m := face.Metrics()
	return rowTop + (RowHeight-(m.Ascent.Ceil()+m.Descent.Ceil()))/2
}

func drawText(dst draw.Image, face font.Face, c color.Color, x, top int, s string, fauxBold bool) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	baseline := top + face.Metrics().Ascent.Ceil()
	d.Dot = fixed.P(x, baseline)
	d.DrawString(s)
	if fauxBold {
		d.Dot = fixed.P(x+1, baseline)
		d.DrawString(s)
	}
}

func drawCentered(dst draw.Image, face font.Face, c color.Color, cx, cy int, s string, fauxBold bool) {
	if s == "" {
		return
	}
	m := face.Metrics()
	w := font.MeasureString(face, s).Ceil()
	top := cy - (m.Ascent.Ceil()+m.Descent.Ceil())/2
	drawText(dst, face, c, cx-w/2, top, s, fauxBold)
}
