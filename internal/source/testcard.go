package source

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	qrcode "github.com/skip2/go-qrcode"
)

// TestCard is a synthetic source used when no input is given: each page is a
// coloured card with a QR code naming the run, so exported frames identify
// themselves.
type TestCard struct {
	Label  string
	Pages  int
	Width  int
	Height int
}

var cardColors = []color.RGBA{
	{40, 90, 200, 255},
	{200, 70, 60, 255},
	{40, 160, 110, 255},
	{220, 170, 40, 255},
}

func (c *TestCard) PageCount() int {
	return c.Pages
}

func (c *TestCard) PageSize(int) (float64, float64, error) {
	return float64(c.Width), float64(c.Height), nil
}

func (c *TestCard) RenderPage(index int, _ int) (image.Image, error) {
	if index < 0 || index >= c.Pages {
		return nil, fmt.Errorf("test card page %d out of range", index+1)
	}
	card := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(card, card.Bounds(), image.NewUniform(cardColors[index%len(cardColors)]), image.Point{}, draw.Src)

	qr, err := qrcode.New(fmt.Sprintf("%s page %d", c.Label, index+1), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode test card: %w", err)
	}
	size := min(c.Width, c.Height) * 2 / 3
	if size < 21 {
		return card, nil
	}
	code := qr.Image(size)
	at := image.Pt((c.Width-size)/2, (c.Height-size)/2)
	draw.Draw(card, image.Rectangle{Min: at, Max: at.Add(image.Pt(size, size))}, code, image.Point{}, draw.Src)
	return card, nil
}

func (c *TestCard) Close() error {
	return nil
}
