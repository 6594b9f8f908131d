package render

import (
	"context"
	"image"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
)

// Decoder reads a rendered code back out of a raster image. It implements
// the decoding collaborator consumed by the quality engine's readability
// check: a failed decode is a fact about the image, not an error.
type Decoder struct {
	reader gozxing.Reader
}

// NewDecoder constructs a QR decoder.
func NewDecoder() *Decoder {
	return &Decoder{reader: zxqr.NewQRCodeReader()}
}

// Decode attempts to extract the encoded string from img.
func (d *Decoder) Decode(_ context.Context, img image.Image) (string, bool) {
	src := gozxing.NewLuminanceSourceFromImage(img)
	bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(src))
	if err != nil {
		return "", false
	}
	result, err := d.reader.Decode(bmp, nil)
	if err != nil {
		return "", false
	}
	return result.GetText(), true
}
