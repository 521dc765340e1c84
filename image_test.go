package faceprep

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeupnet/faceprep/utils"
)

func TestImage_ImgToNRGBA(t *testing.T) {
	rect := image.Rect(-1, -1, 15, 15)
	colors := palette.Plan9
	testCases := []struct {
		name string
		img  image.Image
	}{
		{
			name: "NRGBA",
			img:  makeNRGBAImage(rect, colors),
		},
		{
			name: "YCbCr-444",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio444),
		},
		{
			name: "YCbCr-422",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio422),
		},
		{
			name: "YCbCr-420",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio420),
		},
		{
			name: "YCbCr-440",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio440),
		},
		{
			name: "YCbCr-410",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio410),
		},
		{
			name: "YCbCr-411",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio411),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := tc.img.Bounds()
			out := imgToNRGBA(tc.img)
			if got, want := out.Bounds(), image.Rect(0, 0, r.Dx(), r.Dy()); got != want {
				t.Fatalf("bounds: got %v want %v", got, want)
			}
			for y := r.Min.Y; y < r.Max.Y; y++ {
				buf := make([]byte, r.Dx()*4)
				i := (y - r.Min.Y) * out.Stride
				copy(buf, out.Pix[i:i+len(buf)])
				wantBuf := readRow(tc.img, y)
				if !compareBytes(buf, wantBuf, 1) {
					t.Errorf("converted line (y=%d): got %v want %v", y, buf, wantBuf)
				}
			}
		})
	}
}

func TestImage_ImgToNRGBAKeepsOriginImages(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	assert.Same(t, img, imgToNRGBA(img))
}

func TestImage_SaveImageRoundTrip(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")

	img := makeNRGBAImage(image.Rect(0, 0, 12, 12), palette.Plan9)
	require.NoError(t, saveImage(path, img))

	back, err := decodeImg(path)
	assert.NoError(err)
	assert.Equal(img.Bounds(), back.Bounds())

	got := color.NRGBAModel.Convert(back.At(3, 4)).(color.NRGBA)
	assert.Equal(img.NRGBAAt(3, 4), got)

	// The temporary file must be gone after the rename.
	entries, err := os.ReadDir(dir)
	assert.NoError(err)
	assert.Len(entries, 1)
}

func TestImage_SaveImageUnknownFormat(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))

	err := saveImage(filepath.Join(dir, "out.webp"), img)
	assert.ErrorIs(err, ErrFormat)

	// A failed encode leaves no partial files behind.
	entries, err := os.ReadDir(dir)
	assert.NoError(err)
	assert.Empty(entries)
}

func TestImage_EncodeImgDefaultsToJpeg(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))

	assert.NoError(t, encodeImg(&buf, img, ""))
	_, format, err := image.Decode(&buf)
	assert.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestImage_WriteFileAtomic(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "points.json")
	require.NoError(t, writeFileAtomic(path, []byte("first")))
	require.NoError(t, writeFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	assert.NoError(err)
	assert.Equal("second", string(data))
}

func TestImage_DecodeImgErrors(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()

	_, err := decodeImg(filepath.Join(dir, "missing.png"))
	assert.Error(err)

	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("this is not a picture"), 0644))
	_, err = decodeImg(junk)
	assert.Error(err)
}

func makeYCbCrImage(rect image.Rectangle, colors []color.Color, sr image.YCbCrSubsampleRatio) *image.YCbCr {
	img := image.NewYCbCr(rect, sr)
	j := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			iy := img.YOffset(x, y)
			ic := img.COffset(x, y)
			c := color.NRGBAModel.Convert(colors[j]).(color.NRGBA)
			img.Y[iy], img.Cb[ic], img.Cr[ic] = color.RGBToYCbCr(c.R, c.G, c.B)
			j++
		}
	}
	return img
}

func makeNRGBAImage(rect image.Rectangle, colors []color.Color) *image.NRGBA {
	img := image.NewNRGBA(rect)
	fillDrawImage(img, colors)
	return img
}

func fillDrawImage(img draw.Image, colors []color.Color) {
	colorsNRGBA := make([]color.NRGBA, len(colors))
	for i, c := range colors {
		nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
		nrgba.A = uint8(i % 256)
		colorsNRGBA[i] = nrgba
	}
	rect := img.Bounds()
	i := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Set(x, y, colorsNRGBA[i])
			i++
		}
	}
}

func readRow(img image.Image, y int) []uint8 {
	row := make([]byte, img.Bounds().Dx()*4)
	i := 0
	for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		row[i+0] = c.R
		row[i+1] = c.G
		row[i+2] = c.B
		row[i+3] = c.A
		i += 4
	}
	return row
}

func compareBytes(a, b []uint8, delta int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if utils.Abs(int(a[i])-int(b[i])) > delta {
			return false
		}
	}
	return true
}
