// Package texture decodes images and manages GPU textures.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

const tgaHeaderSize = 18

func init() {
	// TGA has no signature; match on color-map type 0 and a true-color type.
	image.RegisterFormat("tga", "?\x00\x02", decodeTGAReader, decodeTGAConfig)
	image.RegisterFormat("tga", "?\x00\x0a", decodeTGAReader, decodeTGAConfig)
}

type tgaHeader struct {
	idLength    int
	imageType   byte
	width       int
	height      int
	bpp         int
	topToBottom bool
}

func parseTGAHeader(data []byte) (tgaHeader, error) {
	if len(data) < tgaHeaderSize {
		return tgaHeader{}, fmt.Errorf("tga: header too short")
	}

	h := tgaHeader{
		idLength:  int(data[0]),
		imageType: data[2],
		width:     int(data[12]) | int(data[13])<<8,
		height:    int(data[14]) | int(data[15])<<8,
		bpp:       int(data[16]),
		// Bit 5 of the descriptor selects top-to-bottom row order.
		topToBottom: data[17]&0x20 != 0,
	}

	if data[1] != 0 {
		return h, fmt.Errorf("tga: color-mapped images not supported")
	}
	if h.imageType != TGATypeUncompressed && h.imageType != TGATypeRLE {
		return h, fmt.Errorf("tga: unsupported image type %d", h.imageType)
	}
	if h.bpp != 24 && h.bpp != 32 {
		return h, fmt.Errorf("tga: unsupported bit depth %d", h.bpp)
	}
	return h, nil
}

func decodeTGAConfig(r io.Reader) (image.Config, error) {
	var buf [tgaHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return image.Config{}, fmt.Errorf("tga: %w", err)
	}
	h, err := parseTGAHeader(buf[:])
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: h.width, Height: h.height}, nil
}

func decodeTGAReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tga: %w", err)
	}
	return DecodeTGA(data)
}

// DecodeTGA decodes an uncompressed or RLE compressed true-color TGA image.
func DecodeTGA(data []byte) (image.Image, error) {
	h, err := parseTGAHeader(data)
	if err != nil {
		return nil, err
	}

	offset := tgaHeaderSize + h.idLength
	if offset > len(data) {
		return nil, fmt.Errorf("tga: data truncated")
	}

	p := &tgaPixels{
		img:    image.NewRGBA(image.Rect(0, 0, h.width, h.height)),
		r:      bytes.NewReader(data[offset:]),
		header: h,
		stride: h.bpp / 8,
	}

	if h.imageType == TGATypeUncompressed {
		err = p.decodeRaw()
	} else {
		err = p.decodeRLE()
	}
	if err != nil {
		return nil, err
	}
	return p.img, nil
}

type tgaPixels struct {
	img    *image.RGBA
	r      *bytes.Reader
	header tgaHeader
	stride int
	next   int
}

func (p *tgaPixels) read() (color.RGBA, error) {
	var px [4]byte
	if _, err := io.ReadFull(p.r, px[:p.stride]); err != nil {
		return color.RGBA{}, fmt.Errorf("tga: pixel data truncated")
	}
	a := uint8(255)
	if p.stride == 4 {
		a = px[3]
	}
	// Stored as BGR(A).
	return color.RGBA{R: px[2], G: px[1], B: px[0], A: a}, nil
}

func (p *tgaPixels) put(c color.RGBA) {
	w, h := p.header.width, p.header.height
	x, y := p.next%w, p.next/w
	if !p.header.topToBottom {
		y = h - 1 - y
	}
	p.img.SetRGBA(x, y, c)
	p.next++
}

func (p *tgaPixels) total() int {
	return p.header.width * p.header.height
}

func (p *tgaPixels) decodeRaw() error {
	for p.next < p.total() {
		c, err := p.read()
		if err != nil {
			return err
		}
		p.put(c)
	}
	return nil
}

// decodeRLE reads run-length packets. Truncated input leaves the remaining
// pixels transparent.
func (p *tgaPixels) decodeRLE() error {
	for p.next < p.total() {
		packet, err := p.r.ReadByte()
		if err != nil {
			return nil
		}
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			c, err := p.read()
			if err != nil {
				return nil
			}
			for i := 0; i < count && p.next < p.total(); i++ {
				p.put(c)
			}
			continue
		}

		for i := 0; i < count && p.next < p.total(); i++ {
			c, err := p.read()
			if err != nil {
				return nil
			}
			p.put(c)
		}
	}
	return nil
}
