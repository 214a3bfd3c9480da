package bytecode

import (
	"bytes"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is the current image file format version.
// Increment when making incompatible changes to the format.
const ImageVersion uint16 = 1

// ImageMagic identifies a minivm program image file.
var ImageMagic = []byte{'M', 'I', 'N', 'I'}

// cborEncMode uses canonical options so the same program always encodes
// to the same bytes, which keeps content-addressed storage stable.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// imageBody is the CBOR payload following the magic/version header.
type imageBody struct {
	Entry     uint16          `cbor:"1,keyasint"`
	Functions []FunctionEntry `cbor:"2,keyasint"`
	Code      []byte          `cbor:"3,keyasint"`
}

// EncodeImage serializes a program to image-file bytes:
// magic(4) + version(2, little-endian) + canonical CBOR body.
func EncodeImage(p *Program) ([]byte, error) {
	body, err := cborEncMode.Marshal(imageBody{
		Entry:     p.Entry,
		Functions: p.Functions,
		Code:      p.Code,
	})
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal image: %w", err)
	}
	buf := make([]byte, 0, len(ImageMagic)+2+len(body))
	buf = append(buf, ImageMagic...)
	buf = append(buf, byte(ImageVersion), byte(ImageVersion>>8))
	buf = append(buf, body...)
	return buf, nil
}

// DecodeImage deserializes a program from image-file bytes, validating
// the magic and version before touching the payload.
func DecodeImage(data []byte) (*Program, error) {
	if len(data) < len(ImageMagic)+2 {
		return nil, fmt.Errorf("bytecode: image too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], ImageMagic) {
		return nil, fmt.Errorf("bytecode: invalid image magic: expected %q, got %q", ImageMagic, data[:4])
	}
	version := uint16(data[4]) | uint16(data[5])<<8
	if version > ImageVersion {
		return nil, fmt.Errorf("bytecode: image version %d is newer than supported version %d", version, ImageVersion)
	}

	var body imageBody
	if err := cbor.Unmarshal(data[6:], &body); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal image: %w", err)
	}
	p := &Program{
		Entry:     body.Entry,
		Functions: body.Functions,
		Code:      body.Code,
	}
	if int(p.Entry) >= len(p.Functions) {
		return nil, fmt.Errorf("bytecode: image entry index %d out of range (%d functions)", p.Entry, len(p.Functions))
	}
	return p, nil
}

// WriteImageFile writes a program image to disk.
func WriteImageFile(path string, p *Program) error {
	data, err := EncodeImage(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("bytecode: write image %s: %w", path, err)
	}
	return nil
}

// ReadImageFile loads a program image from disk.
func ReadImageFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bytecode: read image %s: %w", path, err)
	}
	return DecodeImage(data)
}
