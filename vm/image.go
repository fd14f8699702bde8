package vm

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Image: CBOR serialization of compiled programs
// ---------------------------------------------------------------------------

// ImageMagic identifies an sgm program image.
const ImageMagic = "SGMB"

// ImageVersion is the current image format version.
// Increment when making incompatible changes to Instruction or Value.
const ImageVersion uint16 = 1

// Image is the on-disk and on-wire form of a compiled program.
type Image struct {
	Magic   string  `cbor:"magic"`
	Version uint16  `cbor:"version"`
	Source  string  `cbor:"source,omitempty"`
	Program Program `cbor:"program"`
}

// cborEncMode uses canonical encoding so identical programs produce
// identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalImage serializes an image to CBOR bytes.
func MarshalImage(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// UnmarshalImage deserializes and validates an image.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("vm: unmarshal image: %w", err)
	}
	if img.Magic != ImageMagic {
		return nil, fmt.Errorf("vm: not an sgm image (magic %q)", img.Magic)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("vm: unsupported image version %d (want %d)", img.Version, ImageVersion)
	}
	return &img, nil
}

// MarshalProgram serializes a program without source text.
func MarshalProgram(p Program) ([]byte, error) {
	return MarshalImage(&Image{Magic: ImageMagic, Version: ImageVersion, Program: p})
}

// UnmarshalProgram deserializes a program image.
func UnmarshalProgram(data []byte) (Program, error) {
	img, err := UnmarshalImage(data)
	if err != nil {
		return nil, err
	}
	return img.Program, nil
}

// WriteImage writes a program image to path. When source is non-empty it
// is embedded alongside the instructions.
func WriteImage(path string, p Program, source string) error {
	data, err := MarshalImage(&Image{
		Magic:   ImageMagic,
		Version: ImageVersion,
		Source:  source,
		Program: p,
	})
	if err != nil {
		return fmt.Errorf("vm: marshal image: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("vm: write image %s: %w", path, err)
	}
	return nil
}

// ReadImage loads a program image from path.
func ReadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vm: read image %s: %w", path, err)
	}
	return UnmarshalImage(data)
}
