package vm

import (
	"bytes"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleProgram() Program {
	return Program{
		OpImm(OpPush, IntValue(-3)),
		OpImm(OpPush, FloatValue(2.5)),
		Op(OpMul),
		OpName(OpStore, "x"),
		OpImm(OpPush, BoolValue(false)),
		OpRel(OpJmpNotIf, 1),
		OpImm(OpPrintC, TextValue("never")),
		OpName(OpLoad, "x"),
		Op(OpPrint),
	}
}

func TestImageRoundTrip(t *testing.T) {
	prog := sampleProgram()
	data, err := MarshalProgram(prog)
	if err != nil {
		t.Fatalf("MarshalProgram: %v", err)
	}
	got, err := UnmarshalProgram(data)
	if err != nil {
		t.Fatalf("UnmarshalProgram: %v", err)
	}
	if !reflect.DeepEqual(got, prog) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", got, prog)
	}
}

func TestImageCanonical(t *testing.T) {
	a, err := MarshalProgram(sampleProgram())
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalProgram(sampleProgram())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical programs produced different bytes")
	}
}

func TestImageRejectsBadMagic(t *testing.T) {
	data, err := MarshalImage(&Image{Magic: "NOPE", Version: ImageVersion})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalImage(data); err == nil {
		t.Error("expected error for bad magic")
	}
}

func TestImageRejectsVersion(t *testing.T) {
	data, err := MarshalImage(&Image{Magic: ImageMagic, Version: ImageVersion + 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalImage(data); err == nil {
		t.Error("expected error for future version")
	}
}

func TestImageRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalImage([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestWriteReadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.sgmb")
	src := "int x = 1;"
	if err := WriteImage(path, sampleProgram(), src); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}
	img, err := ReadImage(path)
	if err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	if img.Source != src {
		t.Errorf("Source = %q, want %q", img.Source, src)
	}
	if len(img.Program) != len(sampleProgram()) {
		t.Errorf("Program has %d instructions", len(img.Program))
	}
}

func FuzzUnmarshalImage(f *testing.F) {
	seed, err := MarshalProgram(sampleProgram())
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte("SGMB"))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Errors are fine; panics are not.
		_, _ = UnmarshalImage(data)
	})
}
