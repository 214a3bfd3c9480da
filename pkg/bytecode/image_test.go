package bytecode

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestImageRoundTrip(t *testing.T) {
	prog, err := Generate(airTwoFunctionProgram())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	data, err := EncodeImage(prog)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}
	if string(data[:4]) != "MINI" {
		t.Errorf("image magic = %q, want MINI", data[:4])
	}

	got, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if !reflect.DeepEqual(got, prog) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, prog)
	}

	// The decoded image must run the same as the original.
	v, err := Run(got)
	if err != nil {
		t.Fatalf("Run(decoded) failed: %v", err)
	}
	if v != 8 {
		t.Errorf("decoded image returned %d, want 8", v)
	}
}

func TestImageEncodingIsCanonical(t *testing.T) {
	prog, err := Generate(airTwoFunctionProgram())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	a, err := EncodeImage(prog)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}
	b, err := EncodeImage(prog)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}
	if string(a) != string(b) {
		t.Error("two encodings of the same program differ")
	}
}

func TestImageDecodeErrors(t *testing.T) {
	prog, err := Generate(airTwoFunctionProgram())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	good, err := EncodeImage(prog)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantMsg string
	}{
		{"empty", nil, "too short"},
		{"short header", []byte{'M', 'I', 'N'}, "too short"},
		{"bad magic", append([]byte("JUNK"), good[4:]...), "invalid image magic"},
		{"newer version", append(append([]byte{}, good[:4]...), append([]byte{0xFF, 0xFF}, good[6:]...)...), "newer than supported"},
		{"corrupt body", good[:8], "unmarshal image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeImage(tt.data)
			if err == nil {
				t.Fatal("DecodeImage succeeded, expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestImageDecodeRejectsBadEntry(t *testing.T) {
	prog, err := Generate(airTwoFunctionProgram())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	bad := &Program{Functions: prog.Functions, Code: prog.Code, Entry: 99}
	data, err := EncodeImage(bad)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}
	if _, err := DecodeImage(data); err == nil {
		t.Fatal("DecodeImage accepted out-of-range entry index")
	}
}

func TestImageFileRoundTrip(t *testing.T) {
	prog, err := Generate(airTwoFunctionProgram())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "prog.mini")
	if err := WriteImageFile(path, prog); err != nil {
		t.Fatalf("WriteImageFile failed: %v", err)
	}
	got, err := ReadImageFile(path)
	if err != nil {
		t.Fatalf("ReadImageFile failed: %v", err)
	}
	if !reflect.DeepEqual(got, prog) {
		t.Error("file round trip mismatch")
	}
}

func TestReadImageFileMissing(t *testing.T) {
	if _, err := ReadImageFile(filepath.Join(t.TempDir(), "nope.mini")); err == nil {
		t.Fatal("ReadImageFile succeeded on missing file")
	}
}
