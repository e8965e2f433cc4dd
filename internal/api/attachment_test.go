package api

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadAttachment(t *testing.T) {
	dir := t.TempDir()

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	pngPath := filepath.Join(dir, "pixel.bin")
	if err := os.WriteFile(pngPath, png, 0o600); err != nil {
		t.Fatal(err)
	}
	txtPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txtPath, []byte("plain notes\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path     string
		wantName string
		wantMIME string
	}{
		{pngPath, "pixel.bin", "image/png"},
		{txtPath, "notes.txt", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			a, err := LoadAttachment(tt.path)
			if err != nil {
				t.Fatalf("LoadAttachment() returned error: %v", err)
			}
			if a.Name != tt.wantName {
				t.Errorf("Name = %s, want %s", a.Name, tt.wantName)
			}
			if !strings.HasPrefix(a.MIMEType, tt.wantMIME) {
				t.Errorf("MIMEType = %s, want %s", a.MIMEType, tt.wantMIME)
			}
			if a.Size() == 0 {
				t.Error("attachment has no data")
			}
		})
	}
}

func TestLoadAttachment_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadAttachment(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadAttachment(dir); err == nil {
		t.Error("expected error for directory")
	}
}

func TestAttachmentFromReader_SizeLimit(t *testing.T) {
	big := bytes.NewReader(make([]byte, MaxAttachmentSize+1))
	if _, err := AttachmentFromReader(big, "big.bin"); err == nil {
		t.Error("expected size limit error")
	}

	ok := bytes.NewReader(make([]byte, 16))
	a, err := AttachmentFromReader(ok, "small.bin")
	if err != nil {
		t.Fatalf("AttachmentFromReader() returned error: %v", err)
	}
	if a.Size() != 16 {
		t.Errorf("Size() = %d, want 16", a.Size())
	}
}
