package services

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func TestExtractTXT(t *testing.T) {
	svc := NewFileExtractService()

	text, err := svc.ExtractText("notes.txt", []byte("  line one \r\n\r\n\r\n\r\nline two  \r\n"))
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	want := "line one\n\nline two"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestExtractTXT_Empty(t *testing.T) {
	svc := NewFileExtractService()
	if _, err := svc.ExtractText("empty.txt", []byte("   \n \n")); err == nil {
		t.Error("whitespace-only text file should be an error")
	}
}

func TestExtractDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(`<w:document><w:body>` +
		`<w:p><w:r><w:t>First paragraph &amp; more</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>tabbed</w:t></w:r></w:p>` +
		`</w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	svc := NewFileExtractService()
	text, err := svc.ExtractText("report.docx", buf.Bytes())
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if !strings.Contains(text, "First paragraph & more") {
		t.Errorf("entity not decoded in %q", text)
	}
	if !strings.Contains(text, "Second\ttabbed") {
		t.Errorf("tab not preserved in %q", text)
	}
}

func TestExtractDOCX_MissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte(`<w:styles/>`))
	zw.Close()

	svc := NewFileExtractService()
	if _, err := svc.ExtractText("broken.docx", buf.Bytes()); err == nil {
		t.Error("docx without word/document.xml should be an error")
	}
}

func TestExtractText_UnsupportedType(t *testing.T) {
	svc := NewFileExtractService()
	if _, err := svc.ExtractText("photo.png", []byte{0x89}); err == nil {
		t.Error("unsupported extension should be an error")
	}
}

func TestSupportedDocument(t *testing.T) {
	for _, name := range []string{"a.txt", "b.PDF", "c.docx"} {
		if !SupportedDocument(name) {
			t.Errorf("SupportedDocument(%q) = false", name)
		}
	}
	for _, name := range []string{"a.png", "b.mp4", "noext", "d.doc"} {
		if SupportedDocument(name) {
			t.Errorf("SupportedDocument(%q) = true", name)
		}
	}
}

func TestStripDOCXML(t *testing.T) {
	got := stripDOCXML([]byte(`<w:p>one</w:p><w:p>two<w:br/>three</w:p>`))
	want := "one\ntwo\nthree\n"
	if got != want {
		t.Errorf("stripDOCXML = %q, want %q", got, want)
	}
}
