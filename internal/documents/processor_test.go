package documents

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"doc-investigator/internal/common/config"
	apperrors "doc-investigator/internal/common/errors"
	"doc-investigator/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// ==========================
// Test Helper Functions
// ==========================

type stubRunner struct {
	stdout []byte
	stderr []byte
	err    error
	calls  [][]string
}

func (r *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.stdout, r.stderr, r.err
}

func createTestProcessor(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	cfg := config.InvestigationConfig{
		SupportedFileTypes: []string{".pdf", ".docx", ".txt", ".xlsx"},
		PdftotextPath:      "pdftotext",
	}
	return NewProcessor(cfg, logger.NewTestLogger(t), opts...)
}

func writeFile(t *testing.T, dir, name, content string) Document {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return Document{Name: name, Path: path}
}

func writeDOCX(t *testing.T, dir, name string, paragraphs ...string) Document {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)

	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)
	_, err = w.Write([]byte(body.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return Document{Name: name, Path: path}
}

func writeXLSX(t *testing.T, dir, name string) Document {
	t.Helper()
	path := filepath.Join(dir, name)
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Item", "Qty"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Widget", 3}))
	_, err := f.NewSheet("Prices")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Prices", "A1", &[]interface{}{"Widget", "9.99"}))
	require.NoError(t, f.SaveAs(path))

	return Document{Name: name, Path: path}
}

// ==========================
// Validation Tests
// ==========================

func TestProcessor_Validate(t *testing.T) {
	p := createTestProcessor(t)

	tests := []struct {
		name          string
		docs          []Document
		expectedCode  apperrors.ErrorCode
		validateError func(t *testing.T, err error)
	}{
		{
			name: "all supported",
			docs: []Document{{Name: "a.pdf"}, {Name: "b.DOCX"}, {Name: "c.txt"}, {Name: "d.xlsx"}},
		},
		{
			name:         "empty batch",
			docs:         nil,
			expectedCode: apperrors.ErrCodeInputValidationFailed,
		},
		{
			name:         "unsupported extension",
			docs:         []Document{{Name: "notes.txt"}, {Name: "slides.pptx"}},
			expectedCode: apperrors.ErrCodeUnsupportedFormat,
			validateError: func(t *testing.T, err error) {
				var unsupported *UnsupportedFormatError
				require.True(t, errors.As(err, &unsupported))
				assert.Equal(t, "slides.pptx", unsupported.Filename)
				assert.Equal(t, ".pptx", unsupported.Extension)
				assert.Equal(t, "Unsupported file type: '.pptx' in file 'slides.pptx'.", unsupported.Error())
			},
		},
		{
			name:         "no extension",
			docs:         []Document{{Name: "README"}},
			expectedCode: apperrors.ErrCodeUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Validate(tt.docs)
			if tt.expectedCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tt.expectedCode))
			if tt.validateError != nil {
				tt.validateError(t, err)
			}
		})
	}
}

func TestProcessor_Validate_RespectsConfiguredTypes(t *testing.T) {
	p := NewProcessor(config.InvestigationConfig{SupportedFileTypes: []string{".txt"}}, logger.NewTestLogger(t))

	assert.NoError(t, p.Validate([]Document{{Name: "a.txt"}}))
	assert.True(t, apperrors.IsCode(p.Validate([]Document{{Name: "a.pdf"}}), apperrors.ErrCodeUnsupportedFormat))
}

// ==========================
// Extraction Tests
// ==========================

func TestProcessor_Extract_AllFormats(t *testing.T) {
	dir := t.TempDir()
	runner := &stubRunner{stdout: []byte("page one\fpage two")}
	p := createTestProcessor(t, WithRunner(runner, "/usr/bin/pdftotext"))

	docs := []Document{
		writeFile(t, dir, "notes.txt", "plain text"),
		writeDOCX(t, dir, "memo.docx", "First paragraph", "Second paragraph"),
		writeXLSX(t, dir, "stock.xlsx"),
		{Name: "report.pdf", Path: filepath.Join(dir, "report.pdf")},
	}

	text, err := p.Extract(context.Background(), docs)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"--- CONTENT FROM notes.txt ---\nplain text",
		"--- CONTENT FROM memo.docx ---\nFirst paragraph\nSecond paragraph",
		"--- CONTENT FROM stock.xlsx ---\n--- Sheet: Sheet1 ---\nItem\tQty\nWidget\t3\n--- Sheet: Prices ---\nWidget\t9.99",
		"--- CONTENT FROM report.pdf ---\npage one\npage two",
	}, "\n\n")
	assert.Equal(t, expected, text)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"/usr/bin/pdftotext", "-layout", "-enc", "UTF-8", "-eol", "unix", docs[3].Path, "-"}, runner.calls[0])
}

func TestProcessor_Extract_UnreadableFileBecomesMarker(t *testing.T) {
	dir := t.TempDir()
	runner := &stubRunner{stderr: []byte("Syntax Error"), err: errors.New("exit status 1")}
	p := createTestProcessor(t, WithRunner(runner, "pdftotext"))

	docs := []Document{
		{Name: "broken.pdf", Path: filepath.Join(dir, "broken.pdf")},
		writeFile(t, dir, "corrupt.docx", "not a zip archive"),
		{Name: "missing.txt", Path: filepath.Join(dir, "missing.txt")},
		writeFile(t, dir, "ok.txt", "still here"),
	}

	text, err := p.Extract(context.Background(), docs)
	require.NoError(t, err)

	assert.Contains(t, text, "--- CONTENT FROM broken.pdf ---\n[Error processing PDF: broken.pdf")
	assert.Contains(t, text, "--- CONTENT FROM corrupt.docx ---\n[Error processing DOCX: corrupt.docx")
	assert.Contains(t, text, "--- CONTENT FROM missing.txt ---\n[Error processing TXT: missing.txt")
	assert.True(t, strings.HasSuffix(text, "--- CONTENT FROM ok.txt ---\nstill here"))
}

func TestProcessor_Extract_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	p := createTestProcessor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Extract(ctx, []Document{writeFile(t, dir, "a.txt", "x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessor_Extract_UnvalidatedExtension(t *testing.T) {
	p := createTestProcessor(t)

	_, err := p.Extract(context.Background(), []Document{{Name: "a.exe", Path: "/tmp/a.exe"}})
	var unsupported *UnsupportedFormatError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, ".exe", unsupported.Extension)
}

func TestExtractTXT_DropsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "bad.txt", "ok\xffdone")

	text, err := extractTXT(context.Background(), doc.Path)
	require.NoError(t, err)
	assert.Equal(t, "okdone", text)
}

func TestDocument_BaseNameAndExtension(t *testing.T) {
	assert.Equal(t, "report.PDF", Document{Name: "uploads/report.PDF"}.BaseName())
	assert.Equal(t, ".pdf", Document{Name: "uploads/report.PDF"}.Extension())
	assert.Equal(t, "x.txt", Document{Path: "/tmp/abc/x.txt"}.BaseName())
}
