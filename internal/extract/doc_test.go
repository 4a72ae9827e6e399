package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDocxText(t *testing.T) {
	docx := buildDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Tender Notice No. 14/2025</w:t></w:r></w:p>
    <w:p><w:r><w:t>Closing date: 25 March 2025</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := ExtractDocText(docx, "https://example.com/notice.docx")
	require.NoError(t, err)
	assert.Contains(t, text, "Tender Notice No. 14/2025")
	assert.Contains(t, text, "Closing date: 25 March 2025")
}

func TestExtractDocxUnreadable(t *testing.T) {
	_, err := ExtractDocText([]byte("not a zip archive"), "https://example.com/notice.docx")
	assert.Error(t, err)
}

func TestExtractLegacyDocSalvage(t *testing.T) {
	binary := append([]byte{0xd0, 0xcf, 0x11, 0xe0, 0x00, 0x01}, []byte("Closing date: 25 March 2025")...)
	binary = append(binary, 0x00, 0x01, 0x02)

	text, err := ExtractDocText(binary, "https://example.com/notice.doc")
	require.NoError(t, err)
	assert.Contains(t, text, "Closing date: 25 March 2025")
}
