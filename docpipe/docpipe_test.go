package docpipe

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDocumentSignature(t *testing.T) {
	doc := []byte("%PDF-1.4\n...content...\n%%EOF")
	body := append([]byte{0x00, 0x01, 0x02}, doc...)
	got := ExtractDocument(body, nil)
	assert.Equal(t, doc, got)
}

func TestExtractDocumentUsesCodecTail(t *testing.T) {
	tail := []byte("%PDF-1.4\nhello")
	got := ExtractDocument([]byte("irrelevant"), tail)
	assert.Equal(t, tail, got)
}

func TestExtractDocumentEndOfAttributesFallback(t *testing.T) {
	header := make([]byte, 8)
	body := append(header, 0x01, 0x03, 0x00, 'h', 'i')
	got := ExtractDocument(body, nil)
	assert.Equal(t, []byte("hi"), got)
}

func TestDecompressGzipRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte("%PDF-1.4\nhello world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	res := Decompress(buf.Bytes())
	assert.True(t, res.OK)
	assert.Equal(t, CompressionGzip, res.Compression)
	assert.Equal(t, "%PDF-1.4\nhello world", string(res.Bytes))
}

func TestDecompressUncompressedText(t *testing.T) {
	res := Decompress([]byte("plain ascii text document"))
	assert.Equal(t, CompressionNone, res.Compression)
	assert.True(t, res.OK)
}

func TestDetectPDF(t *testing.T) {
	assert.Equal(t, TypePDF, Detect([]byte("%PDF-1.4\n...")))
}

func TestDetectText(t *testing.T) {
	assert.Equal(t, TypeText, Detect([]byte("hello, this is plain text content\n")))
}

func TestDetectUnknownBinary(t *testing.T) {
	assert.Equal(t, TypeUnknown, Detect([]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0xFE, 0xFF}))
}

func TestIsPDFLikeFormat(t *testing.T) {
	assert.True(t, IsPDFLikeFormat("application/pdf"))
	assert.True(t, IsPDFLikeFormat("application/vnd.cups-raw"))
	assert.False(t, IsPDFLikeFormat("text/plain"))
}
