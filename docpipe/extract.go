// Package docpipe implements the document ingestion pipeline: extracting
// the embedded document payload from an IPP request body, detecting its
// format via magic-byte signatures, and transparently decompressing common
// stream formats, grounded on the byte-scanning idiom in
// WaffleThief123-airprint-bridge's internal/ipp/server.go findDocumentStart
// and Alex4386-zikzi's extractDocumentData.
package docpipe

import "bytes"

var signatures = []struct {
	typ DocumentType
	sig []byte
}{
	{TypePDF, []byte("%PDF")},
	{TypeJPEG, []byte{0xFF, 0xD8, 0xFF}},
	{TypePNG, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{TypeGIF, []byte("GIF87a")},
	{TypeGIF, []byte("GIF89a")},
	{TypeTIFF, []byte("II*\x00")},
	{TypeTIFF, []byte("MM\x00*")},
	{TypePostScript, []byte("%!PS")},
}

// scanSignature returns the offset and type of the first recognized magic
// byte sequence in b, or (-1, TypeUnknown) if none is found.
func scanSignature(b []byte) (int, DocumentType) {
	best := -1
	var bestType DocumentType
	for _, s := range signatures {
		if i := bytes.Index(b, s.sig); i >= 0 && (best == -1 || i < best) {
			best, bestType = i, s.typ
		}
	}
	return best, bestType
}

// ExtractDocument implements §4.4's ordered extraction algorithm. body is
// the full raw request body; tail is the document bytes the IPP codec
// already separated out after the end-of-attributes delimiter (may be nil
// if the caller only has the full body).
func ExtractDocument(body []byte, tail []byte) []byte {
	if len(tail) > 0 {
		return tail
	}

	// 1. signature scan over the whole body.
	if i, _ := scanSignature(body); i >= 0 {
		return body[i:]
	}

	// 2. header boundary: CRLFCRLF or LFLF.
	if i := bytes.Index(body, []byte("\r\n\r\n")); i >= 0 {
		return body[i+4:]
	}
	if i := bytes.Index(body, []byte("\n\n")); i >= 0 {
		return body[i+2:]
	}

	// 3. end-of-attributes scan: skip the 8-byte header, scan for 0x03,
	// then skip trailing 0x00/0x0D/0x0A padding.
	if len(body) > 8 {
		if i := bytes.IndexByte(body[8:], 0x03); i >= 0 {
			pos := 8 + i + 1
			for pos < len(body) && (body[pos] == 0x00 || body[pos] == 0x0D || body[pos] == 0x0A) {
				pos++
			}
			if pos < len(body) {
				return body[pos:]
			}
		}
	}

	// 4. give up, treat the whole thing as the document.
	return body
}
