package docpipe

import "fmt"

// DocumentType is the detected document type, per §4.6.
type DocumentType string

const (
	TypePDF        DocumentType = "pdf"
	TypeJPEG       DocumentType = "jpeg"
	TypePNG        DocumentType = "png"
	TypeGIF        DocumentType = "gif"
	TypeTIFF       DocumentType = "tiff"
	TypePostScript DocumentType = "postscript"
	TypeText       DocumentType = "text"
	TypeRaw        DocumentType = "raw"
	TypeUnknown    DocumentType = "unknown"
)

// Extension returns the filename extension used when persisting a document
// of this type (§4.6's "print_job_{jobId}.{ext}" naming).
func (t DocumentType) Extension() string {
	switch t {
	case TypePDF:
		return "pdf"
	case TypeJPEG:
		return "jpg"
	case TypePNG:
		return "png"
	case TypeGIF:
		return "gif"
	case TypeTIFF:
		return "tiff"
	case TypePostScript:
		return "ps"
	case TypeText:
		return "txt"
	default:
		return "raw"
	}
}

// Detect re-runs the signature scan against (presumably already
// decompressed) bytes and applies the text heuristic, per §4.6.
func Detect(data []byte) DocumentType {
	if i, typ := scanSignature(data); i == 0 {
		return typ
	} else if i > 0 {
		// A signature was found, but not at offset 0: still treat the
		// document as that type, matching the extractor's own tolerance
		// for leading noise (§4.4 step 1 uses the same scan).
		return typ
	}
	if isMostlyText(data) {
		return TypeText
	}
	return TypeUnknown
}

func isMostlyText(data []byte) bool {
	n := len(data)
	if n > 1024 {
		n = 1024
	}
	if n == 0 {
		return false
	}
	printable := 0
	for _, b := range data[:n] {
		if (b >= 32 && b <= 126) || b == '\t' || b == '\n' || b == '\r' {
			printable++
		}
	}
	return float64(printable)/float64(n) >= 0.8
}

// IsPDFLikeFormat reports whether mime is one of the declared document-format
// values for which an unknown-typed payload still gets wrapped into a synthetic PDF, per §4.6's
// fallback-synthesis rule.
func IsPDFLikeFormat(mime string) bool {
	switch mime {
	case "application/pdf", "application/postscript", "application/octet-stream":
		return true
	}
	if len(mime) >= len("application/vnd.cups-") && mime[:len("application/vnd.cups-")] == "application/vnd.cups-" {
		return true
	}
	return false
}

// WrapAsPDF embeds arbitrary bytes as the content stream of a minimal valid
// PDF 1.7 structure: catalog -> pages -> one 612x792 page -> content stream
// holding the raw bytes -> info -> xref -> trailer. This is a best-effort
// debugging aid (§4.6); it is not required to be semantically meaningful
// for non-PDF payloads.
func WrapAsPDF(data []byte) []byte {
	var objs []string
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	objs = append(objs, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << >> >>")
	stream := fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data)
	objs = append(objs, stream)
	objs = append(objs, "<< /Producer (vprinter) >>")

	buf := []byte("%PDF-1.7\n")
	offsets := make([]int, len(objs)+1)
	for i, o := range objs {
		offsets[i+1] = len(buf)
		buf = append(buf, []byte(fmt.Sprintf("%d 0 obj\n%s\nendobj\n", i+1, o))...)
	}
	xrefStart := len(buf)
	buf = append(buf, []byte(fmt.Sprintf("xref\n0 %d\n0000000000 65535 f \n", len(objs)+1))...)
	for i := 1; i <= len(objs); i++ {
		buf = append(buf, []byte(fmt.Sprintf("%010d 00000 n \n", offsets[i]))...)
	}
	buf = append(buf, []byte(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R /Info 5 0 R >>\nstartxref\n%d\n%%%%EOF", len(objs)+1, xrefStart))...)
	return buf
}
