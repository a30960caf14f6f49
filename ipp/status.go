// Package ipp contains shared helpers for building and inspecting IPP
// attribute groups on top of github.com/OpenPrinting/goipp. It does not
// re-implement the wire codec; goipp.Message already does that.
package ipp

import "github.com/OpenPrinting/goipp"

// Status is the IPP status-code that goes into the response header's Code
// field (RFC 8011 appendix B). goipp represents both operation and status
// codes as the same underlying Code type.
type Status goipp.Code

const (
	StatusSuccessfulOK                      Status = 0x0000
	StatusClientErrorBadRequest             Status = 0x0400
	StatusClientErrorNotPossible            Status = 0x0403
	StatusClientErrorNotFound               Status = 0x0406
	StatusClientErrorDocFormatNotSupported  Status = 0x040A
	StatusServerErrorInternalError          Status = 0x0500
	StatusServerErrorServiceUnavailable     Status = 0x0503
)

const (
	CharsetUTF8     goipp.String = "utf-8"
	LanguageEnUS    goipp.String = "en"
	MimePDF         goipp.String = "application/pdf"
	MimeOctetStream goipp.String = "application/octet-stream"
	MimeCUPSRaw     goipp.String = "application/vnd.cups-raw"
	MimeCUPSPDF     goipp.String = "application/vnd.cups-pdf"
	MimeJPEG        goipp.String = "image/jpeg"
	MimePNG         goipp.String = "image/png"
	MimeText        goipp.String = "text/plain"
)
