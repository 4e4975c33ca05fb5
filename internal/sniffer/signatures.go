package sniffer

import "bytes"

// jpegScanLimit bounds the search for a JPEG marker pair.
const jpegScanLimit = 1024

var (
	gif87Signature = []byte("GIF87a")
	gif89Signature = []byte("GIF89a")
	pngSignature   = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
)

// matchSignature checks GIF, then JPEG, then PNG.
func matchSignature(data []byte) (string, bool) {
	if bytes.HasPrefix(data, gif87Signature) || bytes.HasPrefix(data, gif89Signature) {
		return TypeGIF, true
	}

	if hasJPEGMarker(data) {
		return TypeJPEG, true
	}

	if bytes.HasPrefix(data, pngSignature) {
		return TypePNG, true
	}

	return "", false
}

// hasJPEGMarker looks for an SOI (FF D8) or APPn (FF E0..FF EF) pair anywhere in the first 1024 bytes.
// This is approximate: any binary data carrying such a pair early on is reported as JPEG.
func hasJPEGMarker(data []byte) bool {
	if len(data) > jpegScanLimit {
		data = data[:jpegScanLimit]
	}

	for i := 0; i+1 < len(data); i++ {
		if data[i] != 0xff {
			continue
		}
		next := data[i+1]
		if next == 0xd8 || next&0xf0 == 0xe0 {
			return true
		}
	}
	return false
}
