// Package qr renders QR codes in the data-URL form stored on link records.
package qr

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

const pngSize = 256

// DataURL renders target as a PNG QR code wrapped in a base64 data URL.
func DataURL(target string) (string, error) {
	png, err := qrcode.Encode(target, qrcode.Medium, pngSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
