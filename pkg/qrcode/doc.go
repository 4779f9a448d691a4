// Package qrcode renders handshake URLs as QR codes so a user can complete
// synchronization by scanning with a phone that has the companion app.
//
// PNG and DataURI produce images; Terminal produces a compact half-block
// rendering suitable for a CLI. All three reject blank content with
// ErrEmptyContent.
//
//	png, err := qrcode.PNG(syncURL, 512, qrcode.WithLevel(qrcode.High))
//
// Encoding is done by github.com/skip2/go-qrcode.
package qrcode
