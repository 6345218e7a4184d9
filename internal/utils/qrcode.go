package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/skip2/go-qrcode"
)

const (
	PINDigits  = 6
	qrCodeSize = 256
)

var pinSpace = big.NewInt(1_000_000)

// QRPayload is the compact document carried inside a gate pass QR code.
type QRPayload struct {
	StudentID uint      `json:"studentId"`
	DeviceID  uint      `json:"deviceId"`
	RFIDTag   string    `json:"rfidTag"`
	Timestamp time.Time `json:"timestamp"`
	Nonce     string    `json:"nonce,omitempty"`
}

func EncodeQRPayload(p QRPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodeQRPayload(s string) (QRPayload, error) {
	var p QRPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return QRPayload{}, fmt.Errorf("decode qr payload: %w", err)
	}
	if p.DeviceID == 0 || p.RFIDTag == "" {
		return QRPayload{}, errors.New("decode qr payload: missing device")
	}
	return p, nil
}

// RenderQR returns the payload as a PNG image.
func RenderQR(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, qrCodeSize)
}

func PNGDataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// GeneratePIN draws uniformly from 000000-999999.
func GeneratePIN() (string, error) {
	n, err := rand.Int(rand.Reader, pinSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", PINDigits, n.Int64()), nil
}
