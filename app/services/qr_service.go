// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// QRService encodes payment links as PNG images
type QRService interface {
	GeneratePaymentQR(content, name string) (string, error)
}

// QRServiceImpl implements QRService with skip2/go-qrcode
type QRServiceImpl struct {
	outputDir string
	size      int
}

// NewQRService creates a new QR encoder writing under outputDir
func NewQRService(outputDir string, size int) (QRService, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create qr output dir: %w", err)
	}
	if size <= 0 {
		size = 256
	}
	return &QRServiceImpl{outputDir: outputDir, size: size}, nil
}

// GeneratePaymentQR writes a PNG encoding of content and returns its path.
// name becomes the file name, so callers pass the invoice number.
func (s *QRServiceImpl) GeneratePaymentQR(content, name string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("qr content is empty")
	}
	outPath := filepath.Join(s.outputDir, fmt.Sprintf("%s.png", name))
	if err := qrcode.WriteFile(content, qrcode.Medium, s.size, outPath); err != nil {
		return "", fmt.Errorf("failed to write qr code: %w", err)
	}
	return outPath, nil
}
