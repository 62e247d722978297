package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// GenerateTicketQR writes the QR ticket for a registration as <id>.png under
// dirPath and returns the file name. Regenerating overwrites the same file,
// so a replayed confirmation leaves one ticket per registration.
func GenerateTicketQR(registrationID uuid.UUID, content, dirPath string) (string, error) {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create QR directory: %w", err)
	}

	filename := fmt.Sprintf("%s.png", registrationID.String())
	fullPath := filepath.Join(dirPath, filename)

	if err := qrcode.WriteFile(content, qrcode.Medium, 256, fullPath); err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}

	return filename, nil
}

// TicketContent is the payload encoded into a ticket QR.
func TicketContent(registrationID, eventID uuid.UUID) string {
	return fmt.Sprintf("kalam:ticket:%s:%s", registrationID, eventID)
}

// RegistrationIDFromQRPath recovers the registration id from a ticket path
// such as /qrcodes/<id>.png.
func RegistrationIDFromQRPath(qrPath string) (uuid.UUID, error) {
	filename := filepath.Base(qrPath)
	ext := filepath.Ext(filename)
	if ext != ".png" {
		return uuid.Nil, fmt.Errorf("invalid QR path format")
	}

	id, err := uuid.Parse(strings.TrimSuffix(filename, ext))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID in QR path: %w", err)
	}
	return id, nil
}
