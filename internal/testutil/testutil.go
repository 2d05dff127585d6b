package testutil

import (
	"bytes"
	"database/sql"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/google/uuid"

	"usermanager/internal/database"
)

// OpenInMemoryDB opens a private in-memory SQLite database with migrations applied.
// The DB is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	// Shared cache keeps the database alive across connections; the uuid keeps tests isolated.
	d, err := database.NewConnection(database.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := database.RunMigrations(d, database.DriverSQLite); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return d
}

func sample() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 120, A: 255})
		}
	}
	return img
}

// PNG returns a tiny valid PNG image.
func PNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, sample()); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG returns a tiny valid JPEG image.
func JPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, sample(), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// GIF returns a tiny valid GIF image.
func GIF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, sample(), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

// WebP returns a WebP header: an image, but not an accepted type.
func WebP() []byte {
	b := []byte("RIFF\x1a\x00\x00\x00WEBPVP8 ")
	return append(b, make([]byte, 18)...)
}
