package models

import (
	"bytes"
	"io"
)

// UserInput carries the submitted form fields for create and update.
type UserInput struct {
	Name    string
	Email   string
	Mobile  string
	Address string
	Image   *ImageUpload // nil when no file was uploaded
}

// Values returns the text fields keyed by form field name.
func (in UserInput) Values() map[string]string {
	return map[string]string{
		"name":    in.Name,
		"email":   in.Email,
		"mobile":  in.Mobile,
		"address": in.Address,
	}
}

// ImageUpload is an uploaded profile image held in memory.
type ImageUpload struct {
	Filename string // Client supplied file name
	Size     int64  // Size reported by the multipart header
	Data     []byte // At most MaxImageKilobytes*1024+1 bytes are read
}

// Content returns a fresh reader over the uploaded bytes.
func (u *ImageUpload) Content() io.Reader {
	return bytes.NewReader(u.Data)
}

// IsZero reports whether nothing was uploaded.
func (u *ImageUpload) IsZero() bool {
	return u == nil || (u.Filename == "" && len(u.Data) == 0)
}

// MaxImageKilobytes is the largest accepted profile image.
const MaxImageKilobytes = 2048
