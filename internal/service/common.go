package service

import (
	"context"
	"io"

	"github.com/edustack/lms-api/pkg/mailer"
)

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	ID   uint
	Role string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// BytesUploader stores an in-memory artifact and returns a URL.
type BytesUploader interface {
	UploadBytes(ctx context.Context, name string, data []byte) (string, error)
}

// Mailer delivers a single outbound email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}
