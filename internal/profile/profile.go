// Package profile files accepted uploads against the owning user's profile.
package profile

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/ResumeDrop/internal/model"
)

// ErrNotFound is returned when the user has no profile document.
var ErrNotFound = errors.New("user profile not found")

// Store is the user-profile collaborator the upload service writes to.
type Store interface {
	AddUpload(ctx context.Context, userID string, record model.UploadRecord) error
	Uploads(ctx context.Context, userID string) (model.UploadHistory, error)
	Close(ctx context.Context) error
}
