package property

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/uow"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/infra/storage/s3"
)

const addPhotoKey = "property.photos.add"

type AddPhotoCommand struct {
	PropertyID  string
	ObjectKey   string
	ContentType string
	Reader      io.Reader
}

func (c AddPhotoCommand) Key() string { return addPhotoKey }

type AddPhotoResult struct {
	PropertyID string   `json:"property_id"`
	PhotoURL   string   `json:"photo_url"`
	PhotoKeys  []string `json:"photo_keys"`
}

// AddPhotoHandler uploads a property photo to object storage and records the
// resulting URL on the aggregate.
type AddPhotoHandler struct {
	Logger   *slog.Logger
	Uploader s3.Uploader
	Now      func() time.Time
}

func (h *AddPhotoHandler) Handle(ctx context.Context, cmd AddPhotoCommand) (*AddPhotoResult, error) {
	if h.Uploader == nil {
		return nil, errors.New("photo uploader unavailable")
	}
	if strings.TrimSpace(cmd.PropertyID) == "" {
		return nil, errors.New("property id is required")
	}
	if cmd.Reader == nil {
		return nil, errors.New("photo reader is required")
	}
	if strings.TrimSpace(cmd.ObjectKey) == "" {
		return nil, errors.New("object key is required")
	}

	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	p, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		return nil, err
	}

	publicURL, err := h.Uploader.Upload(ctx, cmd.ObjectKey, cmd.Reader, cmd.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	p.AttachPhoto(publicURL, now)
	if err := unit.Properties().Save(ctx, p); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("property photo added", "property_id", p.ID, "object_key", cmd.ObjectKey)
	}

	return &AddPhotoResult{
		PropertyID: cmd.PropertyID,
		PhotoURL:   publicURL,
		PhotoKeys:  append([]string(nil), p.PhotoKeys...),
	}, nil
}

var _ commands.Handler[AddPhotoCommand, *AddPhotoResult] = (*AddPhotoHandler)(nil)
