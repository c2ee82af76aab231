package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/courier/pkg/mailer"
	"github.com/dmitrymomot/courier/pkg/storage"
)

// loadAttachments reads every referenced object. Going over the total size
// cap is reported as mailer.ErrAttachmentTooLarge so the message fails
// without a provider round trip.
func (j *Job) loadAttachments(ctx context.Context, refs []Attachment) ([]mailer.Attachment, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	if j.attachments == nil {
		return nil, ErrAttachmentsUnavailable
	}

	remaining := j.maxAttachments
	out := make([]mailer.Attachment, 0, len(refs))
	for _, ref := range refs {
		if remaining <= 0 {
			return nil, mailer.ErrAttachmentTooLarge
		}
		data, err := storage.ReadAll(ctx, j.attachments, ref.Key, remaining)
		if errors.Is(err, storage.ErrObjectTooLarge) {
			return nil, errors.Join(mailer.ErrAttachmentTooLarge, err)
		}
		if err != nil {
			return nil, errors.Join(ErrAttachmentLoad, fmt.Errorf("%s: %w", ref.Key, err))
		}
		remaining -= int64(len(data))
		out = append(out, mailer.Attachment{
			Filename:    ref.Filename,
			ContentType: ref.ContentType,
			Content:     data,
		})
	}
	return out, nil
}
