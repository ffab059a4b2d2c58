package service

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"postboard/internal/domain"
	"postboard/internal/storage"
)

// upload stores body under key and returns the key to persist on the record.
func upload(ctx context.Context, media storage.Service, logger *logrus.Logger, key string, body io.Reader, contentType string) (string, error) {
	location, err := media.Put(ctx, key, body, contentType)
	if err != nil {
		return "", err
	}
	logger.WithFields(logrus.Fields{"key": key, "location": location}).Debug("image stored")
	return key, nil
}

// removeObjects deletes stored images best effort; failures are only logged.
func removeObjects(ctx context.Context, media storage.Service, logger *logrus.Logger, keys ...string) {
	if media == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := media.Delete(ctx, key); err != nil {
			logger.WithError(err).WithField("key", key).Warn("delete stored image")
		}
	}
}

// canModify reports whether actor may change a record owned by ownerID.
func canModify(actor *domain.User, ownerID int64, perm string) bool {
	if actor == nil {
		return false
	}
	return actor.ID == ownerID || actor.HasPerm(perm)
}
