package repository

import (
	"context"
	"io"
	"path"
	"strings"

	"codejudge/internal/common/storage"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

var sourceExtensions = map[string]string{
	model.LanguageCPP:    "cpp",
	model.LanguageJava:   "java",
	model.LanguagePython: "py",
}

// SourceArchive stores the user code of graded submissions.
type SourceArchive struct {
	store  storage.ObjectStorage
	bucket string
}

// NewSourceArchive creates an archive. A nil store disables archiving.
func NewSourceArchive(store storage.ObjectStorage, bucket string) *SourceArchive {
	return &SourceArchive{store: store, bucket: bucket}
}

// Enabled reports whether archiving is configured.
func (a *SourceArchive) Enabled() bool {
	return a != nil && a.store != nil && a.bucket != ""
}

// SourceKey is the object key for sub: <userId>/<submissionId>/source.<ext>.
func SourceKey(sub *model.Submission) string {
	ext, ok := sourceExtensions[strings.ToUpper(sub.Language)]
	if !ok {
		ext = "txt"
	}
	return path.Join(sub.UserID, sub.SubmissionID, "source."+ext)
}

// Archive uploads sub.UserCode and returns its key, or "" when disabled.
func (a *SourceArchive) Archive(ctx context.Context, sub *model.Submission) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if sub.SubmissionID == "" || sub.UserID == "" {
		return "", appErr.New(appErr.InvalidParams).WithMessage("submission id and user id are required")
	}
	key := SourceKey(sub)
	body := strings.NewReader(sub.UserCode)
	if err := a.store.PutObject(ctx, a.bucket, key, body, int64(body.Len()), "text/plain; charset=utf-8"); err != nil {
		return "", appErr.Wrapf(err, appErr.StorageError, "archive source failed")
	}
	return key, nil
}

// Load reads an archived source back.
func (a *SourceArchive) Load(ctx context.Context, key string) (string, error) {
	if !a.Enabled() {
		return "", appErr.New(appErr.ServiceUnavailable).WithMessage("source archive is disabled")
	}
	rc, err := a.store.GetObject(ctx, a.bucket, key)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.StorageError, "load source failed")
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.StorageError, "read source failed")
	}
	return string(data), nil
}
