package intake

import (
	"context"
	"errors"
	"io"

	"contractor-backend/internal/lead"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrAttachmentNotFound = errors.New("attachment not found")

// AttachmentStore keeps the files visitors attach to the wizard.
type AttachmentStore interface {
	Put(ctx context.Context, name, contentType string, size int64, r io.Reader) (lead.Attachment, error)
	Open(ctx context.Context, id string) (io.ReadCloser, lead.Attachment, error)
	Delete(ctx context.Context, id string) error
}

type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(bucket *gridfs.Bucket) *GridFSStore {
	return &GridFSStore{bucket: bucket}
}

// Put streams r into the bucket. Reading more than the declared size or the
// attachment limit aborts the upload with lead.ErrAttachmentTooLarge.
func (s *GridFSStore) Put(ctx context.Context, name, contentType string, size int64, r io.Reader) (lead.Attachment, error) {
	if err := lead.CheckAttachmentSize(size); err != nil {
		return lead.Attachment{}, err
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	stream, err := s.bucket.OpenUploadStream(name, opts)
	if err != nil {
		return lead.Attachment{}, err
	}

	written, err := io.Copy(stream, io.LimitReader(r, lead.MaxAttachmentBytes+1))
	if err == nil && written > lead.MaxAttachmentBytes {
		err = lead.ErrAttachmentTooLarge
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = stream.Abort()
		return lead.Attachment{}, err
	}
	if err := stream.Close(); err != nil {
		return lead.Attachment{}, err
	}

	id, ok := stream.FileID.(primitive.ObjectID)
	if !ok {
		return lead.Attachment{}, errors.New("unexpected gridfs file id")
	}
	return lead.Attachment{
		ID:          id.Hex(),
		Name:        name,
		ContentType: contentType,
		Size:        written,
	}, nil
}

func (s *GridFSStore) Open(ctx context.Context, id string) (io.ReadCloser, lead.Attachment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, lead.Attachment{}, ErrAttachmentNotFound
	}
	stream, err := s.bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, lead.Attachment{}, ErrAttachmentNotFound
		}
		return nil, lead.Attachment{}, err
	}

	file := stream.GetFile()
	att := lead.Attachment{
		ID:   id,
		Name: file.Name,
		Size: file.Length,
	}
	if file.Metadata != nil {
		if ct, ok := file.Metadata.Lookup("contentType").StringValueOK(); ok {
			att.ContentType = ct
		}
	}
	return stream, att, nil
}

func (s *GridFSStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrAttachmentNotFound
	}
	if err := s.bucket.Delete(oid); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}
	return nil
}
