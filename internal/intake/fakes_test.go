package intake

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"contractor-backend/internal/lead"

	"go.mongodb.org/mongo-driver/mongo"
)

type fakeRepo struct {
	mu    sync.Mutex
	leads []Lead
	err   error
}

func (f *fakeRepo) Create(ctx context.Context, l Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.leads = append(f.leads, l)
	return nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Lead, 0)
	for _, l := range f.leads {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.ProjectType != "" && l.ProjectType != filter.ProjectType {
			continue
		}
		out = append(out, l)
	}
	if offset >= int64(len(out)) {
		return []Lead{}, nil
	}
	out = out[offset:]
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) Count(ctx context.Context, filter ListFilter) (int64, error) {
	items, err := f.List(ctx, filter, 1<<30, 0)
	return int64(len(items)), err
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return Lead{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id string, status string, now time.Time) (Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.leads {
		if f.leads[i].ID == id {
			f.leads[i].Status = status
			f.leads[i].UpdatedAt = now
			return f.leads[i], nil
		}
	}
	return Lead{}, mongo.ErrNoDocuments
}

type memoryStore struct {
	mu    sync.Mutex
	files map[string][]byte
	meta  map[string]lead.Attachment
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: map[string][]byte{}, meta: map[string]lead.Attachment{}}
}

func (m *memoryStore) Put(ctx context.Context, name, contentType string, size int64, r io.Reader) (lead.Attachment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return lead.Attachment{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	att := lead.Attachment{ID: name, Name: name, ContentType: contentType, Size: int64(len(data))}
	m.files[att.ID] = data
	m.meta[att.ID] = att
	return att, nil
}

func (m *memoryStore) Open(ctx context.Context, id string) (io.ReadCloser, lead.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[id]
	if !ok {
		return nil, lead.Attachment{}, ErrAttachmentNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), m.meta[id], nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return ErrAttachmentNotFound
	}
	delete(m.files, id)
	delete(m.meta, id)
	return nil
}

type recordingNotifier struct {
	notified  chan Lead
	confirmed chan Lead
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{notified: make(chan Lead, 4), confirmed: make(chan Lead, 4)}
}

func (n *recordingNotifier) SendLeadNotification(ctx context.Context, l Lead) (string, error) {
	n.notified <- l
	return "msg-1", nil
}

func (n *recordingNotifier) SendLeadConfirmation(ctx context.Context, l Lead) (string, error) {
	n.confirmed <- l
	return "msg-2", nil
}
