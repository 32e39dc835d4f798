package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/framepipe/video-processing-service/internal/domain/entity"
	"github.com/framepipe/video-processing-service/internal/domain/port"
	"github.com/google/uuid"
)

type fakeVideoRepo struct {
	mu                sync.Mutex
	videos            map[uuid.UUID]*entity.Video
	saveErr           error
	updateStatusErr   error
	updateStatusCalls []statusUpdate
}

type statusUpdate struct {
	id     uuid.UUID
	status entity.VideoStatus
	errMsg string
}

func newFakeVideoRepo(videos ...*entity.Video) *fakeVideoRepo {
	repo := &fakeVideoRepo{videos: map[uuid.UUID]*entity.Video{}}
	for _, v := range videos {
		repo.put(v)
	}
	return repo
}

func (r *fakeVideoRepo) put(v *entity.Video) {
	clone := *v
	r.videos[v.ID] = &clone
}

func (r *fakeVideoRepo) Save(_ context.Context, video *entity.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.put(video)
	return nil
}

func (r *fakeVideoRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %s: %w", id, entity.ErrVideoNotFound)
	}
	clone := *v
	return &clone, nil
}

func (r *fakeVideoRepo) FindAllByUserID(_ context.Context, userID string) ([]*entity.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Video
	for _, v := range r.videos {
		if v.UserID == userID {
			clone := *v
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeVideoRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.VideoStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateStatusCalls = append(r.updateStatusCalls, statusUpdate{id: id, status: status, errMsg: errMsg})
	if r.updateStatusErr != nil {
		return r.updateStatusErr
	}
	v, ok := r.videos[id]
	if !ok {
		return entity.ErrVideoNotFound
	}
	v.Status = status
	v.ErrorMessage = errMsg
	return nil
}

func (r *fakeVideoRepo) stored(id uuid.UUID) *entity.Video {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.videos[id]
}

type fakeQueue struct {
	mu         sync.Mutex
	enqueued   [][]byte
	enqueueErr error
}

func (q *fakeQueue) Enqueue(_ context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued = append(q.enqueued, payload)
	return nil
}

func (q *fakeQueue) Receive(context.Context, time.Duration, time.Duration) (*port.Message, error) {
	return nil, nil
}

func (q *fakeQueue) Ack(context.Context, string) error                { return nil }
func (q *fakeQueue) DeadLetter(context.Context, []byte, string) error { return nil }

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	baseURL string

	existsErr error
	saveErr   error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}, baseURL: "http://storage.local"}
}

func (s *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (s *fakeStorage) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStorage) PresignedUploadURL(_ context.Context, key, _, _ string) (string, error) {
	return s.baseURL + "/" + key + "?presigned=1", nil
}

func (s *fakeStorage) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

func (s *fakeStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}

// fakeExtractor writes the configured frame filenames as real files so the
// pipeline's directory listing and uploads run against actual content.
type fakeExtractor struct {
	frames []string
	err    error
	calls  int
}

func (e *fakeExtractor) ExtractFrames(_ context.Context, _, outputDir string) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	for _, name := range e.frames {
		if err := os.WriteFile(filepath.Join(outputDir, name), []byte("jpeg:"+name), 0o644); err != nil {
			return "", err
		}
	}
	return outputDir, nil
}

type fakeArchiver struct {
	err error
}

func (a *fakeArchiver) CreateArchive(_ context.Context, _, destBaseName string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	path := destBaseName + ".zip"
	if err := os.WriteFile(path, []byte("zip-bytes"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeStatusPublisher struct {
	mu        sync.Mutex
	published [][]byte
}

func (p *fakeStatusPublisher) PublishStatus(_ context.Context, msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, msg)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, videoID, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, videoID)
	return nil
}
