package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/steer/model/review"
	"github.com/viant/steer/service/dao"
	"github.com/viant/steer/service/dao/criteria"
)

// Service implements a filesystem-backed review record store.  Each record is
// kept as a single JSON snapshot so that a restarted host can resume serving
// reviews in flight.  Any afs-supported scheme works (file, mem, s3, gs, …).
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

var _ dao.Service[string, review.Record] = (*Service)(nil)

// Save persists a review record snapshot.
func (s *Service) Save(ctx context.Context, record *review.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.TaskID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal review record: %w", err)
	}
	location := s.recordURL(record.TaskID)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save review record to %s: %w", location, err)
	}
	return nil
}

// Load retrieves a review record; it returns (nil, nil) when absent so that
// the state store can apply its own not-found semantics.
func (s *Service) Load(ctx context.Context, taskID string) (*review.Record, error) {
	if taskID == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	location := s.recordURL(taskID)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check review record %s: %w", location, err)
	}
	if !exists {
		return nil, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read review record %s: %w", location, err)
	}
	record := &review.Record{}
	if err = json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal review record %s: %w", location, err)
	}
	return record, nil
}

// Delete removes a review record snapshot; deleting an absent record is a
// no-op so that archival stays idempotent.
func (s *Service) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	location := s.recordURL(taskID)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check review record %s: %w", location, err)
	}
	if !exists {
		return nil
	}
	if err = s.fs.Delete(ctx, location); err != nil {
		return fmt.Errorf("failed to delete review record %s: %w", location, err)
	}
	return nil
}

// List returns all stored review records, optionally narrowed by a "Status"
// parameter.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*review.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exists, err := s.fs.Exists(ctx, s.baseURL)
	if err != nil || !exists {
		return nil, err
	}
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list review records: %w", err)
	}
	var out []*review.Record
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.DownloadWithURL(ctx, object.URL())
		if err != nil {
			return nil, fmt.Errorf("failed to read review record %s: %w", object.URL(), err)
		}
		record := &review.Record{}
		if err = json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review record %s: %w", object.URL(), err)
		}
		if !criteria.FilterByStatus(string(record.Status), parameters) {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *Service) recordURL(taskID string) string {
	return path.Join(s.baseURL, taskID+".json")
}

// New creates a filesystem-backed review record DAO rooted at baseURL.
func New(fs afs.Service, baseURL string) *Service {
	if fs == nil {
		fs = afs.New()
	}
	return &Service{fs: fs, baseURL: baseURL}
}
