package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/service/dao/criteria"
)

const fsExt = ".json"

// FsStore is a generic afs backed implementation of dao.Service, each record
// is kept as <baseURL>/<schema name>/<id>.json.  IDs are allocated from a
// sequence initialised with the highest ID found on start.
type FsStore[T any] struct {
	fs     afs.Service
	dir    string
	seq    int
	schema Schema[T]
	mu     sync.RWMutex
}

// NewFsStore creates a store under baseURL, the record directory is created when missing.
func NewFsStore[T any](ctx context.Context, fs afs.Service, baseURL string, schema Schema[T]) (*FsStore[T], error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	dir := url.Join(url.Normalize(baseURL, file.Scheme), schema.Name)
	exists, _ := fs.Exists(ctx, dir)
	if !exists {
		if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", schema.Name, err)
		}
	}
	ret := &FsStore[T]{fs: fs, dir: dir, schema: schema}
	if err := ret.initSequence(ctx); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *FsStore[T]) initSequence(ctx context.Context) error {
	objects, err := s.fs.List(ctx, s.dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", s.schema.Name, err)
	}
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), fsExt) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(object.Name(), fsExt))
		if err != nil {
			continue
		}
		if id > s.seq {
			s.seq = id
		}
	}
	return nil
}

// Save persists a record, assigning a new ID when zero.
func (s *FsStore[T]) Save(ctx context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	id := s.schema.Key(v)
	if *id < 0 {
		return fmt.Errorf("%w: %s %d", dao.ErrInvalidID, s.schema.Name, *id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	assigned := false
	if *id == 0 {
		s.seq++
		*id = s.seq
		assigned = true
	} else if *id > s.seq {
		s.seq = *id
	}
	data, err := json.Marshal(v)
	if err == nil {
		err = s.fs.Upload(ctx, s.recordURL(*id), file.DefaultFileOsMode, bytes.NewReader(data))
	}
	if err != nil {
		if assigned {
			*id = 0
		}
		return fmt.Errorf("failed to save %s: %w", s.schema.Name, err)
	}
	return nil
}

// Load retrieves a record or dao.ErrNotFound
func (s *FsStore[T]) Load(ctx context.Context, id int) (*T, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %s %d", dao.ErrInvalidID, s.schema.Name, id)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	URL := s.recordURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check if %s %d exists: %w", s.schema.Name, id, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s %d", dao.ErrNotFound, s.schema.Name, id)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %d: %w", s.schema.Name, id, err)
	}
	ret := new(T)
	if err := json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %d: %w", s.schema.Name, id, err)
	}
	return ret, nil
}

// Delete removes a record file
func (s *FsStore[T]) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	URL := s.recordURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check if %s %d exists: %w", s.schema.Name, id, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s %d", dao.ErrNotFound, s.schema.Name, id)
	}
	if err := s.fs.Delete(ctx, URL); err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", s.schema.Name, id, err)
	}
	return nil
}

// List returns records matching status parameters in schema order
func (s *FsStore[T]) List(ctx context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.schema.Name, err)
	}
	var out []*T
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), fsExt) {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", object.URL(), err)
		}
		record := new(T)
		if err := json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", object.URL(), err)
		}
		if s.schema.Status != nil && !criteria.FilterByStatus(s.schema.Status(record), parameters) {
			continue
		}
		out = append(out, record)
	}
	if s.schema.Less != nil {
		sort.Slice(out, func(i, j int) bool { return s.schema.Less(out[i], out[j]) })
	}
	return out, nil
}

func (s *FsStore[T]) recordURL(id int) string {
	return url.Join(s.dir, strconv.Itoa(id)+fsExt)
}
