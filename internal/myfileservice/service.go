// Package myfileservice coordinates the record store, the directory index and
// the renderer for the JSON API and the MCP server.
package myfileservice

import (
	"context"
	"errors"
	"time"

	"github.com/starford/myfview/internal/apperr"
	"github.com/starford/myfview/internal/checksum"
	"github.com/starford/myfview/internal/codec"
	"github.com/starford/myfview/internal/index"
	"github.com/starford/myfview/internal/liveconfig"
	"github.com/starford/myfview/internal/models"
	"github.com/starford/myfview/internal/negotiate"
	"github.com/starford/myfview/internal/render"
	"github.com/starford/myfview/internal/storage"
)

// MyfileDetail is the full representation of a myfile, private fields removed.
type MyfileDetail struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name"`
	Ext         string        `json:"ext"`
	Checksum    string        `json:"checksum"`
	Fields      models.Record `json:"fields"`
}

// MyfileListItem is a lightweight item in a list response.
type MyfileListItem struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Ext         string    `json:"ext"`
	Checksum    string    `json:"checksum"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service coordinates storage, index and render operations.
type Service struct {
	store    storage.Provider
	db       index.MyfileIndex
	config   *liveconfig.Store
	renderer *render.Dispatcher
}

// NewService creates a new myfile service.
func NewService(store storage.Provider, db index.MyfileIndex, config *liveconfig.Store, renderer *render.Dispatcher) *Service {
	return &Service{store: store, db: db, config: config, renderer: renderer}
}

// GetMyfile reads a record from storage and removes private fields.
func (s *Service) GetMyfile(_ context.Context, name string) (*MyfileDetail, error) {
	data, ext, err := s.store.Read(name)
	if err != nil {
		return nil, err
	}
	rec, err := codec.Decode(ext, data)
	if err != nil {
		return nil, &apperr.RecordError{Name: name, Err: err}
	}
	rec = render.Redact(rec, s.config.Load().PrivateFields)
	return &MyfileDetail{
		Name:        name,
		DisplayName: rec.Name(),
		Ext:         ext,
		Checksum:    checksum.Sum(data),
		Fields:      rec,
	}, nil
}

// ListMyfiles returns a page of indexed myfiles ordered by name.
func (s *Service) ListMyfiles(_ context.Context, limit, offset int) ([]MyfileListItem, int, error) {
	rows, total, err := s.db.List(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]MyfileListItem, len(rows))
	for i, r := range rows {
		items[i] = MyfileListItem{
			Name:        r.Name,
			DisplayName: r.DisplayName,
			Ext:         r.Ext,
			Checksum:    r.Checksum,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Render renders name in the format named by alias. An empty alias selects
// JSON; an unknown one does too, as for the "type" query parameter.
// A missing record renders as an empty one, reported with found=false.
func (s *Service) Render(_ context.Context, name, alias string) (res render.Result, format negotiate.Format, found bool, err error) {
	format, ok := negotiate.Lookup(alias)
	if !ok {
		format = negotiate.JSON
	}
	rec, err := s.store.Lookup(name)
	switch {
	case err == nil:
		found = true
	case errors.Is(err, apperr.ErrNotFound):
		rec = models.Record{}
	default:
		return render.Result{}, format, false, err
	}
	res, err = s.renderer.Render(format, rec, render.RequestContext{Identifier: name, NoColor: true}, s.config.Load())
	return res, format, found, err
}

// FieldFilter returns the filter the index applies before storing a record:
// private fields of the active configuration are dropped.
func (s *Service) FieldFilter() index.FieldFilter {
	return func(rec models.Record) models.Record {
		return render.Redact(rec, s.config.Load().PrivateFields)
	}
}
