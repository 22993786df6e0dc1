package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/taskboard/internal/models"
)

// ErrDisabled is returned by Noop; callers fall back to the database.
var ErrDisabled = errors.New("search index not configured")

type Config struct {
	URL      string
	User     string
	Password string
	Index    string
}

type Document struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	Priority    string `json:"priority"`
	ColumnID    string `json:"columnId"`
	EpicID      string `json:"epicId,omitempty"`
}

func DocumentFor(t *models.Task) Document {
	d := Document{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Assignee:    t.Assignee,
		Priority:    t.Priority,
		ColumnID:    t.ColumnID,
	}
	if t.EpicID != nil {
		d.EpicID = *t.EpicID
	}
	return d
}

type ESIndex struct {
	Client *elasticsearch.Client
	Index  string
}

// NewESIndex connects to Elasticsearch and checks the cluster answers.
func NewESIndex(ctx context.Context, cfg Config) (*ESIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("es: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es: info: %s: %s", res.Status(), body)
	}

	index := cfg.Index
	if index == "" {
		index = "tasks"
	}
	return &ESIndex{Client: client, Index: index}, nil
}

func (x *ESIndex) IndexTask(ctx context.Context, t *models.Task) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(DocumentFor(t)); err != nil {
		return fmt.Errorf("es: encode: %w", err)
	}

	res, err := x.Client.Index(
		x.Index,
		&buf,
		x.Client.Index.WithContext(ctx),
		x.Client.Index.WithDocumentID(t.ID),
	)
	if err != nil {
		return fmt.Errorf("es: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("es: index: %s", res.Status())
	}
	return nil
}

func (x *ESIndex) DeleteTask(ctx context.Context, id string) error {
	res, err := x.Client.Delete(x.Index, id, x.Client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es: delete: %s", res.Status())
	}
	return nil
}

// Search returns the total hit count and the matching task ids in rank order.
func (x *ESIndex) Search(ctx context.Context, query string, from, size int) (int64, []string, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     strings.TrimSpace(query),
				"fields":    []string{"title^2", "description", "assignee"},
				"fuzziness": "AUTO",
			},
		},
		"from":    from,
		"size":    size,
		"_source": false,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es: encode: %w", err)
	}

	res, err := x.Client.Search(
		x.Client.Search.WithContext(ctx),
		x.Client.Search.WithIndex(x.Index),
		x.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("es: search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es: decode: %w", err)
	}

	ids := make([]string, len(r.Hits.Hits))
	for i, h := range r.Hits.Hits {
		ids[i] = h.ID
	}
	return r.Hits.Total.Value, ids, nil
}

type Noop struct{}

func (Noop) IndexTask(context.Context, *models.Task) error { return nil }
func (Noop) DeleteTask(context.Context, string) error       { return nil }
func (Noop) Search(context.Context, string, int, int) (int64, []string, error) {
	return 0, nil, ErrDisabled
}
