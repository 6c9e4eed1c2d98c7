package firestore

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eshaffer321/fintrack-go/internal/transport"
	"github.com/eshaffer321/fintrack-go/internal/types"
	"github.com/pkg/errors"
)

// DefaultBaseURL is the Firestore REST v1 base URL
const DefaultBaseURL = "https://firestore.googleapis.com/v1"

// Client talks to the Firestore REST API of a single project
type Client struct {
	documentsURL string
	transport    *transport.HTTPTransport
	logger       types.Logger
}

// Options for the firestore client
type Options struct {
	ProjectID string
	BaseURL   string
	// Transport must carry a TokenSource; requests are sent with DoAuthenticated
	Transport *transport.HTTPTransport
	Logger    types.Logger
}

// NewClient creates a new firestore client
func NewClient(opts *Options) (*Client, error) {
	if opts == nil || opts.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	if opts.Transport == nil {
		return nil, errors.New("firestore: transport is required")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		documentsURL: strings.TrimRight(baseURL, "/") + "/projects/" + url.PathEscape(opts.ProjectID) + "/databases/(default)/documents",
		transport:    opts.Transport,
		logger:       opts.Logger,
	}, nil
}

// Document is a decoded Firestore document
type Document struct {
	ID         string
	Fields     map[string]interface{}
	CreateTime time.Time
	UpdateTime time.Time
}

// FieldFilter restricts a query to documents whose field compares to Value
type FieldFilter struct {
	Field string
	Op    string
	Value interface{}
}

// Equal builds an EQUAL field filter
func Equal(field string, value interface{}) FieldFilter {
	return FieldFilter{Field: field, Op: "EQUAL", Value: value}
}

// Create adds a document with a server generated id and returns that id
func (c *Client) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	encoded, err := EncodeFields(fields)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode document")
	}

	var resp restDocument
	endpoint := c.documentsURL + "/" + url.PathEscape(collection)
	if err := c.transport.DoAuthenticated(ctx, http.MethodPost, endpoint, map[string]interface{}{"fields": encoded}, &resp); err != nil {
		return "", err
	}

	id := documentID(resp.Name)
	if id == "" {
		return "", errors.New("firestore: create response has no document name")
	}

	if c.logger != nil {
		c.logger.Debug("Document created", "collection", collection, "id", id)
	}

	return id, nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if id == "" {
		return errors.New("firestore: document id is required")
	}

	endpoint := c.documentsURL + "/" + url.PathEscape(collection) + "/" + url.PathEscape(id)
	if err := c.transport.DoAuthenticated(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Debug("Document deleted", "collection", collection, "id", id)
	}

	return nil
}

// Query runs a structured query over one collection. Results are in server order.
func (c *Client) Query(ctx context.Context, collection string, filters ...FieldFilter) ([]Document, error) {
	query := map[string]interface{}{
		"from": []map[string]interface{}{{"collectionId": collection}},
	}

	where, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}
	if where != nil {
		query["where"] = where
	}

	var rows []struct {
		Document *restDocument `json:"document"`
	}
	if err := c.transport.DoAuthenticated(ctx, http.MethodPost, c.documentsURL+":runQuery", map[string]interface{}{"structuredQuery": query}, &rows); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		if row.Document == nil {
			continue
		}
		doc, err := row.Document.decode()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", row.Document.Name)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func buildWhere(filters []FieldFilter) (map[string]interface{}, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	built := make([]map[string]interface{}, 0, len(filters))
	for _, f := range filters {
		value, err := EncodeValue(f.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "filter on %q", f.Field)
		}
		built = append(built, map[string]interface{}{
			"fieldFilter": map[string]interface{}{
				"field": map[string]string{"fieldPath": f.Field},
				"op":    f.Op,
				"value": value,
			},
		})
	}

	if len(built) == 1 {
		return built[0], nil
	}
	return map[string]interface{}{
		"compositeFilter": map[string]interface{}{
			"op":      "AND",
			"filters": built,
		},
	}, nil
}

// restDocument is the wire form of a document
type restDocument struct {
	Name       string                 `json:"name"`
	Fields     map[string]interface{} `json:"fields"`
	CreateTime string                 `json:"createTime"`
	UpdateTime string                 `json:"updateTime"`
}

func (d *restDocument) decode() (Document, error) {
	fields, err := DecodeFields(d.Fields)
	if err != nil {
		return Document{}, err
	}

	doc := Document{ID: documentID(d.Name), Fields: fields}
	doc.CreateTime, _ = time.Parse(time.RFC3339Nano, d.CreateTime)
	doc.UpdateTime, _ = time.Parse(time.RFC3339Nano, d.UpdateTime)
	return doc, nil
}

// documentID returns the last path segment of a document resource name
func documentID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
