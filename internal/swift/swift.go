// Package swift wraps the Swift object storage calls used by the CLI.
package swift

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/objectstorage/v1/containers"
	"github.com/gophercloud/gophercloud/v2/openstack/objectstorage/v1/objects"
	"github.com/gophercloud/gophercloud/v2/pagination"
	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("not found")

type Container struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Bytes int64  `json:"bytes"`
}

type Object struct {
	Name         string `json:"name"`
	Hash         string `json:"hash"`
	Bytes        int64  `json:"bytes"`
	ContentType  string `json:"content_type"`
	LastModified string `json:"last_modified,omitempty"`
}

// Client talks to one Swift account.
type Client struct {
	sc *gophercloud.ServiceClient
}

// New returns a client for the object-store service client sc.
func New(sc *gophercloud.ServiceClient) *Client {
	return &Client{sc: sc}
}

func notFound(err error, what string) error {
	if gophercloud.ResponseCodeIs(err, http.StatusNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func (c *Client) ListContainers(ctx context.Context) ([]Container, error) {
	out := []Container{}
	err := containers.List(c.sc, nil).EachPage(ctx, func(_ context.Context, page pagination.Page) (bool, error) {
		infos, err := containers.ExtractInfo(page)
		if err != nil {
			return false, err
		}
		for _, ct := range infos {
			out = append(out, Container{Name: ct.Name, Count: ct.Count, Bytes: ct.Bytes})
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListObjects(ctx context.Context, container string) ([]Object, error) {
	out := []Object{}
	err := objects.List(c.sc, container, nil).EachPage(ctx, func(_ context.Context, page pagination.Page) (bool, error) {
		infos, err := objects.ExtractInfo(page)
		if err != nil {
			return false, err
		}
		for _, o := range infos {
			obj := Object{Name: o.Name, Hash: o.Hash, Bytes: o.Bytes, ContentType: o.ContentType}
			if !o.LastModified.IsZero() {
				obj.LastModified = o.LastModified.UTC().Format(time.RFC3339)
			}
			out = append(out, obj)
		}
		return true, nil
	})
	if err != nil {
		return nil, notFound(err, container)
	}
	return out, nil
}

func (c *Client) CreateContainer(ctx context.Context, container string) error {
	return containers.Create(ctx, c.sc, container, nil).Err
}

// EnsureContainer creates container unless it already exists and reports
// whether it was created.
func (c *Client) EnsureContainer(ctx context.Context, container string) (bool, error) {
	existing, err := c.ListContainers(ctx)
	if err != nil {
		return false, err
	}
	for _, ct := range existing {
		if ct.Name == container {
			return false, nil
		}
	}
	return true, c.CreateContainer(ctx, container)
}

// PutObject uploads body as a JSON object.
func (c *Client) PutObject(ctx context.Context, container, name string, body []byte) error {
	err := objects.Create(ctx, c.sc, container, name, objects.CreateOpts{
		Content:     bytes.NewReader(body),
		ContentType: "application/json",
	}).Err
	return notFound(err, container)
}

func (c *Client) GetObject(ctx context.Context, container, name string) ([]byte, error) {
	res := objects.Download(ctx, c.sc, container, name, nil)
	body, err := res.ExtractContent()
	if err != nil {
		return nil, notFound(err, container+"/"+name)
	}
	return body, nil
}

func (c *Client) DeleteObject(ctx context.Context, container, name string) error {
	return notFound(objects.Delete(ctx, c.sc, container, name, nil).Err, container+"/"+name)
}

// DeleteContainer removes an empty container.
func (c *Client) DeleteContainer(ctx context.Context, container string) error {
	return notFound(containers.Delete(ctx, c.sc, container).Err, container)
}

// ContentJSON turns content into a JSON object body. An existing file is
// read as YAML; anything else is taken as inline JSON where single quotes
// stand for double quotes.
func ContentJSON(content string) ([]byte, error) {
	if info, err := os.Stat(content); err == nil && !info.IsDir() {
		data, err := os.ReadFile(content)
		if err != nil {
			return nil, err
		}
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", content, err)
		}
		return json.Marshal(doc)
	}

	inline := []byte(strings.ReplaceAll(content, "'", `"`))
	if !json.Valid(inline) {
		return nil, fmt.Errorf("content is neither a file nor valid JSON")
	}
	return inline, nil
}
