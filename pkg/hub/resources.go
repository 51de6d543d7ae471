package hub

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rednhax/varman/pkg/library"
	"github.com/rednhax/varman/pkg/pkgid"
)

// SearchParams narrows a hub resource search.
type SearchParams struct {
	Query string
	Page  int // 1-based; 0 means first page
}

// SearchPage is one page of search results.
type SearchPage struct {
	Resources  []*library.Resource
	Page       int
	TotalPages int
}

// wire formats

type searchResponse struct {
	Resources  []wireResource `json:"resources"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
}

type wireResource struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	DependencyCount int        `json:"dependency_count"`
	Files           []wireFile `json:"files"`
}

type wireFile struct {
	Filename string `json:"filename"`
	Version  string `json:"version,omitempty"`
}

type detailResponse struct {
	Files        []wireFile       `json:"files"`
	Dependencies []wireDependency `json:"dependencies"`
}

type wireDependency struct {
	Group string     `json:"group"`
	Files []wireFile `json:"files"`
}

// Search queries the hub resource listing.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchPage, error) {
	q := url.Values{}
	if params.Query != "" {
		q.Set("query", params.Query)
	}
	if params.Page > 1 {
		q.Set("page", fmt.Sprint(params.Page))
	}
	path := "/api/resources"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp searchResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	page := &SearchPage{
		Resources:  make([]*library.Resource, 0, len(resp.Resources)),
		Page:       resp.Page,
		TotalPages: resp.TotalPages,
	}
	for _, r := range resp.Resources {
		page.Resources = append(page.Resources, &library.Resource{
			ID:              r.ID,
			Name:            r.Name,
			DependencyCount: r.DependencyCount,
			Files:           toFileRefs(r.Files),
		})
	}
	return page, nil
}

// ResourceDetail fetches a resource's detail record. It implements
// [library.DetailResolver]; the evaluator caches results, so repeated
// evaluations of the same resource hit the hub at most once per process
// (plus whatever the response cache already absorbed).
func (c *Client) ResourceDetail(ctx context.Context, id string) (*library.Detail, error) {
	var resp detailResponse
	if err := c.getJSON(ctx, "/api/resources/"+url.PathEscape(id)+"/detail", &resp); err != nil {
		return nil, err
	}

	detail := &library.Detail{
		Files:   toFileRefs(resp.Files),
		SubDeps: make([]library.SubDependency, 0, len(resp.Dependencies)),
	}
	for _, d := range resp.Dependencies {
		detail.SubDeps = append(detail.SubDeps, library.SubDependency{
			Group: pkgid.GroupKey(d.Group),
			Files: toFileRefs(d.Files),
		})
	}
	return detail, nil
}

func toFileRefs(files []wireFile) []library.FileRef {
	out := make([]library.FileRef, len(files))
	for i, f := range files {
		out[i] = library.FileRef{Filename: f.Filename, HubVersion: f.Version}
	}
	return out
}

// Interface guards: the client feeds the evaluator directly.
var (
	_ library.DetailResolver = (*Client)(nil)
	_ library.RemoteVersions = (*Client)(nil)
)
