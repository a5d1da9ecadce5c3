// Package media builds delivery URLs for images stored on the image CDN.
package media

import (
	"net/url"
	"strings"
)

const cdnHost = "https://res.cloudinary.com"

// Common transformations.
const (
	Thumbnail = "c_fill,w_300,h_300"
	Detail    = "c_limit,w_1200"
	Banner    = "c_fill,w_1200,h_400"
)

// Resolver turns stored image ids into CDN URLs for one cloud.
type Resolver struct {
	cloud string
}

func NewResolver(cloudName string) Resolver {
	return Resolver{cloud: url.PathEscape(strings.TrimSpace(cloudName))}
}

// URL returns the delivery URL of id with an optional transformation.
// Absolute URLs and empty ids are returned unchanged.
func (r Resolver) URL(id, transform string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	id = strings.TrimLeft(id, "/")
	if transform == "" {
		return cdnHost + "/" + r.cloud + "/image/upload/" + id
	}
	return cdnHost + "/" + r.cloud + "/image/upload/" + transform + "/" + id
}

// URLs resolves every id.
func (r Resolver) URLs(ids []string, transform string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = r.URL(id, transform)
	}
	return out
}
