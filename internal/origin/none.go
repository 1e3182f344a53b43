package origin

import (
	"context"

	"github.com/any-hub/edgesim/internal/edge"
)

type noneClient struct{}

func (noneClient) Kind() Kind { return KindNone }

func (noneClient) Fetch(context.Context, edge.Event) (edge.Response, error) {
	return edge.Response{}, edge.ErrNotFound
}

func (noneClient) sealed() {}
