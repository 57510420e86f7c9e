package alma

import "context"

// Service bundles the client with a possibly cached item source so that
// callers see one catalog surface.
type Service struct {
	*Client
	items ItemSource
}

// NewService wraps the client. A nil items source means direct lookups.
func NewService(client *Client, items ItemSource) *Service {
	if items == nil {
		items = client
	}
	return &Service{Client: client, items: items}
}

// Item resolves a barcode through the configured item source.
func (s *Service) Item(ctx context.Context, barcode string) (*Item, error) {
	return s.items.Item(ctx, barcode)
}
