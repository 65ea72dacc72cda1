package engine

import (
	"context"
	"fmt"

	"lumia-router/internal/catalog"
)

// ResolveRequest turns a wire request into a search input: each user becomes
// their starting inventory and the area universe is the catalog's.
func (s *Searcher) ResolveRequest(req Request) (SearchRequest, error) {
	if req.RequiredItemCounts == nil {
		return SearchRequest{}, fmt.Errorf("%w: requiredItemCounts is required", ErrMalformedRequest)
	}
	roster := make([]catalog.ItemCounts, 0, len(req.Users))
	for i, u := range req.Users {
		inv, err := s.Catalog.StartItemCounts(u.CharacterCode, u.StartWeaponType)
		if err != nil {
			return SearchRequest{}, fmt.Errorf("%w: user %d: %v", ErrMalformedRequest, i, err)
		}
		roster = append(roster, inv)
	}
	return SearchRequest{
		Required: req.RequiredItemCounts,
		Roster:   roster,
		Areas:    s.Catalog.AreaCodes(),
	}, nil
}

// Start runs one search on its own goroutine and returns its response stream.
// The channel carries START, PROGRESS... and FINISH, or a single ERROR for a
// rejected request, and is closed afterwards. Cancelling ctx abandons the
// search at its next progress boundary and closes the channel without FINISH.
func (s *Searcher) Start(ctx context.Context, req Request) <-chan Message {
	out := make(chan Message, 16)
	go func() {
		defer close(out)
		send := func(m Message) {
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- m:
			case <-ctx.Done():
			}
		}

		sreq, err := s.ResolveRequest(req)
		if err != nil {
			send(Message{Type: MessageError, Err: err})
			return
		}
		if _, err := s.Search(ctx, sreq, send); err != nil && ctx.Err() == nil {
			send(Message{Type: MessageError, Err: err})
		}
	}()
	return out
}
