package sync

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"

	"github.com/google/uuid"

	harbor_errors "harbor-chat/pkg/errors"
	"harbor-chat/pkg/logger"
)

// BoardItem is one card on an ordered board: a column plus an integer
// sort position within it.
type BoardItem struct {
	ID        uuid.UUID
	Column    string
	SortOrder int
}

// BoardGateway is the remote side of board reordering.
type BoardGateway interface {
	FetchItems(ctx context.Context) ([]BoardItem, error)
	UpdatePosition(ctx context.Context, id uuid.UUID, column string, sortOrder int) error
}

// Board reconciles drag-and-drop reordering the same way the send
// pipeline reconciles messages: apply the move optimistically, push the
// minimal set of row updates sequentially, and on any failure refetch the
// whole list, discarding the optimistic state unconditionally.
type Board struct {
	mu      gosync.Mutex
	items   map[uuid.UUID]BoardItem
	gateway BoardGateway
	log     *logger.Logger
}

func NewBoard(gateway BoardGateway, log *logger.Logger) *Board {
	if log == nil {
		log = logger.NewNop()
	}
	return &Board{
		items:   make(map[uuid.UUID]BoardItem),
		gateway: gateway,
		log:     log,
	}
}

// Refresh replaces the board with the server's state.
func (b *Board) Refresh(ctx context.Context) error {
	items, err := b.gateway.FetchItems(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.items = make(map[uuid.UUID]BoardItem, len(items))
	for _, it := range items {
		b.items[it.ID] = it
	}
	b.mu.Unlock()
	return nil
}

// Column returns a column's items in sort order.
func (b *Board) Column(column string) []BoardItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.columnLocked(column, uuid.Nil)
}

// Move places an item at index within a target column. The new sort order
// comes from comparing against the would-be neighbors; when no integer
// fits between them, the following items shift up by one. Local state
// changes first; the shifted neighbors and the moved item are then
// written remotely one at a time, and any write failure refetches the
// entire board.
func (b *Board) Move(ctx context.Context, id uuid.UUID, toColumn string, toIndex int) error {
	b.mu.Lock()
	item, ok := b.items[id]
	if !ok {
		b.mu.Unlock()
		return harbor_errors.ErrNotFound
	}

	neighbors := b.columnLocked(toColumn, id)
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex > len(neighbors) {
		toIndex = len(neighbors)
	}

	order, shifted := placeAt(neighbors, toIndex)

	item.Column = toColumn
	item.SortOrder = order
	b.items[id] = item
	for _, sh := range shifted {
		b.items[sh.ID] = sh
	}
	b.mu.Unlock()

	updates := append(shifted, item)
	for _, u := range updates {
		if err := b.gateway.UpdatePosition(ctx, u.ID, u.Column, u.SortOrder); err != nil {
			b.log.Warnf("board update %s: %v", u.ID, err)
			if refErr := b.Refresh(ctx); refErr != nil {
				return fmt.Errorf("update position: %w (refetch also failed: %v)", err, refErr)
			}
			return fmt.Errorf("update position: %w", err)
		}
	}
	return nil
}

// placeAt computes the sort order for inserting at index among neighbors
// (already sorted), plus whichever neighbors must shift to open a gap.
func placeAt(neighbors []BoardItem, index int) (int, []BoardItem) {
	var prev, next *BoardItem
	if index > 0 {
		prev = &neighbors[index-1]
	}
	if index < len(neighbors) {
		next = &neighbors[index]
	}

	switch {
	case prev == nil && next == nil:
		return 1, nil
	case prev == nil:
		return next.SortOrder - 1, nil
	case next == nil:
		return prev.SortOrder + 1, nil
	case next.SortOrder-prev.SortOrder > 1:
		return prev.SortOrder + (next.SortOrder-prev.SortOrder)/2, nil
	}

	// No gap: take prev+1 and push the tail up until orders stop
	// colliding.
	order := prev.SortOrder + 1
	var shifted []BoardItem
	last := order
	for i := index; i < len(neighbors); i++ {
		if neighbors[i].SortOrder > last {
			break
		}
		moved := neighbors[i]
		moved.SortOrder = last + 1
		last = moved.SortOrder
		shifted = append(shifted, moved)
	}
	return order, shifted
}

// columnLocked returns a column's items sorted, excluding exclude.
// Caller holds b.mu.
func (b *Board) columnLocked(column string, exclude uuid.UUID) []BoardItem {
	var out []BoardItem
	for _, it := range b.items {
		if it.Column == column && it.ID != exclude {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
