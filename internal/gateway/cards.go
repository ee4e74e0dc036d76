package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nhle/taskboard/internal/model"
)

// ListCards performs GET /boards/{id}/cards. With includeArchived the
// server returns the whole collection, archived cards included.
func (c *Client) ListCards(ctx context.Context, boardID string, includeArchived bool) ([]model.Card, error) {
	path := cardsPath(boardID)
	if includeArchived {
		path += "?archived=true"
	}

	var cards []model.Card
	if err := c.do(ctx, http.MethodGet, path, nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCard performs GET /boards/{id}/cards/{cardId}.
func (c *Client) GetCard(ctx context.Context, boardID, cardID string) (*model.Card, error) {
	var card model.Card
	if err := c.do(ctx, http.MethodGet, cardPath(boardID, cardID), nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// CreateCard performs POST /boards/{id}/cards.
func (c *Client) CreateCard(ctx context.Context, boardID string, patch model.CardPatch) (*model.Card, error) {
	var created model.Card
	if err := c.do(ctx, http.MethodPost, cardsPath(boardID), patch, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCard performs PUT /boards/{id}/cards/{cardId} with a partial card.
func (c *Client) UpdateCard(ctx context.Context, boardID, cardID string, patch model.CardPatch) (*model.Card, error) {
	var updated model.Card
	if err := c.do(ctx, http.MethodPut, cardPath(boardID, cardID), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCard performs DELETE /boards/{id}/cards/{cardId}.
func (c *Client) DeleteCard(ctx context.Context, boardID, cardID string) error {
	return c.do(ctx, http.MethodDelete, cardPath(boardID, cardID), nil, nil)
}

// MoveCard performs PATCH /boards/{id}/cards/{cardId}/move.
func (c *Client) MoveCard(ctx context.Context, boardID, cardID string, req model.MoveRequest) (*model.Card, error) {
	var moved model.Card
	path := cardPath(boardID, cardID) + "/move"
	if err := c.do(ctx, http.MethodPatch, path, req, &moved); err != nil {
		return nil, err
	}
	return &moved, nil
}

// ArchiveCard performs PATCH /boards/{id}/cards/{cardId}/archive.
func (c *Client) ArchiveCard(ctx context.Context, boardID, cardID string, archived bool) (*model.Card, error) {
	var card model.Card
	path := cardPath(boardID, cardID) + "/archive"
	if err := c.do(ctx, http.MethodPatch, path, model.ArchiveRequest{Archived: archived}, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func cardsPath(boardID string) string {
	return boardPath(boardID) + "/cards"
}

func cardPath(boardID, cardID string) string {
	return cardsPath(boardID) + "/" + url.PathEscape(cardID)
}
