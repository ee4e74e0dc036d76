package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nhle/taskboard/internal/model"
)

// ListBoards performs GET /boards.
func (c *Client) ListBoards(ctx context.Context) ([]model.Board, error) {
	var boards []model.Board
	if err := c.do(ctx, http.MethodGet, "/boards", nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// GetBoard performs GET /boards/{id}.
func (c *Client) GetBoard(ctx context.Context, id string) (*model.Board, error) {
	var board model.Board
	if err := c.do(ctx, http.MethodGet, boardPath(id), nil, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// CreateBoard performs POST /boards with the full board (id, name, lists).
func (c *Client) CreateBoard(ctx context.Context, board model.Board) (*model.Board, error) {
	var created model.Board
	if err := c.do(ctx, http.MethodPost, "/boards", board, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateBoard performs PUT /boards/{id} with a partial board.
func (c *Client) UpdateBoard(ctx context.Context, id string, patch model.BoardPatch) (*model.Board, error) {
	var updated model.Board
	if err := c.do(ctx, http.MethodPut, boardPath(id), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteBoard performs DELETE /boards/{id}.
func (c *Client) DeleteBoard(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, boardPath(id), nil, nil)
}

func boardPath(id string) string {
	return "/boards/" + url.PathEscape(id)
}
