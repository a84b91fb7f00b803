// Package chessapi wraps the third-party chess platform APIs (Lichess,
// Chess.com, FIDE) and normalizes their payloads into chess domain models.
package chessapi

import (
	"github.com/go-resty/resty/v2"

	"github.com/chesspulse/chesspulse/httpx"
)

func newClient(baseURL string, opts []httpx.ClientOption) *httpx.Client {
	all := append([]httpx.ClientOption{httpx.WithBaseURL(baseURL)}, opts...)
	return httpx.NewClient(all...)
}

func isNotFound(resp *resty.Response) bool {
	return resp != nil && resp.StatusCode() == 404
}
