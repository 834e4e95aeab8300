// Package steamnews provides a client for the Steam web API news endpoints
// and the storefront app details endpoint.
package steamnews

import (
	"net/http"

	"github.com/dghubble/sling"
)

const (
	apiBase   = "https://api.steampowered.com/"
	storeBase = "https://store.steampowered.com/api/"
)

// Client is a Steam web API client, none of the endpoints used require an API key
type Client struct {
	News *NewsService
	Apps *AppService
}

// NewClient returns a new Client, if httpClient is nil then http.DefaultClient is used
func NewClient(httpClient *http.Client) *Client {
	return &Client{
		News: newNewsService(sling.New().Client(httpClient).Base(apiBase)),
		Apps: newAppService(sling.New().Client(httpClient).Base(storeBase)),
	}
}
