package steamnews

import (
	"net/http"

	"github.com/dghubble/sling"
)

// NewsService provides methods for the ISteamNews interface
type NewsService struct {
	sling *sling.Sling
}

func newNewsService(sling *sling.Sling) *NewsService {
	return &NewsService{
		sling: sling.Path("ISteamNews/"),
	}
}

// AppNews is the news listing of a single app
type AppNews struct {
	AppID     int64       `json:"appid"`
	NewsItems []*NewsItem `json:"newsitems"`
	Count     int         `json:"count"`
}

// NewsItem is a single news entry of an app, Date is a unix timestamp
type NewsItem struct {
	GID           string `json:"gid"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	IsExternalURL bool   `json:"is_external_url"`
	Author        string `json:"author"`
	Contents      string `json:"contents"`
	FeedLabel     string `json:"feedlabel"`
	Date          int64  `json:"date"`
	FeedName      string `json:"feedname"`
	FeedType      int    `json:"feed_type"`
	AppID         int64  `json:"appid"`
}

type appNewsWrapper struct {
	AppNews AppNews `json:"appnews"`
}

// NewsForAppParams are the parameters for NewsService.ForApp,
// count is capped to 20 by steam and maxlength truncates the contents server side
type NewsForAppParams struct {
	AppID     int64  `url:"appid,omitempty"`
	Count     int    `url:"count,omitempty"`
	MaxLength int    `url:"maxlength,omitempty"`
	Format    string `url:"format,omitempty"`
}

// ForApp returns the latest news items of an app, newest first
func (s *NewsService) ForApp(params *NewsForAppParams) (*AppNews, *http.Response, error) {
	if params.Format == "" {
		params.Format = "json"
	}

	wrapper := new(appNewsWrapper)

	var resp *http.Response
	err := doWithRetries(func() error {
		wrapper = new(appNewsWrapper)

		var err error
		resp, err = s.sling.New().Get("GetNewsForApp/v0002/").QueryStruct(params).ReceiveSuccess(wrapper)
		return relevantError(err, resp)
	})
	if err != nil {
		return nil, resp, err
	}

	return &wrapper.AppNews, resp, nil
}
