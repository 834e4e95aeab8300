package steamnews

import (
	"net/http"
	"strconv"

	"github.com/dghubble/sling"
)

// AppService provides methods for the storefront API, which is not part of
// the official web API but is the only keyless way of resolving app names
type AppService struct {
	sling *sling.Sling
}

func newAppService(sling *sling.Sling) *AppService {
	return &AppService{
		sling: sling,
	}
}

// AppDetails holds the basic storefront info of an app
type AppDetails struct {
	Type             string `json:"type"`
	Name             string `json:"name"`
	SteamAppID       int64  `json:"steam_appid"`
	ShortDescription string `json:"short_description"`
	HeaderImage      string `json:"header_image"`
}

type appDetailsEntry struct {
	Success bool        `json:"success"`
	Data    *AppDetails `json:"data"`
}

type appDetailsParams struct {
	AppIDs  int64  `url:"appids"`
	Filters string `url:"filters,omitempty"`
}

// Details looks up the storefront details of the given app, returning
// ErrAppNotFound if steam doesn't know about it
func (s *AppService) Details(appID int64) (*AppDetails, *http.Response, error) {
	var details *AppDetails
	var resp *http.Response

	err := doWithRetries(func() error {
		wrapper := make(map[string]*appDetailsEntry)

		var err error
		resp, err = s.sling.New().Get("appdetails").QueryStruct(&appDetailsParams{AppIDs: appID, Filters: "basic"}).ReceiveSuccess(&wrapper)
		if err := relevantError(err, resp); err != nil {
			return err
		}

		entry := wrapper[strconv.FormatInt(appID, 10)]
		if entry == nil || !entry.Success || entry.Data == nil {
			return ErrAppNotFound
		}

		details = entry.Data
		return nil
	})
	if err != nil {
		return nil, resp, err
	}

	return details, resp, nil
}
