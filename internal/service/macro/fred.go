package macro

import (
	"context"
	"errors"
	"strconv"

	"MacroPull/internal/domain/models"
	xhttp "MacroPull/pkg/http"
	"MacroPull/pkg/util"
)

var errNoAPIKey = errors.New("no api key configured")

// FredAPI reads observations from the authenticated FRED JSON API.
type FredAPI struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

// NewFredAPI creates the primary macro source. An empty key disables it.
func NewFredAPI(baseURL, apiKey string, client *xhttp.Client) *FredAPI {
	return &FredAPI{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (f *FredAPI) Name() string { return "fred_api" }

// Enabled reports whether an API key is configured.
func (f *FredAPI) Enabled() bool { return f.apiKey != "" }

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

func (f *FredAPI) FetchSeries(ctx context.Context, id string) (models.Series, error) {
	if !f.Enabled() {
		return models.Series{ID: id}, models.Unavailable(f.Name(), "observations", errNoAPIKey)
	}

	var resp fredObservations
	err := f.client.GetJSON(ctx, f.baseURL+"/fred/series/observations", map[string][]string{
		"series_id": {id},
		"api_key":   {f.apiKey},
		"file_type": {"json"},
	}, &resp)
	if err != nil {
		return models.Series{ID: id}, models.Unavailable(f.Name(), "observations "+id, err)
	}

	points := make([]models.MacroPoint, 0, len(resp.Observations))
	for _, o := range resp.Observations {
		p, ok := parseObservation(o.Date, o.Value)
		if ok {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return models.Series{ID: id}, models.Empty(f.Name(), "observations "+id)
	}
	return models.NewSeries(id, points), nil
}

// parseObservation converts a dated FRED value. FRED marks missing values
// with ".".
func parseObservation(date, value string) (models.MacroPoint, bool) {
	if value == "" || value == "." {
		return models.MacroPoint{}, false
	}
	t, ok := util.ParseTime(date)
	if !ok {
		return models.MacroPoint{}, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return models.MacroPoint{}, false
	}
	return models.MacroPoint{Time: util.NaiveUTC(t), Value: v}, true
}
