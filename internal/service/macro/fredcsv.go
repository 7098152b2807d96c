package macro

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"MacroPull/internal/domain/models"
	xhttp "MacroPull/pkg/http"
)

// FredCSV reads the public fredgraph CSV export. It needs no key and is
// used as the fallback source.
type FredCSV struct {
	url    string
	client *xhttp.Client
}

// NewFredCSV creates the fallback macro source.
func NewFredCSV(url string, client *xhttp.Client) *FredCSV {
	return &FredCSV{url: url, client: client}
}

func (f *FredCSV) Name() string { return "fred_csv" }

func (f *FredCSV) FetchSeries(ctx context.Context, id string) (models.Series, error) {
	body, err := f.client.GetBytes(ctx, f.url, map[string][]string{"id": {id}})
	if err != nil {
		return models.Series{ID: id}, models.Unavailable(f.Name(), "download "+id, err)
	}
	points, err := parseFredCSV(body)
	if err != nil {
		return models.Series{ID: id}, models.Unavailable(f.Name(), "parse "+id, err)
	}
	if len(points) == 0 {
		return models.Series{ID: id}, models.Empty(f.Name(), "download "+id)
	}
	return models.NewSeries(id, points), nil
}

// parseFredCSV reads "<date column>,<series id>" rows. The header names vary
// between DATE and observation_date, so only the column count is checked.
func parseFredCSV(body []byte) ([]models.MacroPoint, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var points []models.MacroPoint
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) < 2 {
			continue
		}
		if p, ok := parseObservation(rec[0], rec[1]); ok {
			points = append(points, p)
		}
	}
	return points, nil
}
