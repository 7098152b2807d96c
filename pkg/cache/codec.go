package cache

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"MacroPull/pkg/util"
)

// Point is one cached (time, value) observation.
type Point struct {
	Time  time.Time
	Value float64
}

// Codec converts point slices to and from the on-disk table format.
type Codec interface {
	Extension() string
	Encode(points []Point) ([]byte, error)
	Decode(b []byte) ([]Point, error)
}

// NewCodec returns the codec for "csv" or "parquet".
func NewCodec(format string) (Codec, error) {
	switch format {
	case "", "csv":
		return CSVCodec{}, nil
	case "parquet":
		return ParquetCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown cache format %q", format)
	}
}

// CSVCodec writes a "date,value" table.
type CSVCodec struct{}

func (CSVCodec) Extension() string { return ".csv" }

func (CSVCodec) Encode(points []Point) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "value"}); err != nil {
		return nil, err
	}
	for _, p := range points {
		rec := []string{util.FormatDate(p.Time), strconv.FormatFloat(p.Value, 'g', -1, 64)}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (CSVCodec) Decode(b []byte) ([]Point, error) {
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = 2

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrCorrupt)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if header[0] != "date" {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrCorrupt, header)
	}

	var out []Point
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		t, ok := util.ParseTime(rec[0])
		if !ok {
			return nil, fmt.Errorf("%w: bad date %q", ErrCorrupt, rec[0])
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad value %q", ErrCorrupt, rec[1])
		}
		out = append(out, Point{Time: t, Value: v})
	}
	return out, nil
}

type parquetRow struct {
	TimeMs int64   `parquet:"time_ms"`
	Value  float64 `parquet:"value"`
}

// ParquetCodec stores points as a two-column parquet file.
type ParquetCodec struct{}

func (ParquetCodec) Extension() string { return ".parquet" }

func (ParquetCodec) Encode(points []Point) ([]byte, error) {
	rows := make([]parquetRow, len(points))
	for i, p := range points {
		rows[i] = parquetRow{TimeMs: p.Time.UnixMilli(), Value: p.Value}
	}
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		return nil, fmt.Errorf("parquet write: %w", err)
	}
	return buf.Bytes(), nil
}

func (ParquetCodec) Decode(b []byte) ([]Point, error) {
	rows, err := parquet.Read[parquetRow](bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	out := make([]Point, len(rows))
	for i, r := range rows {
		out[i] = Point{Time: util.UnixMilliUTC(r.TimeMs), Value: r.Value}
	}
	return out, nil
}
