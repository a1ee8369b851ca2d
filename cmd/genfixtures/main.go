// Command genfixtures writes a full set of CSV input fixtures using the
// synthetic generator, in the column layout the store's loaders parse. The
// output doubles as local development data and as test fixtures, so the
// loaded dataset matches what the generator would produce in-process.
//
// Usage:
//
//	go run ./cmd/genfixtures -out data/fixtures -seed 42
package main

import (
	"compress/gzip"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/viewsdata/forecast-service/internal/domain"
	"github.com/viewsdata/forecast-service/internal/synth"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data/fixtures", "output directory for CSV fixtures")
	seed := flag.Int64("seed", 42, "generator seed")
	gridCount := flag.Int("grid-count", 100, "number of grid cells")
	firstGridID := flag.Int64("first-grid-id", 62356, "lowest grid cell id")
	startMonth := flag.Int("start-month", 548, "first forecast month id")
	endMonth := flag.Int("end-month", 583, "last forecast month id")
	gzipHDI := flag.Bool("gzip", true, "gzip the hdi and coords files")
	flag.Parse()

	gen := synth.New(synth.Config{
		Seed:        *seed,
		GridCount:   *gridCount,
		FirstGridID: *firstGridID,
		StartMonth:  domain.MonthID(*startMonth),
		EndMonth:    domain.MonthID(*endMonth),
	})

	cells, countries := gen.Catalog()
	records := gen.Records(cells)
	log.Printf("generated %d cells, %d countries, %d records", len(cells), len(countries), len(records))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	files := []struct {
		name  string
		gzip  bool
		write func(w *csv.Writer) error
	}{
		{"grid_forecasts.csv", false, func(w *csv.Writer) error { return writeGrid(w, records) }},
		{"countries.csv", false, func(w *csv.Writer) error { return writeCountries(w, countries) }},
		{"hdi_intervals.csv", *gzipHDI, func(w *csv.Writer) error { return writeHDI(w, records) }},
		{"grid_coords.csv", *gzipHDI, func(w *csv.Writer) error { return writeCoords(w, cells) }},
	}

	for _, f := range files {
		path := filepath.Join(*outDir, f.name)
		if f.gzip {
			path += ".gz"
		}
		if err := writeCSV(path, f.gzip, f.write); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("wrote %s", path)
	}
	return nil
}

func writeCSV(path string, compress bool, fill func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var out io.Writer = f
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(f)
		out = gz
	}

	w := csv.NewWriter(out)
	if err := fill(w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return err
		}
	}
	return f.Close()
}

func writeGrid(w *csv.Writer, records []domain.ForecastRecord) error {
	if err := w.Write([]string{"pg_id", "month_id", "country_id", "main_mean", "main_dich"}); err != nil {
		return err
	}
	for i := range records {
		r := &records[i]
		row := []string{
			strconv.FormatInt(r.GridID, 10),
			strconv.FormatInt(int64(r.MonthID), 10),
			strconv.FormatInt(r.CountryID, 10),
			fmtFloat(r.MapValue),
			fmtFloat(r.BinaryExceedance),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeCountries(w *csv.Writer, countries []domain.Country) error {
	if err := w.Write([]string{"country_id", "country", "isoab", "gwcode"}); err != nil {
		return err
	}
	for _, c := range countries {
		row := []string{
			strconv.FormatInt(c.CountryID, 10),
			c.Name,
			c.ISOCode,
			strconv.Itoa(c.GWCode),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeHDI(w *csv.Writer, records []domain.ForecastRecord) error {
	header := []string{
		"priogrid_id", "month_id",
		"hdi_50_low", "hdi_50_high",
		"hdi_90_low", "hdi_90_high",
		"hdi_99_low", "hdi_99_high",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i := range records {
		r := &records[i]
		row := []string{
			strconv.FormatInt(r.GridID, 10),
			strconv.FormatInt(int64(r.MonthID), 10),
			fmtFloat(r.HDI50Low), fmtFloat(r.HDI50High),
			fmtFloat(r.HDI90Low), fmtFloat(r.HDI90High),
			fmtFloat(r.HDI99Low), fmtFloat(r.HDI99High),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeCoords(w *csv.Writer, cells []domain.GridCell) error {
	if err := w.Write([]string{"priogrid_id", "latitude", "longitude", "country_id"}); err != nil {
		return err
	}
	for _, c := range cells {
		row := []string{
			strconv.FormatInt(c.GridID, 10),
			formatCoord(c.Latitude),
			formatCoord(c.Longitude),
			strconv.FormatInt(c.CountryID, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
