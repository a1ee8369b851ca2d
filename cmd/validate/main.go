// Command validate loads the configured forecast sources and runs integrity
// checks over the resulting dataset: per-record invariants, index
// consistency, and catalog cross-references. It exits non-zero when any
// check fails, so it can gate a data drop before the API serves it.
//
// Usage:
//
//	go run ./cmd/validate -grid data/fatalities002_2025_07_t01_pgm.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/viewsdata/forecast-service/internal/domain"
	"github.com/viewsdata/forecast-service/internal/observability"
	"github.com/viewsdata/forecast-service/internal/store"
	"github.com/viewsdata/forecast-service/internal/synth"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	gridPath := flag.String("grid", "", "grid forecast CSV path")
	countryPath := flag.String("countries", "", "country CSV path")
	hdiPath := flag.String("hdi", "", "HDI interval CSV path")
	coordPath := flag.String("coords", "", "grid coordinate CSV path")
	synthetic := flag.Bool("synthetic", false, "allow synthetic fallback for missing sources")
	flag.Parse()

	if *gridPath == "" && !*synthetic {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*gridPath, *countryPath, *hdiPath, *coordPath, *synthetic); code != 0 {
		os.Exit(code)
	}
}

func run(gridPath, countryPath, hdiPath, coordPath string, synthetic bool) int {
	logger := observability.NewLogger("warn", "text")
	st := store.New(store.Config{
		GridDataPaths:     paths(gridPath),
		CountryDataPaths:  paths(countryPath),
		HDIDataPaths:      paths(hdiPath),
		CoordDataPaths:    paths(coordPath),
		Synth:             synth.DefaultConfig(),
		SyntheticFallback: synthetic,
	}, logger, observability.NewMetricsForTesting())

	fmt.Println("=== Forecast Data Integrity Validation ===")
	fmt.Println()

	if err := st.Load(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load sources: %v\n", err)
		return 1
	}

	view, err := st.View()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	countries, _ := st.Countries()
	info, _ := st.Info()

	phases := []*phase{
		validateRecords(view, info),
		validateIndexes(view, info),
		validateCatalog(view, countries, info),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Dataset: %d cells, %d countries, months %d..%d, %d load warnings\n",
		info.GridCellCount, info.CountryCount, info.MinMonth, info.MaxMonth, info.LoadWarnings)
	if len(info.SyntheticSources) > 0 {
		fmt.Printf("Synthetic sources: %s\n", strings.Join(info.SyntheticSources, ", "))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-i)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func paths(p string) []string {
	if p == "" {
		return nil
	}
	return []string{p}
}

// validateRecords re-checks every stored record against the model invariants.
func validateRecords(view store.View, info domain.Info) *phase {
	p := &phase{name: "Phase 1: Record Invariants"}

	for m := info.MinMonth; m <= info.MaxMonth; m++ {
		for _, rec := range view.RecordsForMonth(m) {
			if err := rec.Validate(); err != nil {
				p.errorf("grid %d month %d: %v", rec.GridID, rec.MonthID, err)
			}
			if rec.MonthID != m {
				p.errorf("grid %d: record filed under month %d has month_id %d", rec.GridID, m, rec.MonthID)
			}
		}
	}
	return p
}

// validateIndexes cross-checks the per-grid and per-month record sets.
func validateIndexes(view store.View, info domain.Info) *phase {
	p := &phase{name: "Phase 2: Index Consistency"}

	minMonth, maxMonth := view.MonthBounds()
	if minMonth != info.MinMonth || maxMonth != info.MaxMonth {
		p.errorf("month bounds: view reports %d..%d, info reports %d..%d",
			minMonth, maxMonth, info.MinMonth, info.MaxMonth)
	}

	// Count records both ways; the totals must agree.
	byMonthTotal := 0
	seen := map[int64]bool{}
	for m := minMonth; m <= maxMonth; m++ {
		recs := view.RecordsForMonth(m)
		byMonthTotal += len(recs)
		for i := range recs {
			seen[recs[i].GridID] = true
			if i > 0 && recs[i].GridID <= recs[i-1].GridID {
				p.errorf("month %d: grid ids not strictly increasing at position %d", m, i)
			}
		}
	}

	byGridTotal := 0
	for gridID := range seen {
		recs := view.RecordsForGrid(gridID)
		byGridTotal += len(recs)
		for i := 1; i < len(recs); i++ {
			if recs[i].MonthID <= recs[i-1].MonthID {
				p.errorf("grid %d: months not strictly increasing at position %d", gridID, i)
			}
		}
	}

	if byMonthTotal != byGridTotal {
		p.errorf("record totals disagree: %d by month, %d by grid", byMonthTotal, byGridTotal)
	}
	if len(seen) != info.GridCellCount {
		p.errorf("grid count: %d cells indexed, info reports %d", len(seen), info.GridCellCount)
	}
	return p
}

// validateCatalog checks the country list against the grid membership index.
func validateCatalog(view store.View, countries []domain.Country, info domain.Info) *phase {
	p := &phase{name: "Phase 3: Catalog Cross-References"}

	if len(countries) != info.CountryCount {
		p.errorf("country count: list has %d, info reports %d", len(countries), info.CountryCount)
	}

	cellTotal := 0
	for _, c := range countries {
		grids := view.GridIDsForCountry(c.CountryID)
		if len(grids) != c.GridCellCount {
			p.errorf("country %d (%s): membership index has %d cells, catalog says %d",
				c.CountryID, c.Name, len(grids), c.GridCellCount)
		}
		cellTotal += len(grids)

		for _, g := range grids {
			if !view.HasGrid(g) {
				p.errorf("country %d: grid %d in membership index but unknown to dataset", c.CountryID, g)
			}
		}
	}

	if cellTotal != info.GridCellCount {
		p.errorf("cell totals disagree: %d across countries, info reports %d", cellTotal, info.GridCellCount)
	}
	return p
}
