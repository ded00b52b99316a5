package cli

import (
	"database/sql"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/jinhakim/roadpulse/pkg/data"
	"github.com/jinhakim/roadpulse/pkg/metrics"
	"github.com/jinhakim/roadpulse/pkg/render"
	"github.com/jinhakim/roadpulse/pkg/scoring"
)

// homeView is the template model for the dashboard page.
type homeView struct {
	Version   string
	Err       string
	Imported  string
	HasData   bool
	Dataset   *data.Dataset
	View      *render.ViewModel
	Selection string
}

func homeViewHandler(tmpl *template.Template, db *sql.DB, cfg scoring.Config, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := &homeView{
			Version:   version,
			Err:       r.URL.Query().Get("err"),
			Imported:  r.URL.Query().Get("imported"),
			Selection: r.URL.Query().Get("region"),
		}

		ds, records, err := data.GetCurrentRecords(db)
		switch {
		case errors.Is(err, data.ErrNoDataset):
			// first run, render the empty state
		case err != nil:
			slog.Error("failed to load current dataset", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		default:
			start := time.Now()
			vm, renderErr := render.State(cfg, records, d.Selection)
			if renderErr != nil {
				slog.Error("failed to render dashboard", "error", renderErr)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			m.RenderDuration.Observe(time.Since(start).Seconds())
			m.CurrentRegions.Set(float64(vm.RowCount))

			d.HasData = true
			d.Dataset = ds
			d.View = vm
		}

		if err := tmpl.ExecuteTemplate(w, "home", d); err != nil {
			slog.Error("template render failed", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

func faviconHandler(w http.ResponseWriter, r *http.Request) {
	file, err := embedFS.ReadFile("assets/img/favicon.svg")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err = w.Write(file); err != nil {
		slog.Error("failed to write favicon", "error", err)
	}
}
