package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jinhakim/roadpulse/pkg/data"
	"github.com/jinhakim/roadpulse/pkg/ingest"
	"github.com/jinhakim/roadpulse/pkg/metrics"
	"github.com/jinhakim/roadpulse/pkg/render"
	"github.com/jinhakim/roadpulse/pkg/scoring"
)

const (
	uploadFileField = "file"
	uploadNameField = "name"
	uploadMaxBytes  = 10 << 20

	regionOptionLimit = 100
)

// SeriesData pairs chart labels with their values for the dashboard JS.
type SeriesData[T any] struct {
	Labels []string `json:"labels" yaml:"labels"`
	Data   []T      `json:"data" yaml:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// currentRecords loads the current snapshot for an API handler, writing the
// error response itself when nothing is loaded or the read fails.
func currentRecords(w http.ResponseWriter, db *sql.DB) ([]scoring.RegionRecord, bool) {
	_, records, err := data.GetCurrentRecords(db)
	if err != nil {
		if errors.Is(err, data.ErrNoDataset) {
			writeError(w, http.StatusNotFound, "no dataset loaded")
			return nil, false
		}
		slog.Error("failed to load current dataset", "error", err)
		writeError(w, http.StatusInternalServerError, "error loading dataset")
		return nil, false
	}
	return records, true
}

func scoresAPIHandler(db *sql.DB, cfg scoring.Config, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, ok := currentRecords(w, db)
		if !ok {
			return
		}

		start := time.Now()
		vm, err := render.State(cfg, records, "")
		if err != nil {
			slog.Error("failed to compute scores", "error", err)
			writeError(w, http.StatusInternalServerError, "error computing scores")
			return
		}
		m.RenderDuration.Observe(time.Since(start).Seconds())

		writeJSON(w, http.StatusOK, vm.Rows)
	}
}

func chartAPIHandler(db *sql.DB, cfg scoring.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("m")
		if !data.Contains(render.ChartKeys, key) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown chart: %q", key))
			return
		}

		records, ok := currentRecords(w, db)
		if !ok {
			return
		}

		vm, err := render.State(cfg, records, "")
		if err != nil {
			slog.Error("failed to compute chart series", "error", err)
			writeError(w, http.StatusInternalServerError, "error computing chart series")
			return
		}

		for _, s := range vm.Charts {
			if s.Key == key {
				writeJSON(w, http.StatusOK, &SeriesData[float64]{Labels: s.Labels, Data: s.Values})
				return
			}
		}
		writeError(w, http.StatusInternalServerError, "chart series not computed")
	}
}

func compareAPIHandler(db *sql.DB, cfg scoring.Config, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		region := r.URL.Query().Get("region")
		if region == "" {
			writeError(w, http.StatusBadRequest, "region parameter required")
			return
		}

		records, ok := currentRecords(w, db)
		if !ok {
			return
		}

		view, err := render.Compare(cfg, records, region)
		if err != nil {
			if errors.Is(err, scoring.ErrRegionNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("region not found: %s", region))
				return
			}
			slog.Error("failed to compare region", "region", region, "error", err)
			writeError(w, http.StatusInternalServerError, "error comparing region")
			return
		}

		m.Comparisons.Inc()
		writeJSON(w, http.StatusOK, view)
	}
}

func regionsAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := data.GetCurrentDataset(db)
		if err != nil {
			if errors.Is(err, data.ErrNoDataset) {
				writeJSON(w, http.StatusOK, []*data.ListItem{})
				return
			}
			slog.Error("failed to load current dataset", "error", err)
			writeError(w, http.StatusInternalServerError, "error loading dataset")
			return
		}

		q := r.URL.Query().Get("q")

		var items []*data.ListItem
		if q == "" {
			items, err = data.GetRegionOptions(db, ds.ID)
		} else {
			items, err = data.GetRegionLike(db, ds.ID, q, regionOptionLimit)
		}
		if err != nil {
			slog.Error("failed to get region options", "error", err)
			writeError(w, http.StatusInternalServerError, "error querying regions")
			return
		}

		writeJSON(w, http.StatusOK, items)
	}
}

func stateAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := data.GetDataState(db)
		if err != nil {
			slog.Error("failed to get data state", "error", err)
			writeError(w, http.StatusInternalServerError, "error querying data state")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func uploadHandler(db *sql.DB, cfg scoring.Config, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, uploadMaxBytes)

		file, header, err := r.FormFile(uploadFileField)
		if err != nil {
			m.ImportErrors.Inc()
			redirectError(w, r, "CSV 파일을 선택하세요")
			return
		}
		defer file.Close()

		records, _, err := ingest.Parse(file, ingest.Options{Columns: cfg.Columns})
		if err != nil {
			m.ImportErrors.Inc()
			slog.Error("failed to parse upload", "file", header.Filename, "error", err)
			redirectError(w, r, err.Error())
			return
		}

		name := r.FormValue(uploadNameField)
		if name == "" {
			name = defaultDatasetName(header.Filename)
		}

		ds, err := data.SaveDataset(db, name, header.Filename, records)
		if err != nil {
			m.ImportErrors.Inc()
			slog.Error("failed to save dataset", "name", name, "error", err)
			redirectError(w, r, "데이터 저장에 실패했습니다")
			return
		}

		m.DatasetsImported.Inc()
		m.RegionsImported.Add(float64(ds.Regions))
		m.CurrentRegions.Set(float64(ds.Regions))
		slog.Info("dataset uploaded", "id", ds.ID, "name", ds.Name, "regions", ds.Regions)

		http.Redirect(w, r, fmt.Sprintf("/?imported=%d", ds.Regions), http.StatusSeeOther)
	}
}

func redirectError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/?err="+url.QueryEscape(msg), http.StatusSeeOther)
}
