package diagdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts tailsql and the stats history views under /debug/.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://cloudbridge.db", db.DB, &tailsql.DBOptions{
		Label: "Cloud bridge diagnostics",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.HandleFunc("pointcloud-history", "recent pipeline snapshots (JSON)", db.handleHistory)
	debug.HandleFunc("pointcloud-history-chart", "pipeline counters over time", db.handleHistoryChart)
}

func parseLimit(r *http.Request) int {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 10000 {
			limit = n
		}
	}
	return limit
}

func (db *DB) handleHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := db.RecentStats(r.Context(), parseLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []Snapshot{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

func (db *DB) handleHistoryChart(w http.ResponseWriter, r *http.Request) {
	rows, err := db.RecentStats(r.Context(), parseLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Oldest first on the x axis.
	n := len(rows)
	xs := make([]string, n)
	published := make([]opts.LineData, n)
	dropped := make([]opts.LineData, n)
	rejected := make([]opts.LineData, n)
	for i, s := range rows {
		j := n - 1 - i
		xs[j] = s.RecordedAt.Format("15:04:05")
		published[j] = opts.LineData{Value: s.Published}
		dropped[j] = opts.LineData{Value: s.DroppedBusy + s.DroppedDisabled}
		rejected[j] = opts.LineData{Value: s.Rejected}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Point Cloud History", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Pipeline counters", Subtitle: fmt.Sprintf("run=%s samples=%d", db.runID, n)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xs).
		AddSeries("published", published).
		AddSeries("dropped", dropped).
		AddSeries("rejected", rejected)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
