package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/visualiser"
)

// AttachAdminRoutes registers pipeline debug endpoints under /debug/.
func (p *Pipeline) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.KVFunc("Point cloud enabled", func() any { return p.Enabled() })
	debug.KVFunc("Point cloud state", func() any { return p.gate.State().String() })
	debug.KVFunc("Point cloud last points", func() any { return p.publisher.Stats().LastPoints })

	debug.HandleSilentFunc("pointcloud-enable", p.handleEnable)
	debug.HandleFunc("pointcloud-stats", "point cloud pipeline counters (JSON)", p.handleStats)
	debug.HandleFunc("pointcloud-chart", "point cloud admission chart", p.handleChart)

	if tracked, ok := p.anchor.(*visualiser.TrackedAnchor); ok {
		debug.HandleSilentFunc("pointcloud-anchor", func(w http.ResponseWriter, r *http.Request) {
			handleAnchorUpdate(tracked, w, r)
		})
	}
}

// anchorUpdate is the JSON body accepted by the anchor route. Orientation is
// w, x, y, z.
type anchorUpdate struct {
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"`
}

func handleAnchorUpdate(a *visualiser.TrackedAnchor, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req anchorUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid anchor: %v", err), http.StatusBadRequest)
		return
	}
	a.Update(visualiser.PoseFromArrays(req.Position, req.Orientation))
	w.WriteHeader(http.StatusNoContent)
}

// handleEnable toggles the consumer. POST enabled=true|false.
func (p *Pipeline) handleEnable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	enabled, err := strconv.ParseBool(r.FormValue("enabled"))
	if err != nil {
		http.Error(w, "Invalid enabled value", http.StatusBadRequest)
		return
	}
	p.SetEnabled(enabled)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"enabled": p.Enabled()})
}

func (p *Pipeline) handleStats(w http.ResponseWriter, r *http.Request) {
	s := p.Stats()
	resp := map[string]any{
		"state":            s.Gate.State.String(),
		"enabled":          s.Gate.Enabled,
		"accepted":         s.Gate.Accepted,
		"published":        s.Gate.Published,
		"dropped_busy":     s.Gate.DroppedBusy,
		"dropped_disabled": s.Gate.DroppedDisabled,
		"rejected":         s.Gate.Rejected,
		"truncated":        s.Truncated,
		"color_defaulted":  s.ColorDefaulted,
		"points_decoded":   s.PointsDecoded,
		"last_points":      s.Publisher.LastPoints,
		"clients":          s.Publisher.Clients,
		"visible":          s.Publisher.Visible,
		"last_error":       s.LastError,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleChart renders frame outcomes as a bar chart.
func (p *Pipeline) handleChart(w http.ResponseWriter, r *http.Request) {
	s := p.Stats()

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Point Cloud Admission", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Frame outcomes", Subtitle: fmt.Sprintf("state=%s enabled=%v", s.Gate.State, s.Gate.Enabled)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis([]string{"accepted", "published", "busy", "disabled", "rejected", "truncated"})
	bar.AddSeries("frames", []opts.BarData{
		{Value: s.Gate.Accepted},
		{Value: s.Gate.Published},
		{Value: s.Gate.DroppedBusy},
		{Value: s.Gate.DroppedDisabled},
		{Value: s.Gate.Rejected},
		{Value: s.Truncated},
	})

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
