// Package review serves the human-review gate between the build and the
// workbook write: the staffing heatmap, the validation report, and a
// live search over the built grid, on a local port.
package review

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/mfromano/schedule-creator/internal/models"
	"github.com/mfromano/schedule-creator/internal/phases"
	"github.com/mfromano/schedule-creator/internal/validate"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server renders one built schedule for inspection.
type Server struct {
	log       *zap.Logger
	residents []*models.Resident
	grid      *models.Grid
	report    *validate.Report
	heatmap   []validate.HeatmapRow
	result    *phases.Result

	tmpl *template.Template
}

func NewServer(
	log *zap.Logger,
	residents []*models.Resident,
	grid *models.Grid,
	report *validate.Report,
	heatmap []validate.HeatmapRow,
	result *phases.Result,
) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	tmpl, err := template.New("review").Funcs(template.FuncMap{
		"heatClass": heatClass,
		"inc":       func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse review templates: %w", err)
	}
	return &Server{
		log:       log,
		residents: residents,
		grid:      grid,
		report:    report,
		heatmap:   heatmap,
		result:    result,
		tmpl:      tmpl,
	}, nil
}

// Handler wires the review routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/resident", s.handleResident)
	mux.HandleFunc("/api/search", s.handleSearch)
	return mux
}

// ListenAndServe blocks serving the review UI.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("review server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

type dashboardData struct {
	OK         bool
	RunID      string
	ErrorCount int
	Findings   map[string][]validate.Finding
	Heatmap    []validate.HeatmapRow
	Summary    []validate.SystemSummary
	Warnings   []string
	Residents  []*models.Resident
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := dashboardData{
		OK:         s.report.OK(),
		RunID:      s.report.RunID,
		ErrorCount: s.report.ErrorCount(),
		Findings:   s.report.ByCheck(),
		Heatmap:    s.heatmap,
		Summary:    s.report.Summary,
		Residents:  s.sortedResidents(),
	}
	if s.result != nil {
		data.Warnings = s.result.Warnings
	}
	s.render(w, "dashboard.html", data)
}

type residentData struct {
	Resident *models.Resident
	Weeks    []weekCell
}

type weekCell struct {
	Week int
	Base string
	NF   string
}

func (s *Server) handleResident(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	var res *models.Resident
	for _, cand := range s.residents {
		if cand.Name == name {
			res = cand
			break
		}
	}
	if res == nil {
		http.NotFound(w, r)
		return
	}
	data := residentData{Resident: res}
	for week := 1; week <= s.grid.Weeks; week++ {
		data.Weeks = append(data.Weeks, weekCell{
			Week: week,
			Base: s.grid.Base(res.Name, week),
			NF:   s.grid.NF(res.Name, week),
		})
	}
	s.render(w, "resident.html", data)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("template execute", zap.String("template", name), zap.Error(err))
		http.Error(w, "Template Execute Error: "+err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) sortedResidents() []*models.Resident {
	out := make([]*models.Resident, len(s.residents))
	copy(out, s.residents)
	sort.Slice(out, func(i, j int) bool {
		if out[i].RYear != out[j].RYear {
			return out[i].RYear < out[j].RYear
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// heatClass buckets an occupancy cell for the heatmap coloring.
func heatClass(count, minReq int) string {
	switch {
	case count < minReq:
		return "under"
	case count == minReq:
		return "tight"
	default:
		return "ok"
	}
}
