package review

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/mfromano/schedule-creator/internal/models"
)

type searchSignals struct {
	Search string `json:"search"`
}

// levenshtein is the edit distance used to fuzzy-rank search hits.
func levenshtein(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	n, m := len(r1), len(r2)
	if n > m {
		r1, r2 = r2, r1
		n, m = m, n
	}

	currentRow := make([]int, n+1)
	for i := 0; i <= n; i++ {
		currentRow[i] = i
	}
	for i := 1; i <= m; i++ {
		previousRow := currentRow
		currentRow = make([]int, n+1)
		currentRow[0] = i
		for j := 1; j <= n; j++ {
			add, del, change := previousRow[j]+1, currentRow[j-1]+1, previousRow[j-1]
			if r1[j-1] != r2[i-1] {
				change++
			}
			currentRow[j] = min(add, min(del, change))
		}
	}
	return currentRow[n]
}

// handleSearch is the datastar active-search endpoint: it reads the search
// signal, scores residents against it, and patches the
// result list into the page over SSE.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	signals := &searchSignals{}
	if err := datastar.ReadSignals(r, signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	query := strings.ToLower(strings.TrimSpace(signals.Search))

	sse := datastar.NewSSE(w, r)
	sse.PatchElements(s.searchResultsFragment(query))
}

type scoredResident struct {
	res   *models.Resident
	score int
}

func (s *Server) searchResultsFragment(query string) string {
	var sb strings.Builder
	sb.WriteString(`<div id="search-results">`)
	if query != "" {
		for _, hit := range s.scoreResidents(query) {
			weeks := 0
			for w := 1; w <= s.grid.Weeks; w++ {
				if s.grid.Base(hit.res.Name, w) != "" {
					weeks++
				}
			}
			fmt.Fprintf(&sb,
				`<div class="hit"><a href="/resident?name=%s">%s</a> <span class="meta">R%d · %s · %d week(s) scheduled</span></div>`,
				url.QueryEscape(hit.res.Name), html.EscapeString(hit.res.Name),
				hit.res.RYear, html.EscapeString(hit.res.Pathway.String()), weeks)
		}
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

// scoreResidents ranks residents by substring match first, then edit
// distance, ten hits at most.
func (s *Server) scoreResidents(query string) []scoredResident {
	var hits []scoredResident
	for _, res := range s.residents {
		name := strings.ToLower(res.Name)
		score := levenshtein(query, name)
		if strings.Contains(name, query) {
			score = 0
		}
		if score <= len(query) || strings.Contains(name, query) {
			hits = append(hits, scoredResident{res: res, score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		return hits[i].res.Name < hits[j].res.Name
	})
	if len(hits) > 10 {
		hits = hits[:10]
	}
	return hits
}
