package accuracy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agenthands/ontograph/internal/core/dedupe"
	"github.com/agenthands/ontograph/internal/core/metrics"
	"github.com/agenthands/ontograph/internal/core/model"
)

const dateLabel = "Date"

// GenerateTriples turns every relationship into a (head, type, tail) triple
// named by the endpoints' display names. Date tails are rendered as
// dd/mm/yyyy, mm/yyyy or yyyy. A missing end node leaves its id as tail.
func GenerateTriples(g *model.KnowledgeGraph) []model.Triple {
	if g == nil {
		return nil
	}
	idx := g.NodeIndex()
	triples := make([]model.Triple, 0, len(g.Relationships))
	for _, r := range g.Relationships {
		t := model.Triple{Relation: r.Type, Tail: r.EndNode}
		if i, ok := idx[r.StartNode]; ok {
			t.Head = g.Nodes[i].DisplayName()
		}
		if i, ok := idx[r.EndNode]; ok {
			end := g.Nodes[i]
			t.Tail = end.DisplayName()
			if end.HasLabel(dateLabel) {
				t.Tail = dateTail(end, t.Tail)
			}
		}
		triples = append(triples, t)
	}
	return triples
}

func dateTail(n model.GraphNode, fallback string) string {
	p := func(k string) string {
		v, ok := n.Properties[k]
		if !ok || model.IsPlaceholder(v) {
			return ""
		}
		return model.ScalarString(v)
	}
	switch {
	case p("year") != "" && p("month") != "" && p("day") != "":
		return ConvertDateParts(p("day"), p("month"), p("year"))
	case p("year") != "":
		return ConvertDateParts("", "", p("year"))
	case p("startYear") != "" && p("endYear") != "":
		return p("startYear") + " - " + p("endYear")
	case p("dateValue") != "":
		return ConvertDate(p("dateValue"))
	}
	if fallback == "" {
		return ""
	}
	return ConvertDate(fallback)
}

var dateLayouts = []struct {
	layout string
	out    string
}{
	{"2 January 2006", "02/01/2006"},
	{"2006-01-02", "02/01/2006"},
	{"January 2, 2006", "02/01/2006"},
	{"02.01.2006", "02/01/2006"},
	{"2006-01", "01/2006"},
	{"January 2006", "01/2006"},
	{"Jan 2006", "01/2006"},
}

var (
	yearOnly = regexp.MustCompile(`^\d{4}$`)
	anno     = regexp.MustCompile(`^AD\s+(\d{1,4})$`)
)

// ConvertDate normalises a free-form date string. Unrecognised input is
// returned unchanged.
func ConvertDate(s string) string {
	s = strings.TrimSpace(s)
	if m := anno.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		return strconv.Itoa(y)
	}
	if yearOnly.MatchString(s) {
		return s
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return t.Format(l.out)
		}
	}
	return s
}

// ConvertDateParts renders separate day, month and year components. The
// month may be a number or an English month name.
func ConvertDateParts(day, month, year string) string {
	d, _ := strconv.Atoi(strings.TrimSpace(day))
	y, _ := strconv.Atoi(strings.TrimSpace(year))
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil && month != "" {
		if t, perr := time.Parse("January", strings.TrimSpace(month)); perr == nil {
			m = int(t.Month())
		}
	}
	switch {
	case d > 0 && m > 0 && y > 0:
		t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
		if t.Day() != d || int(t.Month()) != m {
			return fmt.Sprintf("%s/%s/%s", day, month, year)
		}
		return t.Format("02/01/2006")
	case m > 0 && y > 0:
		return fmt.Sprintf("%02d/%d", m, y)
	case y > 0:
		return strconv.Itoa(y)
	}
	return fmt.Sprintf("%s/%s/%s", day, month, year)
}

// TripleScore is the verdict for one predicted triple.
type TripleScore struct {
	Triple      model.Triple   `json:"triple"`
	Exact       bool           `json:"exact"`
	Partial     bool           `json:"partial"`
	ExactGold   []model.Triple `json:"exact_gold,omitempty"`
	PartialGold []model.Triple `json:"partial_gold,omitempty"`
}

type TripleReport struct {
	ExactAccuracy   metrics.Value `json:"exact_accuracy"`
	PartialAccuracy metrics.Value `json:"partial_accuracy"`
	Scores          []TripleScore `json:"scores"`
}

// ScoreTriples compares predicted triples with gold triples element-wise
// using CompareEntities. A triple is exact when all three elements match,
// partial when the subject matches together with the relation or the object.
func ScoreTriples(gold, predicted []model.Triple) TripleReport {
	rep := TripleReport{Scores: make([]TripleScore, 0, len(predicted))}
	exact, partial := 0, 0
	for _, p := range predicted {
		s := TripleScore{Triple: p}
		for _, g := range gold {
			if !dedupe.CompareEntities(p.Head, g.Head) {
				continue
			}
			rel := dedupe.CompareEntities(p.Relation, g.Relation)
			obj := dedupe.CompareEntities(p.Tail, g.Tail)
			if rel && obj {
				s.Exact = true
				s.ExactGold = append(s.ExactGold, g)
			}
			if rel || obj {
				s.Partial = true
				s.PartialGold = append(s.PartialGold, g)
			}
		}
		if s.Exact {
			exact++
		}
		if s.Partial {
			partial++
		}
		rep.Scores = append(rep.Scores, s)
	}
	rep.ExactAccuracy = ratio(exact, len(predicted))
	rep.PartialAccuracy = ratio(partial, len(predicted))
	return rep
}

// TripleOverlap counts the triples of a that also occur verbatim in b.
func TripleOverlap(a, b []model.Triple) int {
	set := make(map[model.Triple]bool, len(b))
	for _, t := range b {
		set[t] = true
	}
	n := 0
	for _, t := range a {
		if set[t] {
			n++
		}
	}
	return n
}
