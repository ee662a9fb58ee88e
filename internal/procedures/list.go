package procedures

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

// Sort orders for List.
const (
	SortID          = "id"
	SortTitle       = "title"
	SortRequirement = "requirement"
)

var clausePattern = regexp.MustCompile(`\d+(?:\.\d+)*`)

// List returns procedures whose requirement clause falls under clause,
// ordered by sortBy. An empty clause keeps everything; an empty sortBy
// keeps catalogue order.
func (s *Store) List(clause, sortBy string) []domain.Procedure {
	clause = strings.TrimSpace(clause)
	out := make([]domain.Procedure, 0, len(s.procs))
	for _, p := range s.procs {
		if clause == "" || UnderClause(p.Requirement, clause) {
			out = append(out, p)
		}
	}

	switch sortBy {
	case SortID:
		sort.SliceStable(out, func(i, j int) bool { return out[i].ProcID < out[j].ProcID })
	case SortTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	case SortRequirement:
		sort.SliceStable(out, func(i, j int) bool {
			return CompareClauses(out[i].Requirement, out[j].Requirement) < 0
		})
	}
	return out
}

// Clause extracts the first dotted clause number from a requirement string,
// e.g. "7.5.1" from "ISO 13485:2016 Clause 7.5.1". The standard's year is skipped.
func Clause(requirement string) string {
	for _, m := range clausePattern.FindAllString(requirement, -1) {
		if m == "13485" || m == "2016" {
			continue
		}
		return m
	}
	return ""
}

// UnderClause reports whether the requirement's clause equals clause or is
// nested below it. "7.5" covers "7.5.1" but not "7.50".
func UnderClause(requirement, clause string) bool {
	c := Clause(requirement)
	clause = strings.TrimSuffix(strings.TrimSpace(clause), ".")
	return c != "" && (c == clause || strings.HasPrefix(c, clause+"."))
}

// CompareClauses orders requirement strings by their clause numbers
// numerically, so 7.5.2 sorts before 7.5.10. Requirements without a clause
// sort last.
func CompareClauses(a, b string) int {
	ca, cb := Clause(a), Clause(b)
	switch {
	case ca == "" && cb == "":
		return strings.Compare(a, b)
	case ca == "":
		return 1
	case cb == "":
		return -1
	}

	pa, pb := strings.Split(ca, "."), strings.Split(cb, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, _ := strconv.Atoi(pa[i])
		nb, _ := strconv.Atoi(pb[i])
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return len(pa) - len(pb)
}
