package research

import (
	"fmt"
	"strings"

	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// DefaultMaxQueries is the query budget when Options.MaxQueries is zero
const DefaultMaxQueries = 6

// BuildQueries derives up to max search queries from the job spec.
// Topic and company queries come first since they are the most specific.
func BuildQueries(job types.JobSpec, max int) []string {
	if max <= 0 {
		max = DefaultMaxQueries
	}

	role := strings.TrimSpace(job.Role)
	level := strings.TrimSpace(string(job.Level))
	topic := strings.TrimSpace(job.Topic)
	company := strings.TrimSpace(job.CompanyName)

	var queries []string
	if topic != "" {
		queries = append(queries,
			fmt.Sprintf("%s %s take-home assignment", role, topic),
			fmt.Sprintf("%s best practices %s", topic, role),
		)
	}
	if company != "" {
		queries = append(queries,
			fmt.Sprintf("%s engineering blog %s", company, role),
			fmt.Sprintf("%s %s interview process", company, role),
		)
	}
	queries = append(queries,
		fmt.Sprintf("%s %s take-home coding assignment", level, role),
		fmt.Sprintf("%s %s interview skills assessment", level, role),
		fmt.Sprintf("%s required skills and tools", role),
		fmt.Sprintf("%s system design interview questions", role),
		fmt.Sprintf("how to evaluate %s %s candidates", level, role),
	)

	seen := make(map[string]bool)
	out := make([]string, 0, max)
	for _, q := range queries {
		q = strings.Join(strings.Fields(q), " ")
		key := strings.ToLower(q)
		if q == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if len(out) == max {
			break
		}
	}
	return out
}
