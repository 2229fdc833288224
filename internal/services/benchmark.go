package services

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type SalaryBand struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
	Avg int `yaml:"avg" json:"avg"`
}

type SalaryRanges struct {
	Junior SalaryBand `yaml:"junior" json:"junior"`
	Mid    SalaryBand `yaml:"mid" json:"mid"`
	Senior SalaryBand `yaml:"senior" json:"senior"`
}

type RoleBenchmark struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description" json:"description"`
	Salary      SalaryRanges `yaml:"salary" json:"salary"`
	TopSkills   []string     `yaml:"top_skills" json:"top_skills"`
	DemandTrend string       `yaml:"demand_trend" json:"demand_trend"`
	GrowthRate  int          `yaml:"growth_rate" json:"growth_rate"`
	Keywords    []string     `yaml:"keywords" json:"-"`
}

// BenchmarkTable is the fixed industry salary and skills table. Roles keep
// file order because matching takes the first hit.
type BenchmarkTable struct {
	DefaultRole string          `yaml:"default_role"`
	Roles       []RoleBenchmark `yaml:"roles"`
}

func LoadBenchmarkTable() (*BenchmarkTable, error) {
	raw, err := templateFS.ReadFile("templates/benchmarks.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read benchmark table: %w", err)
	}

	var table BenchmarkTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("failed to parse benchmark table: %w", err)
	}
	if _, ok := table.Role(table.DefaultRole); !ok {
		return nil, fmt.Errorf("default role %q missing from benchmark table", table.DefaultRole)
	}
	return &table, nil
}

func (t *BenchmarkTable) Role(name string) (RoleBenchmark, bool) {
	for _, r := range t.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return RoleBenchmark{}, false
}

// FindClosestRole matches text against role names first, then against each
// role's keywords, and falls back to the default role.
func (t *BenchmarkTable) FindClosestRole(text string) string {
	normalized := strings.ToLower(text)

	for _, r := range t.Roles {
		if strings.Contains(normalized, strings.ToLower(r.Name)) {
			return r.Name
		}
	}

	for _, r := range t.Roles {
		for _, kw := range r.Keywords {
			if strings.Contains(normalized, kw) {
				return r.Name
			}
		}
	}

	return t.DefaultRole
}

// Summary renders the benchmark block appended to benchmarking prompts.
func (r RoleBenchmark) Summary() string {
	var b strings.Builder
	b.WriteString("INDUSTRY_BENCHMARK_DATA:\n")
	fmt.Fprintf(&b, "ROLE: %s\n", r.Name)
	b.WriteString("SALARY_RANGES:\n")
	fmt.Fprintf(&b, "- Junior: $%s - $%s\n", formatThousands(r.Salary.Junior.Min), formatThousands(r.Salary.Junior.Max))
	fmt.Fprintf(&b, "- Mid: $%s - $%s\n", formatThousands(r.Salary.Mid.Min), formatThousands(r.Salary.Mid.Max))
	fmt.Fprintf(&b, "- Senior: $%s - $%s\n", formatThousands(r.Salary.Senior.Min), formatThousands(r.Salary.Senior.Max))
	fmt.Fprintf(&b, "TOP_SKILLS: %s\n", strings.Join(r.TopSkills, ", "))
	fmt.Fprintf(&b, "MARKET_DEMAND: %s\n", r.DemandTrend)
	fmt.Fprintf(&b, "GROWTH_RATE: %d%%", r.GrowthRate)
	return b.String()
}

func formatThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + formatThousands(-n)
	}
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}
