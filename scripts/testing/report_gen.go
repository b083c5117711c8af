// Command report_gen merges `go test -json` output with the annotation
// blocks on test functions (TestPurpose, Scope, Security, Expected,
// Test Case ID) and renders JSON and Markdown reports grouped by area.
//
// Usage:
//
//	go test -json ./... > /tmp/tests.json
//	go run scripts/testing/report_gen.go -input /tmp/tests.json \
//	    -out-json reports/tests.json -out-md reports/tests.md
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const modulePath = "github.com/wavefleet/wavefleet"

type annotation struct {
	Name       string `json:"name"`
	Purpose    string `json:"purpose,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Security   string `json:"security,omitempty"`
	Expected   string `json:"expected,omitempty"`
	TestCaseID string `json:"test_case_id,omitempty"`
	Package    string `json:"package"`
	Area       string `json:"area"`
}

type testEvent struct {
	Action  string  `json:"Action"`
	Package string  `json:"Package"`
	Test    string  `json:"Test"`
	Elapsed float64 `json:"Elapsed"`
	Output  string  `json:"Output"`
}

type result struct {
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Elapsed    float64    `json:"elapsed_seconds"`
	Package    string     `json:"package"`
	Failure    string     `json:"failure_reason,omitempty"`
	Annotation annotation `json:"annotation"`
}

type report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Results     []result  `json:"results"`
}

// areas maps package-path fragments to report sections, first match wins.
var areas = []struct{ fragment, label string }{
	{"internal/authorize", "Authorization Gate"},
	{"internal/policy", "Policy Evaluation"},
	{"internal/tenantaccess", "Tenant Access"},
	{"internal/approval", "Approvals"},
	{"internal/membership", "Membership"},
	{"internal/tenant", "Tenant Lifecycle"},
	{"internal/identity", "Identity"},
	{"internal/audit", "Audit"},
	{"internal/store", "Storage"},
	{"transport/http", "HTTP API"},
	{"tests/system", "System Tests"},
	{"tests/e2e", "E2E Tests"},
}

func areaFor(pkg string) string {
	for _, a := range areas {
		if strings.Contains(pkg, a.fragment) {
			return a.label
		}
	}
	return "Other"
}

func main() {
	input := flag.String("input", "", "path to go test -json output")
	outJSON := flag.String("out-json", "", "path for the JSON report")
	outMD := flag.String("out-md", "", "path for the Markdown report")
	title := flag.String("title", "Test Report", "report title")
	onlyArea := flag.String("area", "", "restrict the report to one area label")
	flag.Parse()

	if *input == "" || *outJSON == "" || *outMD == "" {
		fmt.Fprintln(os.Stderr, "usage: report_gen -input <json> -out-json <path> -out-md <path>")
		os.Exit(2)
	}

	annotations := scanAnnotations()
	results := mergeResults(*input, annotations)

	if *onlyArea != "" {
		kept := results[:0]
		for _, r := range results {
			if r.Annotation.Area == *onlyArea {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	rep := report{GeneratedAt: time.Now(), Results: results}
	for _, r := range results {
		rep.Total++
		switch r.Status {
		case "pass":
			rep.Passed++
		case "fail":
			rep.Failed++
		case "skip":
			rep.Skipped++
		}
	}

	writeJSON(rep, *outJSON)
	writeMarkdown(rep, *outMD, *title)

	if rep.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d tests failed\n", rep.Failed)
		os.Exit(1)
	}
}

// scanAnnotations walks the tree parsing _test.go files and collecting
// the comment block above each Test function.
func scanAnnotations() map[string]annotation {
	out := make(map[string]annotation)
	fset := token.NewFileSet()

	filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, "_test.go") {
			return nil
		}
		node, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil
		}

		pkg := modulePath
		if dir := strings.TrimPrefix(filepath.Dir(path), "./"); dir != "." {
			pkg = modulePath + "/" + filepath.ToSlash(dir)
		}

		for _, decl := range node.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || !strings.HasPrefix(fn.Name.Name, "Test") {
				continue
			}
			a := annotation{Name: fn.Name.Name, Package: pkg, Area: areaFor(pkg)}
			if fn.Doc != nil {
				for _, c := range fn.Doc.List {
					line := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
					for _, field := range []struct {
						prefix string
						dst    *string
					}{
						{"TestPurpose:", &a.Purpose},
						{"Scope:", &a.Scope},
						{"Security:", &a.Security},
						{"Expected:", &a.Expected},
						{"Test Case ID:", &a.TestCaseID},
					} {
						if strings.HasPrefix(line, field.prefix) {
							*field.dst = strings.TrimSpace(strings.TrimPrefix(line, field.prefix))
						}
					}
				}
			}
			out[pkg+"."+fn.Name.Name] = a
		}
		return nil
	})

	return out
}

func mergeResults(path string, annotations map[string]annotation) []result {
	states := make(map[string]*result)
	for key, a := range annotations {
		states[key] = &result{Name: a.Name, Package: a.Package, Status: "not run", Annotation: a}
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open test output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev testEvent
		if json.Unmarshal(scanner.Bytes(), &ev) != nil || ev.Test == "" {
			continue
		}

		key := ev.Package + "." + ev.Test
		res, ok := states[key]
		if !ok {
			a := annotation{Name: ev.Test, Package: ev.Package, Area: areaFor(ev.Package)}
			// Subtests inherit the parent's annotation.
			if parent, _, found := strings.Cut(ev.Test, "/"); found {
				if pa, ok := annotations[ev.Package+"."+parent]; ok {
					a = pa
					a.Name = ev.Test
				}
			}
			res = &result{Name: ev.Test, Package: ev.Package, Annotation: a}
			states[key] = res
		}

		switch ev.Action {
		case "pass", "fail":
			res.Status = ev.Action
			res.Elapsed = ev.Elapsed
		case "skip":
			res.Status = "skip"
		case "output":
			if res.Status == "fail" || res.Status == "" {
				res.Failure += ev.Output
			}
		}
	}

	list := make([]result, 0, len(states))
	for _, r := range states {
		list = append(list, *r)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Package != list[j].Package {
			return list[i].Package < list[j].Package
		}
		return list[i].Name < list[j].Name
	})
	return list
}

func writeJSON(rep report, path string) {
	data, _ := json.MarshalIndent(rep, "", "  ")
	os.MkdirAll(filepath.Dir(path), 0o755)
	os.WriteFile(path, data, 0o644)
}

func writeMarkdown(rep report, path, title string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "Generated %s\n\n", rep.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "| Total | Passed | Failed | Skipped |\n|---|---|---|---|\n| %d | %d | %d | %d |\n\n",
		rep.Total, rep.Passed, rep.Failed, rep.Skipped)

	byArea := make(map[string][]result)
	for _, r := range rep.Results {
		byArea[r.Annotation.Area] = append(byArea[r.Annotation.Area], r)
	}

	for _, area := range append(areaLabels(), "Other") {
		tests := byArea[area]
		if len(tests) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", area)
		sb.WriteString("| ID | Test | Status | Purpose |\n|---|---|---|---|\n")
		for _, t := range tests {
			fmt.Fprintf(&sb, "| %s | `%s` | %s | %s |\n",
				t.Annotation.TestCaseID, t.Name, t.Status, t.Annotation.Purpose)
		}
		sb.WriteString("\n")
	}

	if rep.Failed > 0 {
		sb.WriteString("## Failures\n\n")
		for _, t := range rep.Results {
			if t.Status == "fail" {
				fmt.Fprintf(&sb, "### %s (%s)\n\n```\n%s\n```\n\n", t.Name, t.Package, t.Failure)
			}
		}
	}

	os.MkdirAll(filepath.Dir(path), 0o755)
	os.WriteFile(path, []byte(sb.String()), 0o644)
}

func areaLabels() []string {
	labels := make([]string, 0, len(areas))
	for _, a := range areas {
		labels = append(labels, a.label)
	}
	return labels
}
