package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const peopleCSV = "Name,Age,City\nAnn,30,Oslo\nBob,,Rome\nCid,50,\nDee,40,Oslo\n"

// resetFlags restores every flag to its default so values from one
// invocation do not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns what it printed.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

// isolate points HOME at a temp dir, so config and the fs store live there,
// and writes the people fixture into it.
func isolate(t *testing.T) (home, people string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"TABLOOM_STORE_DRIVER", "TABLOOM_USER_ID", "TABLOOM_DATA_DIR", "TABLOOM_PAGE_SIZE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	people = filepath.Join(home, "people.csv")
	if err := os.WriteFile(people, []byte(peopleCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return home, people
}

func TestCLI_InspectKeepsArgumentOrder(t *testing.T) {
	home, people := isolate(t)
	other := filepath.Join(home, "scores.tsv")
	if err := os.WriteFile(other, []byte("team\tscore\nred\t3\nblue\t5\n"), 0o644); err != nil {
		t.Fatalf("write tsv: %v", err)
	}

	out := mustRun(t, "inspect", other, people, "--jobs", "2")
	first := strings.Index(out, "[1/2] scores.tsv")
	second := strings.Index(out, "[2/2] people.csv")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("unexpected order:\n%s", out)
	}
	if strings.Count(out, "[DATASET SUMMARY]") != 2 {
		t.Fatalf("expected two summaries:\n%s", out)
	}
}

func TestCLI_InspectOutputDirAvoidsOverwrite(t *testing.T) {
	home, _ := isolate(t)
	for _, d := range []string{"d1", "d2"} {
		dir := filepath.Join(home, d)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "metrics.csv"), []byte("col1,col2\nA,1\nB,2\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	outDir := filepath.Join(home, "summaries")
	mustRun(t, "inspect", filepath.Join(home, "d*", "metrics.csv"), "-o", outDir, "-q")
	for _, name := range []string{"metrics.summary.md", "metrics__2.summary.md"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestCLI_InspectUnsupportedFormat(t *testing.T) {
	home, _ := isolate(t)
	p := filepath.Join(home, "notes.pdf")
	if err := os.WriteFile(p, []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := runCmd(t, "inspect", p); err == nil || !strings.Contains(err.Error(), "unsupported file format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestCLI_CleanWritesTableAndChanges(t *testing.T) {
	home, people := isolate(t)
	outCSV := filepath.Join(home, "clean.csv")
	changes := filepath.Join(home, "changes.json")

	out := mustRun(t, "clean", people, "--op", "remove-empty", "-o", outCSV, "--changes", changes)
	if !strings.Contains(out, "✓ remove-empty: 2 changes (2 rows, 0 missing)") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	b, err := os.ReadFile(outCSV)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got, want := string(b), "Name,Age,City\nAnn,30,Oslo\nDee,40,Oslo\n"; got != want {
		t.Fatalf("cleaned csv = %q, want %q", got, want)
	}
	b, err = os.ReadFile(changes)
	if err != nil {
		t.Fatalf("read changes: %v", err)
	}
	var recs []map[string]any
	if err := json.Unmarshal(b, &recs); err != nil {
		t.Fatalf("decode changes: %v", err)
	}
	if len(recs) != 2 || recs[0]["operation"] != "remove-empty" || recs[0]["column"] != "all" {
		t.Fatalf("unexpected change log: %s", b)
	}
}

func TestCLI_CleanAppliesOpsInOrder(t *testing.T) {
	_, people := isolate(t)
	out := mustRun(t, "clean", people, "--op", "fill-mean", "--op", "fill-mode")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two summary lines:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "✓ fill-mean: 1 changes") || !strings.HasPrefix(lines[1], "✓ fill-mode: 1 changes (4 rows, 0 missing)") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestCLI_CleanRejectsUnknownOperation(t *testing.T) {
	_, people := isolate(t)
	if _, err := runCmd(t, "clean", people, "--op", "shuffle"); err == nil {
		t.Fatal("expected error for unknown operation")
	}
	if _, err := runCmd(t, "clean", people); err == nil {
		t.Fatal("expected error when no --op is given")
	}
}

func TestCLI_ViewSearchAndSort(t *testing.T) {
	_, people := isolate(t)
	out := mustRun(t, "view", people, "--search", "OSLO", "--sort", "Age", "--order", "desc")
	if !strings.Contains(out, "2 of 4 rows match (page 1/1)") {
		t.Fatalf("unexpected footer:\n%s", out)
	}
	dee := strings.Index(out, "Dee")
	ann := strings.Index(out, "Ann")
	if dee < 0 || ann < 0 || dee > ann {
		t.Fatalf("expected Dee before Ann:\n%s", out)
	}
	if strings.Contains(out, "Bob") {
		t.Fatalf("Bob should not match:\n%s", out)
	}
}

func TestCLI_ViewPaging(t *testing.T) {
	_, people := isolate(t)
	out := mustRun(t, "view", people, "--page-size", "3", "--page", "9")
	if !strings.Contains(out, "4 of 4 rows match (page 2/2)") {
		t.Fatalf("page should clamp to the last page:\n%s", out)
	}
	if !strings.Contains(out, "Dee") || strings.Contains(out, "Ann") {
		t.Fatalf("unexpected rows on page 2:\n%s", out)
	}
	if _, err := runCmd(t, "view", people, "--order", "sideways"); err == nil {
		t.Fatal("expected error for invalid order")
	}
}

var idPattern = regexp.MustCompile(`ID: ([0-9a-f-]{36})`)

func TestCLI_DatasetsLifecycle(t *testing.T) {
	_, people := isolate(t)

	out := mustRun(t, "datasets", "save", people, "--op", "remove-empty")
	m := idPattern.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no id in output:\n%s", out)
	}
	id := m[1]

	out = mustRun(t, "datasets", "list")
	if !strings.Contains(out, id) || !strings.Contains(out, "people (people.csv, 2 rows, 3 columns, cleaned: remove-empty)") {
		t.Fatalf("unexpected list:\n%s", out)
	}
	out = mustRun(t, "datasets", "show", id)
	if !strings.Contains(out, "Missing values: 0") || !strings.Contains(out, "  - Age: number") {
		t.Fatalf("unexpected show:\n%s", out)
	}

	mustRun(t, "datasets", "delete", id)
	out = mustRun(t, "datasets", "list")
	if !strings.Contains(out, "(no datasets)") {
		t.Fatalf("dataset not deleted:\n%s", out)
	}
	if _, err := runCmd(t, "datasets", "show", id); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestCLI_TrainSaveAndListResults(t *testing.T) {
	_, people := isolate(t)
	out := mustRun(t, "train", people, "--target", "Age", "--task", "regression", "--save")
	for _, want := range []string{"Best model:", "R² score:", "Feature importance:", "✓ Saved result"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	out = mustRun(t, "results")
	if !strings.Contains(out, "→ Age (regression") {
		t.Fatalf("unexpected results list:\n%s", out)
	}

	if _, err := runCmd(t, "train", people, "--target", "Salary"); err == nil {
		t.Fatal("expected unknown target error")
	}
	if _, err := runCmd(t, "train", people, "--target", "Age", "--task", "clustering"); err == nil {
		t.Fatal("expected invalid task error")
	}
}

func TestCLI_TrainStoredDataset(t *testing.T) {
	_, people := isolate(t)
	out := mustRun(t, "datasets", "save", people, "--name", "crew")
	id := idPattern.FindStringSubmatch(out)[1]

	out = mustRun(t, "train", "--dataset", id, "--target", "City", "--json")
	var payload struct {
		Results struct {
			Task            string  `json:"taskType"`
			ConfusionMatrix [][]int `json:"confusionMatrix"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if payload.Results.Task != "classification" || len(payload.Results.ConfusionMatrix) != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home, _ := isolate(t)
	out := mustRun(t, "config", "set", "page_size", "7")
	if !strings.Contains(out, "Saved config") {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".tabloom", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	out = mustRun(t, "config", "show")
	if !strings.Contains(out, "page_size: 7") || !strings.Contains(out, "store_driver: fs") {
		t.Fatalf("unexpected config:\n%s", out)
	}
	if _, err := runCmd(t, "config", "set", "page_size", "zero"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestMaskDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://app:secret@db:5432/tabloom": "postgres://app:****@db:5432/tabloom",
		"file:tabloom.db":                       "file:tabloom.db",
		"postgres://app@db/tabloom":             "postgres://app@db/tabloom",
	}
	for in, want := range cases {
		if got := maskDSN(in); got != want {
			t.Errorf("maskDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
