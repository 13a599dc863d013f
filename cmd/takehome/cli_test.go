package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chulminlee01/mrt-tech-test/internal/bulk"
	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/llm"
	"github.com/chulminlee01/mrt-tech-test/internal/llm/llmtest"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline"
	"github.com/chulminlee01/mrt-tech-test/internal/server"
)

const oneAssignment = `{"company":"Acme","job_role":"QA Developer","job_level":"Mid","assignments":[{
"id":"A1","title":"Checkout test plan","mission":"Write a test plan","requirements":["Cover checkout"],
"deliverables":["Plan"],"ai_guidelines":["Share prompts"],"evaluation":["Coverage"],"timeline":"3h",
"discussion_questions":["What is flaky?"],"datasets":[],"starter_code":{"language":"python","filename":"plan.py"}}]}`

// withFakeGateway swaps the orchestrator factory for one backed by gateway
func withFakeGateway(t *testing.T, gateway llm.Completer) {
	t.Helper()
	original := newOrchestrator
	newOrchestrator = func(_ context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (*pipeline.Orchestrator, error) {
		return pipeline.New(pipeline.Dependencies{Config: cfg, Gateway: gateway, Logger: logger, Stdout: stdout}), nil
	}
	t.Cleanup(func() { newOrchestrator = original })
}

// isolateEnv points the output root at a temp dir and clears settings the CLI reads
func isolateEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("OUTPUT_ROOT", root)
	for _, key := range []string{"ASSIGNMENT_COUNT", "LOG_LEVEL", "DEFAULT_MODEL", "DATABASE_URL", "JWT_SECRET", "GOOGLE_API_KEY", "GOOGLE_CSE_ID", "SITE_TITLE",
		"RESEARCH_TEMPERATURE", "QUESTION_TEMPERATURE", "STARTER_TEMPERATURE", "DESIGNER_TEMPERATURE",
		"RESEARCH_MAX_TOKENS", "QUESTION_MAX_TOKENS", "STARTER_MAX_TOKENS", "DESIGNER_MAX_TOKENS"} {
		t.Setenv(key, "")
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

var quietRun = []string{"--skip-research", "--skip-datasets", "--skip-starter-code", "-n", "1"}

func TestRun_RequiresRole(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "run", "-l", "Mid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--job-role is required")
}

func TestRun_InvalidLevel(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "run", "-r", "QA Developer", "-l", "wizard")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --job-level")
}

func TestRun_InvalidConfigFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assignment_count: 7\n"), 0644))

	_, err := execute(t, "run", "--config", path, "-r", "QA Developer", "-l", "Mid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assignment_count")
}

func TestRun_GeneratesPackage(t *testing.T) {
	isolateEnv(t)
	withFakeGateway(t, llmtest.Always(oneAssignment))
	outDir := filepath.Join(t.TempDir(), "qa")

	args := append([]string{"run", "-r", "QA Developer", "-l", "Mid", "--language", "English", "--company", "Acme", "-o", outDir}, quietRun...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	assert.Contains(t, out, "Generating Mid QA Developer take-home package for Acme (English)")
	assert.Contains(t, out, "Step 1/2: Generating 1 assignment(s)...")
	assert.Contains(t, out, "Step 2/2: Assembling portal...")
	assert.Contains(t, out, "RUN SUMMARY")
	assert.Contains(t, out, "Output written to "+outDir)

	for _, name := range []string{"assignments.json", "index.html", pipeline.RunLogFile} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRun_DefaultOutputDirAndVerbose(t *testing.T) {
	root := isolateEnv(t)
	withFakeGateway(t, llmtest.Always(oneAssignment))

	args := append([]string{"run", "-r", "QA Developer", "-l", "Mid", "--language", "English", "-v"}, quietRun...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	assert.Contains(t, out, "ASSIGNMENTS")
	assert.Contains(t, out, "Checkout test plan")
	_, err = os.Stat(filepath.Join(root, "qa_dev_mid_en", "index.html"))
	assert.NoError(t, err)
}

func TestRun_GatewayFailure(t *testing.T) {
	isolateEnv(t)
	withFakeGateway(t, llmtest.Exhausted())

	args := append([]string{"run", "-r", "QA Developer", "-l", "Mid"}, quietRun...)
	out, err := execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, out, "STEP ERRORS")
	assert.Contains(t, out, "gateway_exhausted")
}

func TestRun_SamplingFlagsAndSiteTitle(t *testing.T) {
	isolateEnv(t)
	completer := llmtest.Always(oneAssignment)
	withFakeGateway(t, completer)
	outDir := filepath.Join(t.TempDir(), "qa")

	args := append([]string{"run", "-r", "QA Developer", "-l", "Mid", "--language", "English", "-o", outDir,
		"--question-temperature", "0.5", "--question-max-tokens", "6000", "--site-title", "QA Take-Home Portal"}, quietRun...)
	_, err := execute(t, args...)
	require.NoError(t, err)

	calls := completer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 0.5, calls[0].Options.Temperature)
	assert.Equal(t, 6000, calls[0].Options.MaxTokens)

	html, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<title>QA Take-Home Portal</title>")
}

func TestRun_InvalidTemperature(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "run", "-r", "QA Developer", "-l", "Mid", "--starter-temperature", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sampling.starter.temperature")
}

func TestRun_ConfigurationErrorSkipsSummary(t *testing.T) {
	isolateEnv(t)
	completer := llmtest.Always(oneAssignment)
	withFakeGateway(t, completer)

	out, err := execute(t, "run", "-r", "QA Developer", "-l", "Mid", "-o", filepath.Join(t.TempDir(), "empty"), "--skip-assignments")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
	assert.NotContains(t, out, "RUN SUMMARY")
	assert.Empty(t, completer.Calls())
}

func writeSheet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sheet.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readSummary(t *testing.T, path string) []bulk.Result {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var results []bulk.Result
	require.NoError(t, json.Unmarshal(data, &results))
	return results
}

func TestBulk_FromCSV(t *testing.T) {
	root := isolateEnv(t)
	withFakeGateway(t, llmtest.Always(oneAssignment))
	sheet := writeSheet(t, "Team,Level,Language,External_Link\nQA,Mid,English,\nData,Senior,English,https://example.com/form\n")

	args := append([]string{"bulk", "--sheet-csv", sheet, "-w", "2"}, quietRun...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	assert.Contains(t, out, "Processing 2 row(s) with up to 2 worker(s)")
	assert.Contains(t, out, "Completed: 1  Failed: 0  Skipped: 1")

	results := readSummary(t, filepath.Join(root, SummaryFile))
	require.Len(t, results, 2)
	assert.Equal(t, bulk.StatusCompleted, results[0].Status)
	assert.Equal(t, filepath.Join(root, "qa_dev_mid_en"), results[0].OutputDir)
	assert.Equal(t, bulk.StatusSkipped, results[1].Status)
}

func TestBulk_FailedRowStillWritesSummary(t *testing.T) {
	isolateEnv(t)
	withFakeGateway(t, llmtest.Always(oneAssignment))
	sheet := writeSheet(t, "team,level,language\nQA,Mid,English\nBackend,wizard,English\n")
	summary := filepath.Join(t.TempDir(), "reports", "summary.json")

	args := append([]string{"bulk", "--sheet-csv", sheet, "--summary", summary}, quietRun...)
	_, err := execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 row(s) failed")

	results := readSummary(t, summary)
	require.Len(t, results, 2)
	assert.Equal(t, bulk.StatusCompleted, results[0].Status)
	assert.Equal(t, bulk.StatusFailed, results[1].Status)
	assert.Contains(t, results[1].Error, "wizard")
}

func TestBulk_SheetFlags(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "bulk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheet-csv")

	_, err = execute(t, "bulk", "--sheet-csv", "a.csv", "--sheet-url", "https://docs.google.com/spreadsheets/d/abc")
	require.Error(t, err)

	_, err = execute(t, "bulk", "--sheet-csv", writeSheet(t, "name,level\nx,Mid\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "team")
}

func TestToken(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "token", "-s", "ops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	secret := "a-test-secret-that-is-long-enough"
	t.Setenv("JWT_SECRET", secret)
	out, err := execute(t, "token", "-s", "recruiter@example.com")
	require.NoError(t, err)

	claims, err := server.NewJWTService(&config.JWTConfig{Secret: secret, ExpirationHours: 1}).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "recruiter@example.com", claims.Subject)
}
