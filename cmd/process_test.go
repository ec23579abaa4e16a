package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/invoice-landed-cost/internal/config"
	"github.com/ginjaninja78/invoice-landed-cost/internal/converter"
	"github.com/ginjaninja78/invoice-landed-cost/internal/logging"
	"github.com/ginjaninja78/invoice-landed-cost/internal/textsource"
	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
	"github.com/ginjaninja78/invoice-landed-cost/pkg/utils"
)

var goodInvoice = strings.Join([]string{
	"Order #21345678",
	"Order Date: Mar 5, 2024 10:31",
	"Items in Order",
	"Batch #1",
	"Red",
	"Brick 2 x 4",
	"New 2 AU $0.500 AU $1.00 4.6g",
	"Part No: 3001",
	"Light Bluish Gray",
	"Plate 1 x 2",
	"New 10 AU $0.050 AU $0.50 3.2g",
	"Part No: 32028",
	"Batch Total: AU $1.50",
	"Order Summary",
	"Order Total: AU $1.50",
	"Shipping: AU $0.15",
	"Grand Total: AU $1.65",
}, "\n")

// testConfig builds a configuration rooted in a temporary directory and
// creates its input directory.
func testConfig(t *testing.T, extra string) *config.MainConfig {
	t.Helper()
	root := t.TempDir()
	data := fmt.Sprintf("input_dir: %s\noutput_dir: %s\ninput_archive_dir: %s\nprofiles_dir: %s\n%s",
		filepath.Join(root, "in"),
		filepath.Join(root, "out"),
		filepath.Join(root, "archive"),
		filepath.Join(root, "profiles"),
		extra)

	cfg, err := config.ParseMainConfig([]byte(data))
	if err != nil {
		t.Fatalf("ParseMainConfig: %v", err)
	}
	if err := os.MkdirAll(cfg.InputDir, 0755); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func writeInput(t *testing.T, cfg *config.MainConfig, name, text string) string {
	t.Helper()
	path := filepath.Join(cfg.InputDir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunBatch(t *testing.T) {
	cfg := testConfig(t, "output_formats: [csv, xlsx, xml]\narchive_inputs: true\n")
	good := writeInput(t, cfg, "good.txt", goodInvoice)
	bad := writeInput(t, cfg, "bad.txt", strings.Replace(goodInvoice, "Order #21345678", "Invoice", 1))
	writeInput(t, cfg, "empty.txt", "  \n")

	summary, err := runBatch(context.Background(), cfg, batchOptions{}, logging.Nop())
	if err != nil {
		t.Fatalf("runBatch: %v", err)
	}

	if summary.TotalFiles != 3 || summary.SuccessfulFiles != 1 || summary.FailedFiles != 2 {
		t.Errorf("counts = %d total, %d ok, %d failed", summary.TotalFiles, summary.SuccessfulFiles, summary.FailedFiles)
	}
	if summary.TotalItems != 2 {
		t.Errorf("items = %d, want 2", summary.TotalItems)
	}
	if len(summary.FailedFilesList) == 2 {
		if got := summary.FailedFilesList[0]; filepath.Base(got.InputFile) != "bad.txt" || got.ErrorType != "structure" {
			t.Errorf("first failure = %+v", got)
		}
		if got := summary.FailedFilesList[1]; filepath.Base(got.InputFile) != "empty.txt" || got.ErrorType != "no-text" {
			t.Errorf("second failure = %+v", got)
		}
	}
	if len(summary.Currencies) != 1 || summary.Currencies[0].Currency != types.AUD {
		t.Errorf("currencies = %+v", summary.Currencies)
	}

	if len(summary.OutputFiles) != 3 {
		t.Fatalf("outputs = %v", summary.OutputFiles)
	}
	csvData, err := os.ReadFile(summary.OutputFiles[0])
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(string(csvData)), "\n"); len(lines) != 3 {
		t.Errorf("csv has %d lines, want 3:\n%s", len(lines), csvData)
	}
	if filepath.Ext(summary.OutputFiles[1]) != ".xlsx" || !utils.FileExists(summary.OutputFiles[1]) {
		t.Errorf("workbook = %s", summary.OutputFiles[1])
	}
	if filepath.Ext(summary.OutputFiles[2]) != ".xml" || !utils.FileExists(summary.OutputFiles[2]) {
		t.Errorf("xml = %s", summary.OutputFiles[2])
	}

	// Only the successful invoice is archived.
	if utils.FileExists(good) || !utils.FileExists(filepath.Join(cfg.InputArchiveDir, "good.txt")) {
		t.Error("good.txt was not archived")
	}
	if !utils.FileExists(bad) {
		t.Error("failed invoice was moved")
	}
	if summary.ProcessedFiles[0].ArchivePath == "" {
		t.Error("archive path not recorded")
	}

	logs, err := filepath.Glob(filepath.Join(cfg.OutputDir, "*.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Errorf("logs = %v, want error log and summary", logs)
	}
}

func TestRunBatchDryRun(t *testing.T) {
	cfg := testConfig(t, "archive_inputs: true\n")
	good := writeInput(t, cfg, "good.txt", goodInvoice)

	summary, err := runBatch(context.Background(), cfg, batchOptions{DryRun: true}, logging.Nop())
	if err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if summary.SuccessfulFiles != 1 || summary.TotalItems != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if utils.FileExists(cfg.OutputDir) || len(summary.OutputFiles) != 0 {
		t.Error("dry run wrote output")
	}
	if !utils.FileExists(good) {
		t.Error("dry run archived the input")
	}

	var out bytes.Buffer
	printSummary(&out, summary, true)
	if !strings.Contains(out.String(), "Dry Run Complete") || !strings.Contains(out.String(), "AUD") {
		t.Errorf("console summary:\n%s", out.String())
	}
}

func TestRunBatchEmptyInput(t *testing.T) {
	cfg := testConfig(t, "")
	summary, err := runBatch(context.Background(), cfg, batchOptions{}, logging.Nop())
	if err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if summary.TotalFiles != 0 || utils.FileExists(cfg.OutputDir) {
		t.Errorf("empty run = %+v", summary)
	}
}

func TestRunBatchCancelled(t *testing.T) {
	cfg := testConfig(t, "")
	writeInput(t, cfg, "good.txt", goodInvoice)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := runBatch(ctx, cfg, batchOptions{DryRun: true}, logging.Nop())
	if err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if summary.FailedFiles != 1 || summary.FailedFilesList[0].ErrorType != "skipped" {
		t.Errorf("cancelled run = %+v", summary.FailedFilesList)
	}
}

func TestDiscoverInputs(t *testing.T) {
	cfg := testConfig(t, "")
	path := writeInput(t, cfg, "one.pdf", "%PDF")
	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, "")

	files, err := discoverInputs(fm, path)
	if err != nil || len(files) != 1 || files[0] != path {
		t.Errorf("single file = %v, %v", files, err)
	}
	if _, err := discoverInputs(fm, filepath.Join(cfg.InputDir, "order.csv")); err == nil {
		t.Error("unsupported extension accepted")
	}
	if _, err := discoverInputs(fm, filepath.Join(cfg.InputDir, "missing.pdf")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestParseFormatFlag(t *testing.T) {
	tests := []struct {
		value string
		want  string
		ok    bool
	}{
		{"csv", "csv", true},
		{"XLSX", "xlsx", true},
		{"both", "csv,xlsx", true},
		{"xml", "xml", true},
		{"all", "csv,xlsx,xml", true},
		{"json", "", false},
	}
	for _, tt := range tests {
		got, err := parseFormatFlag(tt.value)
		if (err == nil) != tt.ok || strings.Join(got, ",") != tt.want {
			t.Errorf("parseFormatFlag(%q) = %v, %v", tt.value, got, err)
		}
	}
}

func TestFailureType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("skipped a.pdf: %w", context.Canceled), "skipped"},
		{fmt.Errorf("failed to parse invoice: %w", &types.StructureError{Source: "a.pdf", Missing: "order number"}), "structure"},
		{fmt.Errorf("failed to load text: %w", textsource.ErrNoText), "no-text"},
		{errors.New("permission denied"), "load"},
	}
	for _, tt := range tests {
		if got := failureType(converter.Result{Error: tt.err}); got != tt.want {
			t.Errorf("failureType(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
