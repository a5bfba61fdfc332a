package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jingleid/internal/opening"
	"jingleid/internal/refdb"
	"jingleid/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, env.checkpoint)
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "jingleid.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[matching]\nmatch_length = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "matching") {
		t.Fatalf("expected matching validation error, got %v", err)
	}
}

func TestFitPredictAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	first := env.media(t, "s01e01.mkv", 1)
	second := env.media(t, "s02e01.mkv", 2)
	third := env.media(t, "s03e01.mkv", 3)

	out, _, err := runCLI(t, []string{"fit",
		"--ref", "Season 1=" + first,
		"--ref", "Season 2=" + second,
		"--ref", "Season 3=" + third,
	}, env.configPath)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	requireContains(t, out, "Fitted 3 references")
	requireContains(t, out, "Season 2")
	if _, err := os.Stat(env.checkpoint); err != nil {
		t.Fatalf("checkpoint not written: %v", err)
	}

	out, _, err = runCLI(t, []string{"predict", "--json", second, first}, env.configPath)
	if err != nil {
		t.Fatalf("predict --json: %v", err)
	}
	var report predictReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.Detections) != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got := report.Detections[0]; got.Label != "Season 2" || got.Path != second || got.LowConfidence {
		t.Fatalf("first detection = %+v", got)
	}
	if got := report.Detections[1]; got.Label != "Season 1" || got.Score != 1 {
		t.Fatalf("second detection = %+v", got)
	}
	if report.Threshold != opening.DefaultLowConfidenceThreshold {
		t.Fatalf("threshold = %v", report.Threshold)
	}

	out, _, err = runCLI(t, []string{"predict", third}, env.configPath)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	requireContains(t, out, "s03e01.mkv")
	requireContains(t, out, "Season 3")
	requireContains(t, out, "1.000")

	out, _, err = runCLI(t, []string{"checkpoint", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("checkpoint show: %v", err)
	}
	requireContains(t, out, env.checkpoint)
	requireContains(t, out, "Season 1")
	requireContains(t, out, "Season 3")

	out, _, err = runCLI(t, []string{"checkpoint", "show", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("checkpoint show --json: %v", err)
	}
	var info refdb.CheckpointInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if len(info.Entries) != 3 || info.Entries[2].Label != "Season 3" {
		t.Fatalf("unexpected entries: %+v", info.Entries)
	}
}

func TestCheckpointFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	media := env.media(t, "ep01.mkv", 7)
	alternate := filepath.Join(env.dir, "alternate", "refs.db")

	if _, _, err := runCLI(t, []string{"--checkpoint", alternate, "fit", "--ref", "Only=" + media}, env.configPath); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if _, err := os.Stat(alternate); err != nil {
		t.Fatalf("expected checkpoint at %s: %v", alternate, err)
	}
	if _, err := os.Stat(env.checkpoint); !os.IsNotExist(err) {
		t.Fatalf("configured checkpoint should not exist, stat err = %v", err)
	}

	out, _, err := runCLI(t, []string{"--checkpoint", alternate, "predict", "--json", media}, env.configPath)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	var report predictReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Checkpoint != alternate || report.Detections[0].Label != "Only" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Detections[0].Confidence != report.Detections[0].Score {
		t.Fatalf("single reference confidence = %v, score = %v", report.Detections[0].Confidence, report.Detections[0].Score)
	}
}

func TestPredictZeroThresholdDisablesWarnings(t *testing.T) {
	env := setupCLITestEnv(t)
	ref := env.media(t, "ref.mkv", 5)
	twin := env.media(t, "twin.mkv", 5)

	if _, _, err := runCLI(t, []string{"fit", "--ref", "A=" + ref, "--ref", "A copy=" + twin}, env.configPath); err != nil {
		t.Fatalf("fit: %v", err)
	}

	predict := func(configPath string, extra ...string) predictReport {
		t.Helper()
		args := append([]string{"predict", "--json"}, extra...)
		out, _, err := runCLI(t, append(args, ref), configPath)
		if err != nil {
			t.Fatalf("predict %v: %v", extra, err)
		}
		var report predictReport
		if err := json.Unmarshal([]byte(out), &report); err != nil {
			t.Fatalf("decode report: %v", err)
		}
		return report
	}

	if report := predict(env.configPath); !report.Detections[0].LowConfidence {
		t.Fatalf("tie should be flagged at the configured threshold: %+v", report.Detections[0])
	}
	if report := predict(env.configPath, "--threshold", "0"); report.Threshold != 0 || report.Detections[0].LowConfidence {
		t.Fatalf("--threshold 0 report = %+v", report)
	}

	cfg := *env.cfg
	cfg.Prediction.LowConfidenceThreshold = 0
	zeroConfig := testsupport.WriteConfigFile(t, &cfg)
	if report := predict(zeroConfig); report.Threshold != 0 || report.Detections[0].LowConfidence {
		t.Fatalf("configured threshold 0 report = %+v", report)
	}
}

func TestPredictReportsDecodeFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	good := env.media(t, "good.mkv", 1)
	other := env.media(t, "other.mkv", 2)
	broken := env.placeholder(t, "broken.mkv")

	if _, _, err := runCLI(t, []string{"fit", "--ref", "A=" + good, "--ref", "B=" + other}, env.configPath); err != nil {
		t.Fatalf("fit: %v", err)
	}

	out, _, err := runCLI(t, []string{"predict", broken, good}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files could not be decoded") {
		t.Fatalf("expected decode failure summary, got %v", err)
	}
	requireContains(t, out, "broken.mkv")
	requireContains(t, out, "decode failed")
	requireContains(t, out, "good.mkv")
}

func TestFitFailsOnUndecodableReference(t *testing.T) {
	env := setupCLITestEnv(t)
	broken := env.placeholder(t, "broken.mkv")

	_, _, err := runCLI(t, []string{"fit", "--ref", "A=" + broken}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "fit references") {
		t.Fatalf("expected fit failure, got %v", err)
	}
	if _, err := os.Stat(env.checkpoint); !os.IsNotExist(err) {
		t.Fatalf("checkpoint should not be written, stat err = %v", err)
	}
}

func TestCommandArgumentErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	media := env.media(t, "ep01.mkv", 1)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "fit without refs", args: []string{"fit"}, want: "--ref"},
		{name: "malformed ref", args: []string{"fit", "--ref", "no-separator"}, want: "expected label=path"},
		{name: "predict before fit", args: []string{"predict", media}, want: "jingleid fit"},
		{name: "show before fit", args: []string{"checkpoint", "show"}, want: "jingleid fit"},
		{name: "clip without out", args: []string{"clip", media}, want: "--out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args, env.configPath)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, env.ffmpeg)
	requireContains(t, out, "not fitted yet")

	out, _, err = runCLI(t, []string{"check", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("check --json: %v", err)
	}
	var statuses []struct {
		Name      string `json:"name"`
		Available bool   `json:"available"`
		Optional  bool   `json:"optional"`
	}
	if err := json.Unmarshal([]byte(out), &statuses); err != nil {
		t.Fatalf("decode statuses: %v", err)
	}
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			t.Fatalf("required check %q unavailable", status.Name)
		}
	}

	env.writeConfig(t, filepath.Join(env.dir, "missing", "ffmpeg"))
	out, _, err = runCLI(t, []string{"check"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "required dependencies unavailable") {
		t.Fatalf("expected missing dependency error, got %v", err)
	}
	requireContains(t, out, "missing")
}

func TestClipWritesWindow(t *testing.T) {
	env := setupCLITestEnv(t)
	media := env.media(t, "ep01.mkv", 4)
	target := filepath.Join(env.dir, "clip.wav")

	out, _, err := runCLI(t, []string{"clip", media, "--out", target}, env.configPath)
	if err != nil {
		t.Fatalf("clip: %v", err)
	}
	requireContains(t, out, "Wrote 00:00:05")

	want, err := os.ReadFile(media + ".wav")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("clip size = %d, want %d", len(got), len(want))
	}
}

func TestRenderDetectionsFlagsStatus(t *testing.T) {
	hl := newHighlighter(&strings.Builder{})
	detections := []opening.Detection{
		{Path: "/media/a.mkv", Label: "Season 1", Score: 0.9, Confidence: 0.6},
		{Path: "/media/b.mkv", Label: "Season 2", Score: 0.3, Confidence: 0.02, LowConfidence: true},
	}
	out := renderDetections(detections, hl)
	requireContains(t, out, "a.mkv")
	requireContains(t, out, "0.600")
	requireContains(t, out, "low confidence")
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no ANSI escapes for non-terminal output:\n%s", out)
	}
}
