package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetForTest() {
	CloseAll()
	logsDir = ""
	opts = Options{}
	logLevel = LevelInfo
}

// TestAllCategoriesLog tests that all categories create log files when debug
// mode is on.
func TestAllCategoriesLog(t *testing.T) {
	resetForTest()
	tempDir := t.TempDir()

	cats := map[string]bool{
		"boot": true, "gateway": true, "commands": true, "player": true,
		"queue": true, "resolver": true, "spotify": true, "store": true,
	}
	err := Initialize(tempDir, Options{DebugMode: true, Level: "debug", Categories: cats})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetForTest()

	all := []Category{
		CategoryBoot, CategoryGateway, CategoryCommands, CategoryPlayer,
		CategoryQueue, CategoryResolver, CategorySpotify, CategoryStore,
	}
	for _, cat := range all {
		Get(cat).Info("test message for %s", cat)
	}
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(tempDir, "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	found := make(map[Category]bool)
	for _, e := range entries {
		for _, cat := range all {
			if strings.Contains(e.Name(), "_"+string(cat)+".log") {
				found[cat] = true
			}
		}
	}
	for _, cat := range all {
		if !found[cat] {
			t.Errorf("No log file created for category %s", cat)
		}
	}
}

func TestProductionModeWritesNothing(t *testing.T) {
	resetForTest()
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Options{DebugMode: false}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetForTest()

	Gateway("should be dropped")
	Player("should be dropped")
	CloseAll()

	if _, err := os.Stat(filepath.Join(tempDir, "logs")); !os.IsNotExist(err) {
		t.Error("Expected no logs directory in production mode")
	}
}

func TestCategoryFilter(t *testing.T) {
	resetForTest()
	tempDir := t.TempDir()

	cats := map[string]bool{"player": true, "resolver": false}
	if err := Initialize(tempDir, Options{DebugMode: true, Level: "debug", Categories: cats}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetForTest()

	if !IsCategoryEnabled(CategoryPlayer) {
		t.Error("player category should be enabled")
	}
	if IsCategoryEnabled(CategoryResolver) {
		t.Error("resolver category should be disabled")
	}
	// Unlisted categories default to enabled in debug mode.
	if !IsCategoryEnabled(CategoryQueue) {
		t.Error("unlisted category should default to enabled")
	}
}

func TestConfigureLevelParsing(t *testing.T) {
	resetForTest()
	defer resetForTest()

	cases := []struct {
		level string
		want  int
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tc := range cases {
		Configure(Options{Level: tc.level})
		if logLevel != tc.want {
			t.Errorf("Configure(%q): logLevel = %d, want %d", tc.level, logLevel, tc.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	resetForTest()
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Options{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetForTest()

	l := Get(CategoryPlayer)
	l.Debug("dropped debug")
	l.Info("dropped info")
	l.Warn("kept warn")
	l.Error("kept error")
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(tempDir, "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}
	var content []byte
	for _, e := range entries {
		if strings.Contains(e.Name(), "_player.log") {
			content, err = os.ReadFile(filepath.Join(tempDir, "logs", e.Name()))
			if err != nil {
				t.Fatalf("read log: %v", err)
			}
		}
	}
	text := string(content)
	if strings.Contains(text, "dropped") {
		t.Errorf("Log contains filtered entries:\n%s", text)
	}
	if !strings.Contains(text, "kept warn") || !strings.Contains(text, "kept error") {
		t.Errorf("Log missing warn/error entries:\n%s", text)
	}
}

func TestRequestLoggerFormat(t *testing.T) {
	r := WithRequestID(CategoryCommands, "abc123").WithField("guild", "g1")
	msg := r.formatMsg("play invoked")
	if !strings.Contains(msg, "req:abc123") {
		t.Errorf("missing request ID in %q", msg)
	}
	if !strings.Contains(msg, "guild") {
		t.Errorf("missing field in %q", msg)
	}
}
