package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintBannerWithColor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	printBanner(&buf, true)
	output := buf.String()

	// Should contain ANSI escape codes
	if !strings.Contains(output, "\033[") {
		t.Fatal("expected ANSI escape codes in colored banner output")
	}

	// Should contain reset codes
	if !strings.Contains(output, "\033[0m") {
		t.Fatal("expected ANSI reset code in colored banner output")
	}

	// Should contain ASCII art fragments
	if !strings.Contains(output, `___`) {
		t.Fatal("expected ASCII art underscores in banner output")
	}
	if !strings.Contains(output, `|`) {
		t.Fatal("expected ASCII art pipes in banner output")
	}
}

func TestPrintBannerWithoutColor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	printBanner(&buf, false)
	output := buf.String()

	// Should NOT contain ANSI escape codes
	if strings.Contains(output, "\033[") {
		t.Fatal("expected no ANSI escape codes in plain banner output")
	}

	// Should still contain ASCII art fragments
	if !strings.Contains(output, `___`) {
		t.Fatal("expected ASCII art underscores in plain banner output")
	}
	if !strings.Contains(output, `|`) {
		t.Fatal("expected ASCII art pipes in plain banner output")
	}
}

func TestPrintBannerLineCount(t *testing.T) {
	t.Parallel()
	var plain, colored bytes.Buffer
	printBanner(&plain, false)
	printBanner(&colored, true)

	plainLines := strings.Count(plain.String(), "\n")
	coloredLines := strings.Count(colored.String(), "\n")
	if plainLines != coloredLines {
		t.Fatalf("expected same line count with and without color, got %d and %d", plainLines, coloredLines)
	}
	if !strings.Contains(plain.String(), `(_| | (_) | (_| |`) {
		t.Fatalf("expected godali lettering in banner, got:\n%s", plain.String())
	}
}
