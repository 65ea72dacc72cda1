package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

var mu sync.Mutex

// useColor reports whether stdout is an interactive terminal.
// Checked on every call because tests swap os.Stdout for a pipe.
func useColor() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(color, s string) string {
	if !useColor() {
		return s
	}
	return color + s + colorReset
}

func line(color, level, tag, msg string) {
	mu.Lock()
	defer mu.Unlock()
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(os.Stdout, "%s %s %s %s\n",
		paint(colorGray, ts),
		paint(color, fmt.Sprintf("%-4s", level)),
		paint(colorBold, fmt.Sprintf("[%s]", tag)),
		msg,
	)
}

// Info prints a neutral status line.
func Info(tag, msg string) { line(colorBlue, "INFO", tag, msg) }

// Success prints a completion line.
func Success(tag, msg string) { line(colorGreen, "OK", tag, msg) }

// Warn prints a recoverable problem.
func Warn(tag, msg string) { line(colorYellow, "WARN", tag, msg) }

// Error prints a failure.
func Error(tag, msg string) { line(colorRed, "ERR", tag, msg) }

// Banner prints the startup banner with the build version.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	mu.Lock()
	defer mu.Unlock()
	title := "Lumia Router " + version
	bar := strings.Repeat("=", len(title)+4)
	fmt.Fprintln(os.Stdout, paint(colorCyan, bar))
	fmt.Fprintln(os.Stdout, paint(colorCyan+colorBold, "  "+title))
	fmt.Fprintln(os.Stdout, paint(colorCyan, bar))
}

// Section prints a section header.
func Section(title string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(os.Stdout, "\n%s\n", paint(colorBold, "== "+title+" =="))
}

// Stats prints a key/value statistic. Integers get thousands separators.
func Stats(key string, value interface{}) {
	var v string
	switch n := value.(type) {
	case int:
		v = humanize.Comma(int64(n))
	case int32:
		v = humanize.Comma(int64(n))
	case int64:
		v = humanize.Comma(n)
	case uint64:
		v = humanize.Comma(int64(n))
	case float64:
		v = humanize.Commaf(n)
	default:
		v = fmt.Sprint(value)
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(os.Stdout, "  %-24s %s\n", key+":", paint(colorCyan, v))
}

// Server prints the listen address.
func Server(addr string) {
	line(colorGreen, "OK", "Server", fmt.Sprintf("Listening on http://%s", addr))
}
