package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/Iron-Ham/framegrab/internal/app"
	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	"github.com/Iron-Ham/framegrab/internal/logging"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View framegrab logs",
	Long: `View and filter framegrab's log file.

Every invocation appends to the same log in the state directory, so the
history of a recording started in one terminal and stopped in another can be
read in one place.

Examples:
  # Show the last 50 entries
  framegrab logs

  # Show everything logged for one recording
  framegrab logs -s 0b6f... -n 0

  # Follow logs in real-time
  framegrab logs -f

  # Filter by log level
  framegrab logs --level warn

  # Show logs from the last hour
  framegrab logs --since 1h

  # Search for specific patterns
  framegrab logs --grep "failed|killed"`,
	Args: cli.Args(cobra.NoArgs),
	RunE: runLogs,
}

var (
	logsSessionID string
	logsOperation string
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsSince     string
	logsGrep      string
	logsFormat    string
)

const followPollInterval = 100 * time.Millisecond

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsSessionID, "session", "s", "", "Only entries for this recording session ID")
	logsCmd.Flags().StringVar(&logsOperation, "op", "", "Only entries for one operation (start, stop, pause, resume, screenshot, hud)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries whose message matches pattern (regex)")
	logsCmd.Flags().StringVar(&logsFormat, "format", "text", "Output format: text or json")
}

// logQuery is the parsed form of the logs flags.
type logQuery struct {
	filter logging.LogFilter
	grep   *regexp.Regexp
	tail   int
	format string
}

func (q logQuery) matches(entry logging.LogEntry) bool {
	if !q.filter.Matches(entry) {
		return false
	}
	return q.grep == nil || q.grep.MatchString(entry.Message)
}

func parseLogQuery(now time.Time) (logQuery, error) {
	q := logQuery{
		filter: logging.LogFilter{
			SessionID: logsSessionID,
			Operation: logsOperation,
		},
		tail:   logsTail,
		format: strings.ToLower(logsFormat),
	}

	if q.format != "text" && q.format != "json" {
		return q, cli.Usagef("unsupported format %q (supported: text, json)", logsFormat)
	}
	if logsLevel != "" {
		q.filter.Level = logging.ParseLevel(logsLevel)
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return q, cli.Usagef("invalid duration format: %v", err)
		}
		q.filter.Since = now.Add(-d)
	}
	if logsGrep != "" {
		re, err := regexp.Compile(logsGrep)
		if err != nil {
			return q, cli.Usagef("invalid grep pattern: %v", err)
		}
		q.grep = re
	}
	return q, nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	q, err := parseLogQuery(time.Now())
	if err != nil {
		return err
	}

	a, err := app.Load()
	if err != nil {
		return err
	}
	defer a.Close()

	logPath := app.LogPath(a.StateDir)
	out := cmd.OutOrStdout()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No logs found.")
		fmt.Fprintln(out, "Logs are stored at:", logPath)
		return nil
	}

	if logsFollow {
		return followLogs(cmd.Context(), out, logPath, q)
	}
	return displayLogs(out, logPath, q)
}

// displayLogs reads the log file and writes the filtered tail.
func displayLogs(w io.Writer, logPath string, q logQuery) error {
	entries, err := logging.ReadEntries(logPath)
	if err != nil {
		return err
	}

	var matched []logging.LogEntry
	for _, entry := range entries {
		if q.matches(entry) {
			matched = append(matched, entry)
		}
	}

	if q.tail > 0 && len(matched) > q.tail {
		matched = matched[len(matched)-q.tail:]
	}

	if len(matched) == 0 && q.format == "text" {
		_, err := fmt.Fprintln(w, "No matching log entries found.")
		return err
	}
	return logging.WriteEntries(w, matched, q.format)
}

// followLogs implements tail -f behavior for the log file
func followLogs(ctx context.Context, w io.Writer, logPath string, q logQuery) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(w, "Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	var partial string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				return fmt.Errorf("error reading log file: %w", err)
			}
			// Keep an unterminated line until the rest of it is written.
			partial += line
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(followPollInterval):
			}
			continue
		}

		line, partial = partial+line, ""
		entry, err := logging.ParseEntry(line)
		if err != nil || !q.matches(entry) {
			continue
		}
		if err := logging.WriteEntries(w, []logging.LogEntry{entry}, q.format); err != nil {
			return err
		}
	}
}
