package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"qiblago/pkg/logging"
)

// key=value or key="value with spaces"
var logRegex = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// maxParamLen drops long values such as session ids and file paths from the status line.
const maxParamLen = 20

// hiddenLogKeys never appear in the formatted line.
var hiddenLogKeys = map[string]bool{
	"level":     true,
	"component": true,
	"source":    true,
}

// handleLatestLog returns the last captured log line.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	line := logging.GlobalLogCapture.GetLastLine()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"log": formatLogLine(line),
	}); err != nil {
		slog.Error("Failed to write log response", "error", err)
	}
}

// formatLogLine turns a slog text line into "HH:MM:SS msg (k=v, k=v)".
// Parameters are sorted; unparseable lines are returned unchanged.
func formatLogLine(raw string) string {
	matches := logRegex.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return raw
	}

	var msg, clock string
	var params []string

	for _, m := range matches {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch {
		case key == "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				clock = t.Format("15:04:05")
			}
		case key == "msg":
			msg = val
		case hiddenLogKeys[key], len(val) > maxParamLen:
		default:
			params = append(params, fmt.Sprintf("%s=%s", key, val))
		}
	}

	if msg == "" {
		return raw
	}
	sort.Strings(params)

	out := msg
	if clock != "" {
		out = clock + " " + msg
	}
	if len(params) > 0 {
		out = fmt.Sprintf("%s (%s)", out, strings.Join(params, ", "))
	}
	return out
}
