package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clipstream/auth"
)

// handleMetrics renders the engine counters in Prometheus text exposition
// format. The rendering is dependency-free on purpose: a handful of counters
// does not justify pulling in a client library and a global registry.
func (a *API) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(renderMetrics(a.engine.MetricsSnapshot())))
}

func renderMetrics(snapshot auth.MetricsSnapshot) string {
	var b strings.Builder
	b.Grow(2048)

	for _, def := range auth.MetricDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
