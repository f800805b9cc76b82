package events

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"dotmac/internal/realtime"

	"github.com/stretchr/testify/require"
)

func TestPrinterWritesJsonLines(t *testing.T) {
	var out bytes.Buffer
	printEvent := newPrinter(&out)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	printEvent(realtime.Event{Type: realtime.EventAlertRaised, Data: json.RawMessage(`{"id":"a1"}`), Timestamp: at})
	printEvent(realtime.Event{Type: realtime.EventAlertCleared, Timestamp: at})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.JSONEq(t, `{"type":"alert.raised","data":{"id":"a1"},"timestamp":"2026-01-01T00:00:00Z"}`, lines[0])
	require.JSONEq(t, `{"type":"alert.cleared","timestamp":"2026-01-01T00:00:00Z"}`, lines[1])
}
