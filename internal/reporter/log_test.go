package reporter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerpilot/internal/logger"
	"offerpilot/pkg/model"
)

func TestLogReporterLogsOnlyChanges(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(logger.NewWriter(&buf, zerolog.InfoLevel), 0)

	s := model.Snapshot{Phase: model.PhaseScanning, Total: 2}
	r.Update(s)
	r.Update(s)
	s.Elapsed = 10
	r.Update(s)
	r.Update(model.Snapshot{Phase: model.PhaseProcessing, Total: 2, Completed: 1})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Found: 2")
	assert.Contains(t, lines[1], "1 / 2")
}

func TestLogReporterHeartbeatAdvancesElapsed(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(logger.NewWriter(&buf, zerolog.InfoLevel), time.Second)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	assert.True(t, r.beat(), "no snapshot yet")
	assert.Zero(t, buf.Len())

	r.Update(model.Snapshot{Phase: model.PhaseProcessing, Total: 4, Completed: 1, Elapsed: 5 * time.Second})
	buf.Reset()

	now = now.Add(3 * time.Second)
	require.True(t, r.beat())
	assert.Contains(t, buf.String(), `"elapsed":"00:08"`)
	assert.Contains(t, buf.String(), `"completed":1`)
	assert.Contains(t, buf.String(), `"total":4`)

	buf.Reset()
	now = now.Add(4 * time.Second)
	require.True(t, r.beat())
	assert.Contains(t, buf.String(), `"elapsed":"00:12"`)

	r.Update(model.Snapshot{Phase: model.PhaseStopped, Total: 4, Completed: 4, Elapsed: 20 * time.Second})
	buf.Reset()
	assert.False(t, r.beat())
	assert.Zero(t, buf.Len())
}
