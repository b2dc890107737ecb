package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-sensor/pkg/log"
	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

const sessionA = "3f2a9c1e-0000-4000-8000-000000000001"

func ptr[T any](v T) *T { return &v }

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// writeTestLog writes a short capture: a read on the temperature endpoint,
// its response, a local sample, a session close and a bus error.
func writeTestLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device.mlog")
	fl, err := log.NewFileLogger(path)
	require.NoError(t, err)

	req, err := wire.NewRequest(7, wire.OpRead, 2, 0x0402, wire.ReadPayload{AttributeIDs: []uint16{0}})
	require.NoError(t, err)
	resp, err := wire.NewResponse(7, wire.StatusSuccess, nil)
	require.NoError(t, err)

	events := []log.Event{
		log.RequestEvent(sessionA, req),
		log.ResponseEvent(sessionA, resp, 1500*time.Microsecond),
		log.NewSampleEvent(log.SampleEvent{
			Temperature: ptr(float32(24.97)),
			Humidity:    ptr(float32(39.35)),
			OnOff:       true,
			ButtonEdge:  true,
		}),
		log.StateEvent(sessionA, log.StateEntitySession, "OPEN", "CLOSED", "peer closed"),
		log.NewSampleEvent(log.SampleEvent{OnOff: true, BusError: "hal: no device at address"}),
	}
	for i := range events {
		events[i].Timestamp = baseTime.Add(time.Duration(i) * time.Second)
		fl.Log(events[i])
	}
	require.NoError(t, fl.Close())
	return path
}

func TestRunView(t *testing.T) {
	path := writeTestLog(t)

	var out bytes.Buffer
	require.NoError(t, RunView(path, log.Filter{}, &out))
	text := out.String()

	assert.Contains(t, text, "2026-03-01T12:00:00.000000Z [session:3f2a9c1e] IN    WIRE REQUEST")
	assert.Contains(t, text, "  Operation: Read")
	assert.Contains(t, text, "  Path: 2/0x0402")
	assert.Contains(t, text, "  Status: SUCCESS (0)")
	assert.Contains(t, text, "  Duration: 1.500ms")
	assert.Contains(t, text, "[session:-] LOCAL DEVICE Sample")
	assert.Contains(t, text, "  Temperature: 24.97 °C")
	assert.Contains(t, text, "  Button: pressed")
	assert.Contains(t, text, "  Temperature: null")
	assert.Contains(t, text, "  BusError: hal: no device at address")
	assert.Contains(t, text, "  OPEN -> CLOSED")
	assert.Contains(t, text, "  Reason: peer closed")
}

func TestRunViewFiltered(t *testing.T) {
	path := writeTestLog(t)
	filter, err := FilterFlags{Category: "sample"}.Filter()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, RunView(path, filter, &out))
	assert.Equal(t, 2, strings.Count(out.String(), "Sample\n"))
	assert.NotContains(t, out.String(), "REQUEST")
}

func TestRunViewMissingFile(t *testing.T) {
	err := RunView(filepath.Join(t.TempDir(), "none.mlog"), log.Filter{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "failed to open log file")
}

func TestFilterFlags(t *testing.T) {
	f, err := FilterFlags{
		SessionID: sessionA,
		TimeStart: "2026-03-01T12:00:00Z",
		TimeEnd:   "2026-03-01T13:00:00Z",
		Layer:     "Wire",
		Direction: "in",
		Category:  "message",
		Endpoint:  "2",
		Cluster:   "0x0402",
	}.Filter()
	require.NoError(t, err)

	assert.Equal(t, sessionA, f.SessionID)
	assert.Equal(t, log.LayerWire, *f.Layer)
	assert.Equal(t, log.DirectionIn, *f.Direction)
	assert.Equal(t, log.CategoryMessage, *f.Category)
	assert.Equal(t, uint16(2), *f.EndpointID)
	assert.Equal(t, uint32(0x0402), *f.ClusterID)
	assert.True(t, f.TimeStart.Equal(baseTime))

	bad := []FilterFlags{
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
		{Layer: "physical"},
		{Direction: "sideways"},
		{Category: "control"},
		{Endpoint: "70000"},
		{Cluster: "cluster"},
	}
	for _, flags := range bad {
		_, err := flags.Filter()
		assert.Error(t, err, "%+v", flags)
	}
}

func TestRunFilter(t *testing.T) {
	path := writeTestLog(t)
	output := filepath.Join(t.TempDir(), "filtered.mlog")
	filter, err := FilterFlags{SessionID: sessionA}.Filter()
	require.NoError(t, err)

	var msg bytes.Buffer
	require.NoError(t, RunFilter(path, output, filter, &msg))
	assert.Equal(t, "Filtered 3 events to "+output+"\n", msg.String())

	stats, err := CollectStats(output)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEvents)
	assert.Zero(t, stats.Samples)
}

func TestExportJSONL(t *testing.T) {
	path := writeTestLog(t)

	var out bytes.Buffer
	require.NoError(t, Export(path, "jsonl", log.Filter{}, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)

	var ev log.Event
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &ev))
	require.NotNil(t, ev.Sample)
	assert.Equal(t, float32(24.97), *ev.Sample.Temperature)
	assert.True(t, ev.Timestamp.Equal(baseTime.Add(2*time.Second)))
}

func TestExportCSV(t *testing.T) {
	path := writeTestLog(t)

	var out bytes.Buffer
	require.NoError(t, Export(path, "csv", log.Filter{}, &out))
	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"2026-03-01T12:00:00.000000Z", sessionA, "IN", "WIRE", "MESSAGE", "REQUEST",
		"7", "2", "0x0402", "", "", "", "",
	}, rows[1])
	assert.Equal(t, "SUCCESS", rows[2][9])
	assert.Equal(t, []string{"24.97", "39.35", "true"}, rows[3][10:])
}

func TestExportUnknownFormat(t *testing.T) {
	path := writeTestLog(t)
	err := Export(path, "xml", log.Filter{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown format")
}

func TestCollectStats(t *testing.T) {
	path := writeTestLog(t)

	stats, err := CollectStats(path)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalEvents)
	assert.Equal(t, 2, stats.EventsByLayer[log.LayerWire])
	assert.Equal(t, 2, stats.EventsByLayer[log.LayerDevice])
	assert.Equal(t, 1, stats.EventsByCategory[log.CategoryState])
	assert.Equal(t, 2, stats.Samples)
	assert.Equal(t, 1, stats.ButtonEdges)
	assert.Equal(t, 1, stats.BusErrors)
	assert.Equal(t, 1, stats.Temperature.Count)
	assert.Equal(t, float32(24.97), stats.Temperature.Max)
	assert.True(t, stats.LastOnOff)
	assert.Equal(t, 4*time.Second, stats.TimeRange.End.Sub(stats.TimeRange.Start))

	require.Contains(t, stats.Sessions, sessionA)
	sess := stats.Sessions[sessionA]
	assert.Equal(t, 3, sess.Events)
	assert.Equal(t, 1, sess.Requests)
	assert.Equal(t, 3*time.Second, sess.LastSeen.Sub(sess.FirstSeen))
}

func TestRunStats(t *testing.T) {
	path := writeTestLog(t)

	var out bytes.Buffer
	require.NoError(t, RunStats(path, &out))
	text := out.String()
	assert.Contains(t, text, "Total events: 5")
	assert.Contains(t, text, "Button edges: 1")
	assert.Contains(t, text, "Temperature:  24.97 .. 24.97 °C")
	assert.Contains(t, text, "Sessions (1):")
	assert.Contains(t, text, "3f2a9c1e  events=3 requests=1 notifications=0 duration=3s")
}

func TestRunStatsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mlog")
	fl, err := log.NewFileLogger(path)
	require.NoError(t, err)
	require.NoError(t, fl.Close())

	var out bytes.Buffer
	require.NoError(t, RunStats(path, &out))
	assert.Equal(t, "Total events: 0\n", out.String())
}
