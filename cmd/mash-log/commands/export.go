package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mash-protocol/mash-sensor/pkg/log"
)

// RunExport exports the events of path matching filter to output (stdout
// when empty) as jsonl or csv.
func RunExport(path, format, output string, filter log.Filter) error {
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return Export(path, format, filter, w)
}

// Export writes the events of path matching filter to w.
func Export(path, format string, filter log.Filter, w io.Writer) error {
	switch format {
	case "jsonl":
		return exportJSONL(path, filter, w)
	case "csv":
		return exportCSV(path, filter, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(path string, filter log.Filter, w io.Writer) error {
	encoder := json.NewEncoder(w)
	return forEach(path, filter, func(event log.Event) error {
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
}

var csvHeader = []string{
	"timestamp", "session_id", "direction", "layer", "category", "type",
	"message_id", "endpoint", "cluster", "status", "temperature", "humidity", "on_off",
}

func exportCSV(path string, filter log.Filter, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	err := forEach(path, filter, func(event log.Event) error {
		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	})
	cw.Flush()
	if err != nil {
		return err
	}
	return cw.Error()
}

func csvRow(event log.Event) []string {
	row := make([]string, len(csvHeader))
	row[0] = event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	row[1] = event.SessionID
	row[2] = event.Direction.String()
	row[3] = event.Layer.String()
	row[4] = event.Category.String()
	row[5] = eventType(event)

	if msg := event.Message; msg != nil {
		if msg.MessageID != 0 {
			row[6] = strconv.FormatUint(uint64(msg.MessageID), 10)
		}
		if msg.EndpointID != nil {
			row[7] = strconv.Itoa(int(*msg.EndpointID))
		}
		if msg.ClusterID != nil {
			row[8] = fmt.Sprintf("0x%04X", *msg.ClusterID)
		}
		if msg.Status != nil {
			row[9] = msg.Status.String()
		}
	}
	if s := event.Sample; s != nil {
		if s.Temperature != nil {
			row[10] = strconv.FormatFloat(float64(*s.Temperature), 'f', 2, 32)
		}
		if s.Humidity != nil {
			row[11] = strconv.FormatFloat(float64(*s.Humidity), 'f', 2, 32)
		}
		row[12] = strconv.FormatBool(s.OnOff)
	}
	return row
}
