package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mash-protocol/mash-sensor/pkg/discovery"
)

// RunBrowse prints every node found until ctx is done.
func RunBrowse(ctx context.Context, browser discovery.Browser, w io.Writer) error {
	nodes, err := browser.Browse(ctx)
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}

	seen := 0
	for node := range nodes {
		seen++
		addr, err := NodeAddress(node)
		if err != nil {
			addr = "-"
		}
		types := make([]string, len(node.Info.DeviceTypes))
		for i, dt := range node.Info.DeviceTypes {
			types[i] = fmt.Sprintf("0x%04X", dt)
		}
		fmt.Fprintf(w, "%-24s %-10s %-22s %s [%s]\n",
			node.InstanceName, node.Info.SerialNumber, addr, node.Info.DeviceName, strings.Join(types, ","))
	}
	if seen == 0 {
		fmt.Fprintln(w, "No nodes found")
	}
	return nil
}
