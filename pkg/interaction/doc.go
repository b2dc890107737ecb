// Package interaction serves protocol requests against the attribute model.
//
// Four operations exist between controllers and the device:
//
//   - Read: current attribute values of one cluster, each with its data version
//   - Write: rejected with ReadOnly; every attribute of this node is read-only
//   - Subscribe: register for change reports (and Unsubscribe, sent as a
//     Subscribe to endpoint 0, cluster 0)
//   - Invoke: execute a cluster command
//
// # Server Usage
//
//	server := interaction.NewServer(node, subs, interaction.Config{
//	    OnChange: reporter.NotifyChanged,
//	})
//	resp := server.HandleRequest(ctx, sessionID, req)
//
// A Read names the attributes it wants; an empty list reads every attribute
// the cluster declares. A Read may carry the data version the controller
// already holds; when it still matches, values are left out of the response.
// A failing attribute in a multi-attribute read is reported in the statuses
// map and does not fail the rest. A single-attribute read that fails returns
// the failure as the response status.
//
// # Client Usage
//
//	client := interaction.NewClient(conn)
//	go client.Run(ctx)
//	values, err := client.Read(ctx, 2, clusters.TemperatureMeasurementID, nil)
//	subID, priming, err := client.Subscribe(ctx, 1, clusters.OnOffID, nil)
//	err = client.Invoke(ctx, 1, clusters.OnOffID, clusters.CmdToggle, nil)
package interaction
