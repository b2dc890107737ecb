// Package service runs the serving side of a sensor node.
//
// A DeviceService owns the TCP transport, the interaction server, the
// subscription manager and the change reporter. It optionally advertises
// the node over mDNS and mirrors its state to MQTT.
//
//	svc, err := service.NewDeviceService(device, service.DeviceConfig{
//	    ListenAddress: ":5540",
//	    Logger:        slog.Default(),
//	})
//	err = svc.Run(ctx) // until ctx is cancelled
//
// The polling activity calls NotifyChanged after a local change (button
// press) so subscribers are reported before the next reporter tick.
package service
