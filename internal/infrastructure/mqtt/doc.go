// Package mqtt announces telemetry core events on an MQTT broker.
//
// The core only publishes. Each accepted data point is announced on
// {prefix}/devices/{device_id}/data and device lifecycle changes on
// {prefix}/devices/{device_id}/events. The client keeps a retained
// {prefix}/system/status message with a Last Will so subscribers can tell a
// crash from a graceful shutdown.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishDeviceData("dev-1a2b3c4d", point)
//
// Connection loss is handled by paho's auto-reconnect; publishes made while
// disconnected fail fast with ErrNotConnected.
package mqtt
