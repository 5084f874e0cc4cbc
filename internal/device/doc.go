// Package device provides the device registry of the telemetry core.
//
// A device belongs to exactly one user. Who may register, list, edit and
// delete devices is decided by the pure functions in package auth; the
// Registry asks them before every write and then applies the write
// conditionally on the ownership it observed, so a concurrent owner
// reassignment makes a stale edit fail instead of landing.
//
//	┌──────────────┐    ┌───────────────┐    ┌──────────────────┐
//	│  REST API    │───▶│   Registry    │───▶│  SQLiteRepository│
//	│ (handlers)   │    │ auth.Decide*  │    │  devices table   │
//	└──────────────┘    └───────┬───────┘    └──────────────────┘
//	                            │ lifecycle events
//	                            ▼
//	                     MQTT  <prefix>/devices/<id>/events
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo, identity)
//	registry.SetLogger(logger)
//	registry.SetPublisher(mqttClient)
//
//	dev, err := registry.AddDevice(ctx, actor, device.AddInput{
//	    Name:     "boiler-sensor",
//	    Location: "plant room",
//	})
//
// Deleting a device removes its data points (ON DELETE CASCADE).
package device
