// Package influxdb mirrors accepted telemetry into InfluxDB v2.
//
// SQLite stays the system of record; this package is an append-only side
// channel for dashboards. Writes are batched and non-blocking, so a slow or
// unavailable InfluxDB never delays a submission.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading("dev-1a2b3c4d", "usr-9f8e7d6c", payload, time.Now())
package influxdb
