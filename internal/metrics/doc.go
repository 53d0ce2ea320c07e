// Package metrics provides run, operation and repository merge metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never needs nil checks:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	engine := repository.NewEngine(fs).WithRecorder(recorder)
//
// OperationObserver adapts a Recorder to the executor's observer hooks. After a
// run the registry can be dumped with WriteTextfile for the node exporter
// textfile collector.
package metrics
