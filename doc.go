// Package hitmerge aggregates search hits produced by many worker nodes
// into a single globally sorted result set.
//
// Each worker scans disjoint shard regions of the target database,
// collects per-region hits into chunks, and merges the chunks into a
// node-local sorted list. When a worker finishes, it drains the list and
// ships the hits to the master in size-capped wire messages. The master
// inserts every received hit into a balanced tree and renders the final
// report once all hits have arrived.
//
// Quick start:
//
//	hub := mem.NewHub(2)
//	master, _ := hitmerge.NewMaster(hub.Endpoint(0))
//	worker, _ := hitmerge.NewWorker(hub.Endpoint(1), 0)
//
//	go worker.Run(ctx, regions, scan)
//	...
//	_ = master.Serve(ctx, expected)
//	_, _ = master.WriteReport(os.Stdout, report.FormatTSV)
package hitmerge
