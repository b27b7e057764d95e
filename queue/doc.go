// Package queue distributes file imports over Redis.
//
// A producer pushes one ImportJob per file onto a list; any number of
// workers pop jobs, import the file and publish a JobResult on the job's
// result channel. Producers subscribe to that channel to collect the
// outcome of a batch.
//
// # Redis Key Schema
//
//   - binxgraph:import:queue - List of jobs (LPUSH/BRPOP), the default queue
//   - binxgraph:results:<jobID> - Pub/Sub channel for results of one batch
//   - binxgraph:worker:<id>:health - String with a TTL refreshed by workers
//   - binxgraph:workers - Integer counter of running workers
//
// # Usage
//
// Enqueueing a directory:
//
//	client, err := queue.NewRedisClient(queue.RedisOptions{URL: "redis://localhost:6379"})
//	files, _ := ingest.ListFiles(dir, "*.json")
//	jobID, err := queue.Enqueue(ctx, client, queue.DefaultQueue, files)
//
// Running a worker:
//
//	w := &queue.Worker{Client: client, Importer: importer}
//	err := w.Run(ctx)
package queue
