// Package coordinator runs the configured menu imports in the background.
//
// The coordinator owns scheduling only. Fetching, reconciling and status
// recording are done by importer.Service.
//
//   - An initial pass runs as soon as Start is called
//   - Later passes run on a ticker with a jittered interval
//   - Each pass imports every menu that is due, one at a time
//
// A menu is due when it has never completed an import, or when its configured
// interval has elapsed since the last completed import. Failed imports are
// retried on the next pass.
//
// # Usage
//
//	coord := coordinator.New(importSvc, statusPersistence, cfg.Menus)
//	go func() {
//	    if err := coord.Start(ctx); err != nil {
//	        slog.Error("Coordinator failed", "error", err)
//	    }
//	}()
//	...
//	_ = coord.Stop()
package coordinator
