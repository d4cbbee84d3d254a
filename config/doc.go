// Package config provides the configuration-access layer over BSON value
// trees: a DocsMap of named entries with requested-name tracking, typed
// fetches, and the Dict container with "__default__" fallback.
//
// Lookup of an absent name fails with a not-found error rather than
// returning a zero value:
//
//	v, err := docs.Get("USERVER_RPS_LIMIT")
//	limit, err := config.GetAs[int64](docs, "USERVER_RPS_LIMIT")
//
// Dict entries fall back to the DefaultKey entry when the requested key is
// absent, which is how per-service overrides with a shared default are
// expressed:
//
//	d := config.NewDict("rps-by-service", map[string]int64{
//		config.DefaultKey: 100,
//		"billing":         500,
//	})
//	n, _ := d.Get("unknown-service") // 100
//
// The package logs configuration access at debug level through a zap logger;
// it is a no-op logger unless SetLogger is called.
package config
