// Package health reports whether the gateway's backing services are usable.
//
// A Checker reports Healthy, Degraded or Unhealthy. PingChecker adapts
// anything with a Ping(ctx) method, which covers the shared KV store and the
// records database. An Aggregator runs registered checkers concurrently under
// one deadline and folds them into an overall status, and the HTTP handlers
// expose that as /healthz (liveness) and /readyz (readiness with details).
//
//	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 2 * time.Second})
//	agg.Register(health.NewPingChecker("kv_store", kv))
//	agg.Register(health.NewPingChecker("records_db", db))
//	health.RegisterHandlers(mux, agg)
//
// A component that works but with reduced guarantees, such as a circuit
// that is open for one dependency, should report Degraded: readiness stays
// 200 so the instance keeps receiving traffic.
package health
