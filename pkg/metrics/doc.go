/*
Package metrics provides mgs's Prometheus instrumentation, built on
github.com/prometheus/client_golang.

Metrics are package-level collectors registered at init time and exposed
via Handler() for scraping. Counters are split by storage-name and, where
relevant, by outcome (mgs_reads_total{storage,outcome}) so a single
dashboard can isolate one storage's read-through hit rate, write-behind
overflow rate, and drain health from the rest of the cluster. Timer gives
grainstore and drainer a one-line way to record operation and drain-cycle
durations.

RegisterComponent and UpdateComponent track named component health
independently of the metrics registry, backing the liveness and readiness
HTTP handlers.
*/
package metrics
