// Package allowlist holds the sources of business identifiers permitted to use the relay.
//
// Every source implements Checker. Sources are built once at startup and only read
// afterwards: StaticList (flags or a YAML file), SQLiteStore (administered with the
// allowlist CLI) and RedisChecker (a shared Redis set).
package allowlist
