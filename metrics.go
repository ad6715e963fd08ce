package buywatch

import (
	"expvar"
	"runtime"
	"strconv"
)

var (
	appResponseCounts      = expvar.NewMap("app_http_responses_total")
	externalResponseCounts = expvar.NewMap("external_http_responses_total")
)

func init() {
	expvar.Publish("process_mem_bytes", expvar.Func(func() any { return readProcessMemory() }))
	expvar.Publish("heap_inuse_bytes", expvar.Func(func() any { return readHeapInUse() }))
}

func readProcessMemory() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Sys
}

func readHeapInUse() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapInuse
}

func incrementResponseCount(counter *expvar.Map, code int) {
	if counter == nil {
		return
	}
	counter.Add(strconv.Itoa(code), 1)
}
