package sim

// TickSnapshot is the per-tick stats frame published to the websocket feed
// and the stats recorder. Encoded with msgpack on the wire.
type TickSnapshot struct {
	Tick       uint64  `msgpack:"tick" json:"tick"`
	Entities   int     `msgpack:"entities" json:"entities"`
	Pairs      int     `msgpack:"pairs" json:"pairs"`
	Bins       int     `msgpack:"bins" json:"bins"`
	Regions    int     `msgpack:"regions" json:"regions"`
	CellSize   float64 `msgpack:"cell_size" json:"cell_size"`
	MaxBin     int     `msgpack:"max_bin" json:"max_bin"`
	TickMicros int64   `msgpack:"tick_us" json:"tick_us"`
}
