package market

// Tick is a fully-populated, normalized feed event for one exchange.
// Optional-field merging happens at the ingestion boundary; the core
// never sees partial ticks.
type Tick struct {
	Exchange   string
	Price      float64
	Bid        float64
	Ask        float64
	ServerTime int64 // ms
	Trades     []Trade
}

// Quote is the current top-of-book view of one exchange.
type Quote struct {
	Exchange  string
	Price     float64
	Bid       float64
	Ask       float64
	Timestamp int64 // ms, client clock
}
