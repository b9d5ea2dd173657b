package clearing

const (
	// EngineVersion is the current version of the clearing engine
	EngineVersion = "v2.0.0"

	// MaxOrders is the number of order slots per trader account
	MaxOrders = 32

	// MaxPositions is the number of position slots per trader account
	MaxPositions = 8
)
