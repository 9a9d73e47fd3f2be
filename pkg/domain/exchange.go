package domain

// ExchangeType selects the behavior of an exchange during a turn.
type ExchangeType string

const (
	// TypeStandard matches keywords against the inbound message and falls
	// back to the default successor.
	TypeStandard ExchangeType = "standard"
	// TypeName scans the inbound message for a known first name and stores
	// it in the session data.
	TypeName ExchangeType = "name"
	// TypeQueue parks the session for manual handling and stays silent.
	TypeQueue ExchangeType = "queue"
	// TypeTangent delivers rotating one-off asides before following the
	// default successor.
	TypeTangent ExchangeType = "tangent"
)

// Normalize maps empty or unrecognized type tags to TypeStandard.
// New tags added by an admin surface degrade gracefully instead of
// dead-ending a session.
func (t ExchangeType) Normalize() ExchangeType {
	switch t {
	case TypeName, TypeQueue, TypeTangent:
		return t
	default:
		return TypeStandard
	}
}

// Exchange is a node in the dialogue graph.
type Exchange struct {
	// Name uniquely identifies the exchange.
	Name string `json:"name" yaml:"name"`

	// Prompt is the reply template, interpolated against session data.
	Prompt string `json:"prompt" yaml:"prompt"`

	// Default names the successor exchange when no keyword matches.
	// Empty means there is no fallback and the turn yields silence.
	Default string `json:"default,omitempty" yaml:"default,omitempty"`

	// Rank orders exchanges for presentation only; it never affects
	// transition logic.
	Rank int `json:"rank,omitempty" yaml:"rank,omitempty"`

	// Type selects the variant handler for this exchange.
	Type ExchangeType `json:"type,omitempty" yaml:"type,omitempty"`
}

// Tangent is a standalone aside delivered at most once per user,
// in ascending Rank order.
type Tangent struct {
	ID   int64  `json:"id" yaml:"id"`
	Rank int    `json:"rank" yaml:"rank"`
	Text string `json:"text" yaml:"text"`
}
