package dsl

import "github.com/aretw0/parley/pkg/domain"

// ExchangeBuilder provides a fluent API for configuring one exchange.
type ExchangeBuilder struct {
	exchange domain.Exchange
	keywords map[string]string
	builder  *Builder
}

// Prompt sets the reply template of the exchange.
func (e *ExchangeBuilder) Prompt(text string) *ExchangeBuilder {
	e.exchange.Prompt = text
	return e
}

// Default sets the successor followed when no keyword matches.
func (e *ExchangeBuilder) Default(target string) *ExchangeBuilder {
	e.exchange.Default = target
	return e
}

// Keyword routes messages containing word to the target exchange.
func (e *ExchangeBuilder) Keyword(word, target string) *ExchangeBuilder {
	e.keywords[word] = target
	return e
}

// CaptureName marks the exchange as a name-capture step. The yes and no
// targets receive the turn depending on whether a known first name was
// found in the message.
func (e *ExchangeBuilder) CaptureName(yesTarget, noTarget string) *ExchangeBuilder {
	e.exchange.Type = domain.TypeName
	e.keywords["yes_name"] = yesTarget
	e.keywords["no_name"] = noTarget
	return e
}

// Queue marks the exchange as a human-handoff step.
func (e *ExchangeBuilder) Queue() *ExchangeBuilder {
	e.exchange.Type = domain.TypeQueue
	return e
}

// TangentStop marks the exchange as a tangent delivery point.
func (e *ExchangeBuilder) TangentStop() *ExchangeBuilder {
	e.exchange.Type = domain.TypeTangent
	return e
}

// Exchange hops back to the parent builder to declare another exchange.
func (e *ExchangeBuilder) Exchange(name string) *ExchangeBuilder {
	return e.builder.Exchange(name)
}

// Done returns the parent builder.
func (e *ExchangeBuilder) Done() *Builder {
	return e.builder
}

// Build returns the underlying domain.Exchange.
// Rank is assigned at seed time, not here.
func (e *ExchangeBuilder) Build() domain.Exchange {
	return e.exchange
}
