/*
Package dsl provides a fluent Go builder for constructing conversation
graphs programmatically.

It allows defining a graph in type-safe Go instead of an external YAML
file, which is handy for tests, embedded bots, and dynamically generated
flows.

Example usage:

	g := dsl.New()

	g.Start().
		Prompt("Hi! Want to hear some news?").
		Keyword("yes", "news").
		Default("bye")

	g.Exchange("news").
		Prompt("Here you go.").
		TangentStop().
		Default("bye")

	g.Exchange("bye").
		Prompt("See you around!")

	g.Tangent("Did you know parrots can mimic speech?")

	if err := g.Seed(ctx, bot.Stores()); err != nil {
		// ...
	}
*/
package dsl
