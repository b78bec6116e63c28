package container

// ContextualBuilder implements the fluent contextual binding API: when the
// consumer needs a dependency, give it a specific qualified binding instead.
//
//	b.When(container.KeyOf[*PhotoController]()).
//	    Needs(container.KeyOf[Filesystem]()).
//	    Give("s3")
//
// The consumer's declared parameter is rewritten at Build, before the
// registry is sealed, so the graph and its validation see the final wiring.
type ContextualBuilder struct {
	builder  *Builder
	consumer Key
	needs    Key
}

// Needs specifies which dependency of the consumer is redirected.
func (c *ContextualBuilder) Needs(dep Key) *ContextualBuilder {
	c.needs = dep
	return c
}

// Give names the qualifier whose binding the consumer receives.
func (c *ContextualBuilder) Give(qualifier string) *Builder {
	c.builder.give(c.consumer, c.needs, qualifier)
	return c.builder
}

// GiveValue supplies v as a dedicated external instance for the consumer.
// It is registered under a qualifier derived from the consumer key.
//
//	b.When(container.KeyOf[*Uploader]()).Needs(container.KeyOf[string]()).GiveValue("/tmp/photos")
func (c *ContextualBuilder) GiveValue(v any) *Builder {
	qualifier := "ctx:" + c.consumer.String()
	c.builder.Supply(Instance{Key: Key{Type: c.needs.Type, Qualifier: qualifier}, Value: v})
	return c.Give(qualifier)
}
