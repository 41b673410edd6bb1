package provider

import "context"

// Fake is a scriptable in-process provider used in tests and the "fake"
// config provider type. When Respond is nil it returns a static low-stakes
// answer.
type Fake struct {
	ProviderName string
	Respond      func(question, recordContext, systemPrompt string) (*Answer, error)
	Calls        int
}

// NewFake creates a fake provider with a static answer.
func NewFake(name string) *Fake {
	return &Fake{ProviderName: name}
}

func (f *Fake) Name() string {
	if f.ProviderName == "" {
		return "fake"
	}
	return f.ProviderName
}

func (f *Fake) Analyze(ctx context.Context, question, recordContext, systemPrompt string) (*Answer, error) {
	f.Calls++
	if f.Respond != nil {
		return f.Respond(question, recordContext, systemPrompt)
	}
	return &Answer{
		Summary:    "No notable pattern found in the provided records.",
		Confidence: ConfidenceMedium,
	}, nil
}
