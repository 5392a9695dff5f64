package llm

// DefaultServices is the built-in service catalog
var DefaultServices = []Service{
	{
		ID:          "openai",
		DisplayName: "OpenAI",
		Icon:        "🧠",
		Protocol:    ProtocolOpenAI,
		Models: []Model{
			{ID: "gpt-4o", DisplayName: "GPT-4o", IsDefault: true},
			{ID: "gpt-4-turbo", DisplayName: "GPT-4 Turbo"},
			{ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo"},
		},
	},
	{
		ID:          "claude",
		DisplayName: "Anthropic Claude",
		Icon:        "🔮",
		Protocol:    ProtocolAnthropic,
		Models: []Model{
			{ID: "claude-3-opus-20240229", DisplayName: "Claude 3 Opus", IsDefault: true},
			{ID: "claude-3-sonnet-20240229", DisplayName: "Claude 3 Sonnet"},
			{ID: "claude-3-haiku-20240307", DisplayName: "Claude 3 Haiku"},
		},
	},
	{
		ID:          "deepseek",
		DisplayName: "DeepSeek",
		Icon:        "🔍",
		Protocol:    ProtocolOpenAI,
		Models: []Model{
			{ID: "deepseek-coder", DisplayName: "DeepSeek Coder", IsDefault: true},
			{ID: "deepseek-chat", DisplayName: "DeepSeek Chat"},
		},
	},
}

// DefaultRegistry builds and strictly validates the built-in catalog
func DefaultRegistry() (*Registry, error) {
	r, err := NewRegistry(DefaultServices)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
