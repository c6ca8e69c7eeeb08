package gemini

import "interviewprep/ai/internal/llm"

// Register Gemini provider on package import
func init() {
	llm.RegisterProvider(providerName, func() (llm.Provider, error) {
		config, err := NewConfig()
		if err != nil {
			return nil, err
		}
		return NewClient(config)
	})
}
