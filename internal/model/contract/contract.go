package contract

// InvokeRequest is a single prompt sent to an engine. Engine names a registry
// entry, not a provider model id.
type InvokeRequest struct {
	Engine    string `json:"engine"`
	System    string `json:"system,omitempty"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// Usage is the token accounting a provider reports for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// InvokeResult is the raw model output plus its usage. Text is unparsed; the
// classification parser owns turning it into structure.
type InvokeResult struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}
