package llm

import "strings"

// Family holds the limits shared by every model whose lower-cased name starts
// with Prefix, or contains it when Anywhere is set.
type Family struct {
	Prefix   string
	Anywhere bool
	Caps     ModelCapabilities
}

// Lookup returns the capabilities of the first family in table matching
// model, or def when none does. Order table from most to least specific.
func Lookup(table []Family, model string, def ModelCapabilities) ModelCapabilities {
	lower := strings.ToLower(model)
	for _, f := range table {
		if strings.HasPrefix(lower, f.Prefix) || (f.Anywhere && strings.Contains(lower, f.Prefix)) {
			return f.Caps
		}
	}
	return def
}

// JSONInstruction asks the model for a bare JSON object. Providers append it
// to the system prompt when they cannot switch the response format natively.
const JSONInstruction = "Respond with a single JSON object and nothing else."

// WithJSONInstruction appends [JSONInstruction] to system unless present.
func WithJSONInstruction(system string) string {
	if strings.Contains(system, JSONInstruction) {
		return system
	}
	return strings.TrimSpace(system + "\n\n" + JSONInstruction)
}
