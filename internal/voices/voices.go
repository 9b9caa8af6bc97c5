// Package voices holds the static text-to-speech voice catalog. The catalog is
// fetched once by clients and immutable for the session.
package voices

// Model describes a single synthesis voice.
type Model struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

// catalog lists the Deepgram Aura voices the demo offers. The voice ID doubles
// as the provider model name.
var catalog = []Model{
	{ID: "aura-luna-en", Name: "Luna (Female US)", Language: "en-US"},
	{ID: "aura-stella-en", Name: "Stella (Female US)", Language: "en-US"},
	{ID: "aura-asteria-en", Name: "Asteria (Female US)", Language: "en-US"},
	{ID: "aura-athena-en", Name: "Athena (Female UK)", Language: "en-GB"},
	{ID: "aura-hera-en", Name: "Hera (Female US)", Language: "en-US"},
	{ID: "aura-zeus-en", Name: "Zeus (Male US)", Language: "en-US"},
	{ID: "aura-arcas-en", Name: "Arcas (Male US)", Language: "en-US"},
	{ID: "aura-orion-en", Name: "Orion (Male US)", Language: "en-US"},
	{ID: "aura-perseus-en", Name: "Perseus (Male US)", Language: "en-US"},
	{ID: "aura-helios-en", Name: "Helios (Male UK)", Language: "en-GB"},
}

// All returns a copy of the catalog.
func All() []Model {
	out := make([]Model, len(catalog))
	copy(out, catalog)
	return out
}

// Default returns the fallback voice used when a request names none.
func Default() Model { return catalog[0] }

// Find returns the voice with the given ID, falling back to Default when the
// ID is unknown or empty.
func Find(id string) Model {
	for _, v := range catalog {
		if v.ID == id {
			return v
		}
	}
	return Default()
}
