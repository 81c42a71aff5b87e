package embedding

import (
	"docqa/internal/port"
)

// Provider bundles the primary text embedder with the optional multimodal
// embedder behind a single capability surface. It is constructed once at
// startup and shared read-only across requests.
type Provider struct {
	text       port.Embedder
	multimodal port.MultimodalEmbedder
}

// NewProvider wraps the embedders. multimodal may be nil; callers must
// check MultimodalEnabled before using the multimodal space.
func NewProvider(text port.Embedder, multimodal port.MultimodalEmbedder) *Provider {
	return &Provider{text: text, multimodal: multimodal}
}

// Text returns the primary text embedder.
func (p *Provider) Text() port.Embedder { return p.text }

// Multimodal returns the multimodal embedder; nil when the capability is
// absent.
func (p *Provider) Multimodal() port.MultimodalEmbedder { return p.multimodal }

// MultimodalEnabled reports whether the multimodal space is available for
// this process lifetime.
func (p *Provider) MultimodalEnabled() bool { return p.multimodal != nil }
