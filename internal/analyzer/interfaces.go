package analyzer

// SignalExtractor turns a decoded capture into raw forensic signals.
// Implementations hold no mutable state and are safe for concurrent use.
type SignalExtractor interface {
	Extract(img *RawImage, opts ExtractOptions) Signals
}
