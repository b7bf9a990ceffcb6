package models

// ResolverStrategy records how the sender address was obtained.
type ResolverStrategy string

const (
	StrategyDirect    ResolverStrategy = "direct"
	StrategyDirectory ResolverStrategy = "resolved_via_directory"
)

// IdentityResolution is the outcome of resolving a masked address.
// Negative marks an address that could not be resolved; negative entries
// are cached with a much shorter lifetime than positive ones.
type IdentityResolution struct {
	Phone    string `json:"phone"`
	JID      string `json:"jid"`
	Negative bool   `json:"negative,omitempty"`
}

// PipelineState is the mutable record threaded through the ingestion
// stages. It is created fresh per event and discarded after the final
// stage; it is never persisted as-is.
type PipelineState struct {
	RawEvent            *IncomingWebhookEvent
	ChatID              int64
	Phone               string
	ContactName         string
	MessageTimestampISO string
	SourceJID           string
	ResolvedJID         string
	ResolverStrategy    ResolverStrategy
	ResolverLatencyMs   int64
	ResolverError       string
	MessageContent      string
	MessageType         MessageType
	MediaURL            string
	IsAIPaused          bool
	ShouldContinue      bool
}

// NewPipelineState seeds the per-event state with its documented defaults:
// processing continues until a stage stops it, and the resolver strategy is
// "direct" until the directory is consulted.
func NewPipelineState(event *IncomingWebhookEvent) *PipelineState {
	return &PipelineState{
		RawEvent:         event,
		SourceJID:        event.Key.RemoteJID,
		ResolverStrategy: StrategyDirect,
		ShouldContinue:   true,
	}
}

// StageDelta is the partial output of one pipeline stage. A nil field means
// "not computed by this stage"; the reducer in Apply keeps the previous
// value in that case. This lets each stage return only what it produced
// without knowing the rest of the state shape.
type StageDelta struct {
	RawEvent            *IncomingWebhookEvent
	ChatID              *int64
	Phone               *string
	ContactName         *string
	MessageTimestampISO *string
	SourceJID           *string
	ResolvedJID         *string
	ResolverStrategy    *ResolverStrategy
	ResolverLatencyMs   *int64
	ResolverError       *string
	MessageContent      *string
	MessageType         *MessageType
	MediaURL            *string
	IsAIPaused          *bool
	ShouldContinue      *bool
}

// Apply merges a stage's partial output into the state. The raw event
// always takes the latest non-nil value.
func (s *PipelineState) Apply(d *StageDelta) {
	if d == nil {
		return
	}
	if d.RawEvent != nil {
		s.RawEvent = d.RawEvent
	}
	if d.ChatID != nil {
		s.ChatID = *d.ChatID
	}
	if d.Phone != nil {
		s.Phone = *d.Phone
	}
	if d.ContactName != nil {
		s.ContactName = *d.ContactName
	}
	if d.MessageTimestampISO != nil {
		s.MessageTimestampISO = *d.MessageTimestampISO
	}
	if d.SourceJID != nil {
		s.SourceJID = *d.SourceJID
	}
	if d.ResolvedJID != nil {
		s.ResolvedJID = *d.ResolvedJID
	}
	if d.ResolverStrategy != nil {
		s.ResolverStrategy = *d.ResolverStrategy
	}
	if d.ResolverLatencyMs != nil {
		s.ResolverLatencyMs = *d.ResolverLatencyMs
	}
	if d.ResolverError != nil {
		s.ResolverError = *d.ResolverError
	}
	if d.MessageContent != nil {
		s.MessageContent = *d.MessageContent
	}
	if d.MessageType != nil {
		s.MessageType = *d.MessageType
	}
	if d.MediaURL != nil {
		s.MediaURL = *d.MediaURL
	}
	if d.IsAIPaused != nil {
		s.IsAIPaused = *d.IsAIPaused
	}
	if d.ShouldContinue != nil {
		s.ShouldContinue = *d.ShouldContinue
	}
}

// EffectiveJID returns the address later stages should treat as the sender:
// the directory-resolved JID when one exists, otherwise the raw source.
func (s *PipelineState) EffectiveJID() string {
	if s.ResolvedJID != "" {
		return s.ResolvedJID
	}
	return s.SourceJID
}

// Helpers for building deltas without temporaries.

func String(v string) *string { return &v }

func Int64(v int64) *int64 { return &v }

func Bool(v bool) *bool { return &v }

func Type(v MessageType) *MessageType { return &v }

func Strategy(v ResolverStrategy) *ResolverStrategy { return &v }
