package ai

// Capability is a declarative token stating what a model (or server) can do.
type Capability string

const (
	CapInputMessages Capability = "input-messages"
	CapInputText     Capability = "input-text"
	CapInputImage    Capability = "input-image"
	CapInputAudio    Capability = "input-audio"
	CapInputPDF      Capability = "input-pdf"
	CapInputVideo    Capability = "input-video"
	CapInputMultiple Capability = "input-multiple"
	CapOutputText    Capability = "output-text"
	CapOutputStream  Capability = "output-streaming"
	CapOutputStruct  Capability = "output-structured"
	CapOutputAudio   Capability = "output-audio"
	CapOutputImage   Capability = "output-image"
	CapToolCalling   Capability = "tool-calling"
	CapEmbeddings    Capability = "embeddings"
	CapThinking      Capability = "thinking"
	CapTextToSpeech  Capability = "text-to-speech"
)

// CapabilitySet is an unordered collection of Capability tokens.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a CapabilitySet from a list of capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether c is a member of the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// IsSupersetOf reports whether every capability in other is also in s.
func (s CapabilitySet) IsSupersetOf(other CapabilitySet) bool {
	for c := range other {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

// Action is the semantic operation requested of a model.
type Action string

const (
	ActionChat               Action = "chat"
	ActionCompleteChat       Action = "complete-chat"
	ActionCalculateEmbedding Action = "calculate-embeddings"
	ActionGenerateImage      Action = "generate-image"
	ActionGenerateAudio      Action = "generate-audio"
	ActionTranscribeAudio    Action = "transcribe-audio"
)

// Model describes a named model and the capabilities/options it advertises.
type Model struct {
	Name         string
	Capabilities CapabilitySet
	Options      map[string]any
}

// SupportsAction reports whether the model advertises the capability implied
// by action, used by the dispatcher and router to pre-filter candidates.
func (m Model) SupportsAction(action Action) bool {
	switch action {
	case ActionChat, ActionCompleteChat:
		return m.Capabilities.Has(CapInputMessages) || m.Capabilities.Has(CapInputText)
	case ActionCalculateEmbedding:
		return m.Capabilities.Has(CapEmbeddings)
	case ActionGenerateImage:
		return m.Capabilities.Has(CapOutputImage)
	case ActionGenerateAudio:
		return m.Capabilities.Has(CapOutputAudio) || m.Capabilities.Has(CapTextToSpeech)
	case ActionTranscribeAudio:
		return m.Capabilities.Has(CapInputAudio)
	default:
		return false
	}
}
