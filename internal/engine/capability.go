package engine

import "strings"

// knownThinkingModels lists model name substrings known to support native
// chain-of-thought / reasoning-effort parameters, mirroring the teacher's
// capability-detection table.
var knownThinkingModels = map[string]Capability{
	"o1":        {SupportsNativeThinking: true, ReasoningEffortParam: true},
	"o3":        {SupportsNativeThinking: true, ReasoningEffortParam: true},
	"o4":        {SupportsNativeThinking: true, ReasoningEffortParam: true},
	"deepseek-r1": {SupportsNativeThinking: true, ReasoningEffortParam: false},
	"qwq":       {SupportsNativeThinking: true, ReasoningEffortParam: false},
}

// DetectCapability guesses a model's Capability from its name: a name
// containing one of the known thinking-model keys takes that key's
// capability (keys are tried in map order), otherwise a keyword scan,
// otherwise the conservative default of a plain chat-completion model.
func DetectCapability(modelName string) Capability {
	lower := strings.ToLower(modelName)
	for key, c := range knownThinkingModels {
		if strings.Contains(lower, key) {
			return c
		}
	}
	if strings.Contains(lower, "reasoning") || strings.Contains(lower, "think") {
		return Capability{SupportsNativeThinking: true}
	}
	return Capability{}
}
