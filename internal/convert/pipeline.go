package convert

import "strings"

// asrModelMap maps user-facing ASR model names to transcription spec
// names. Unrecognized names fall back to turbo.
var asrModelMap = map[string]string{
	"tiny":   "WHISPER_TINY",
	"base":   "WHISPER_BASE",
	"small":  "WHISPER_SMALL",
	"medium": "WHISPER_MEDIUM",
	"large":  "WHISPER_LARGE",
	"turbo":  "WHISPER_TURBO",
}

// DefaultVLMPreset is the vision model preset used when none is
// configured.
const DefaultVLMPreset = "granite_docling"

// ResolveASRSpecName maps a user-facing model name ("tiny".."turbo") to
// its spec constant name, defaulting to WHISPER_TURBO.
func ResolveASRSpecName(modelName string) string {
	if spec, ok := asrModelMap[modelName]; ok {
		return spec
	}
	return "WHISPER_TURBO"
}

// ResolveVLMPreset returns the configured vision preset or the default.
func ResolveVLMPreset(imageVLMModel string) string {
	if imageVLMModel != "" {
		return imageVLMModel
	}
	return DefaultVLMPreset
}

// asrWireModel converts a spec constant name to the model name sent to
// OpenAI-compatible transcription endpoints (WHISPER_TURBO ->
// whisper-turbo).
func asrWireModel(specName string) string {
	return strings.ReplaceAll(strings.ToLower(specName), "_", "-")
}

// VLMFormatConfig configures the vision pipeline for image documents.
type VLMFormatConfig struct {
	Preset string
}

// ASRFormatConfig configures the transcription pipeline for audio
// documents.
type ASRFormatConfig struct {
	SpecName string
}

// ConverterConfig is the resolved pipeline configuration. A nil VLM or
// ASR disables the corresponding format.
type ConverterConfig struct {
	VLM *VLMFormatConfig
	ASR *ASRFormatConfig
}

// BuildConverterConfig resolves the converter pipelines from repository
// settings. imagePipeline "vlm" enables image conversion; a non-empty
// audioASRModel enables audio transcription.
func BuildConverterConfig(imagePipeline, imageVLMModel, audioASRModel string) ConverterConfig {
	var cfg ConverterConfig
	if imagePipeline == "vlm" {
		cfg.VLM = &VLMFormatConfig{Preset: ResolveVLMPreset(imageVLMModel)}
	}
	if audioASRModel != "" {
		cfg.ASR = &ASRFormatConfig{SpecName: ResolveASRSpecName(audioASRModel)}
	}
	return cfg
}
