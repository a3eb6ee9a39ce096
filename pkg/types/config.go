package types

import (
	"fmt"
	"net/url"
	"time"
)

// StepName identifies one stage of the end-to-end pipeline.
type StepName string

const (
	StepSegmentation StepName = "pdf_segmentation"
	StepLLMCleaning  StepName = "llm_cleaning"
	StepCleanup      StepName = "post_processing_cleanup"
	StepFormatting   StepName = "post_processing_formatting"
	StepVTT          StepName = "vtt_conversion"
)

// DefaultSteps is the step order used when the configuration names none.
var DefaultSteps = []StepName{
	StepSegmentation,
	StepLLMCleaning,
	StepCleanup,
	StepFormatting,
	StepVTT,
}

var knownSteps = map[StepName]bool{
	StepSegmentation: true,
	StepLLMCleaning:  true,
	StepCleanup:      true,
	StepFormatting:   true,
	StepVTT:          true,
}

// ModelConfig holds settings for talking to the completion endpoint.
type ModelConfig struct {
	// Name is the model identifier sent with every request (e.g. "llama3:8b").
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Endpoint is the full URL of the generate endpoint
	// (e.g. "http://localhost:11434/api/generate").
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// Stream selects newline-delimited streaming responses instead of a single payload.
	Stream bool `json:"stream" yaml:"stream" mapstructure:"stream"`

	// Timeout bounds a single request, including reading a streamed body.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of caller-side retries for a failed chunk (default 0).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// APIKey is sent as a bearer token when set. Usually loaded from .secrets/.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// ChunkConfig controls how documents are split before prompting.
type ChunkConfig struct {
	// Size is the maximum chunk length in characters.
	Size int `json:"size" yaml:"size" mapstructure:"size"`

	// Overlap is the number of characters repeated at the start of the next chunk.
	Overlap int `json:"overlap" yaml:"overlap" mapstructure:"overlap"`
}

// DirectoriesConfig names the fixed directory roles of a project.
type DirectoriesConfig struct {
	PDFSource      string `json:"pdf_source" yaml:"pdf_source" mapstructure:"pdf_source"`
	TextOutput     string `json:"txt_output" yaml:"txt_output" mapstructure:"txt_output"`
	MarkdownOutput string `json:"markdown_output" yaml:"markdown_output" mapstructure:"markdown_output"`
	JSONOutput     string `json:"json_output" yaml:"json_output" mapstructure:"json_output"`
	YAMLOutput     string `json:"yml_output" yaml:"yml_output" mapstructure:"yml_output"`
}

// SegmentationConfig holds settings for splitting PDFs into section files.
type SegmentationConfig struct {
	// PagesPerSection is the window size used when the PDF has no outline.
	// Zero or less disables the fallback.
	PagesPerSection int `json:"pages_per_section" yaml:"pages_per_section" mapstructure:"pages_per_section"`

	// TOCDepth is the deepest outline level that starts a new section (default 1).
	TOCDepth int `json:"toc_depth" yaml:"toc_depth" mapstructure:"toc_depth"`

	// Pdftotext enables the pdftotext binary as a per-page fallback extractor.
	Pdftotext bool `json:"pdftotext" yaml:"pdftotext" mapstructure:"pdftotext"`
}

// PostProcessConfig holds settings for the post-processing stages.
type PostProcessConfig struct {
	// ArtifactPatterns are extra line regexes removed from model output.
	ArtifactPatterns []string `json:"artifact_patterns" yaml:"artifact_patterns" mapstructure:"artifact_patterns"`

	// HeadingPhrases are exact lines promoted to second-level headings.
	HeadingPhrases []string `json:"heading_phrases" yaml:"heading_phrases" mapstructure:"heading_phrases"`

	// UncertainMarker is the token the prompt asks the model to emit for
	// ambiguous OCR fixes. Occurrences are counted and reported.
	UncertainMarker string `json:"uncertain_marker" yaml:"uncertain_marker" mapstructure:"uncertain_marker"`
}

// Config is the complete configuration for a pipeline run. It is built once
// and passed explicitly to each component.
type Config struct {
	Model        ModelConfig        `json:"model" yaml:"model" mapstructure:"model"`
	Chunking     ChunkConfig        `json:"chunking" yaml:"chunking" mapstructure:"chunking"`
	Directories  DirectoriesConfig  `json:"directories" yaml:"directories" mapstructure:"directories"`
	Segmentation SegmentationConfig `json:"segmentation" yaml:"segmentation" mapstructure:"segmentation"`
	PostProcess  PostProcessConfig  `json:"postprocess" yaml:"postprocess" mapstructure:"postprocess"`

	// Prompt is the path of the instruction template. Empty selects the built-in template.
	Prompt string `json:"prompt" yaml:"prompt" mapstructure:"prompt"`

	// Steps is the ordered list of pipeline steps to run.
	Steps []StepName `json:"steps" yaml:"steps" mapstructure:"steps"`

	// Ledger is the SQLite file recording processed documents. Empty disables it.
	Ledger string `json:"ledger" yaml:"ledger" mapstructure:"ledger"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}

// Validate checks the configuration and returns the first problem found as
// an ErrConfiguration.
func (c Config) Validate() error {
	if c.Model.Name == "" {
		return ConfigErrorf("model name is empty")
	}
	if c.Model.Endpoint == "" {
		return ConfigErrorf("model endpoint is empty")
	}
	u, err := url.Parse(c.Model.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ConfigErrorf("model endpoint %q is not an http(s) URL", c.Model.Endpoint)
	}
	if c.Model.Timeout < 0 {
		return ConfigErrorf("model timeout %v is negative", c.Model.Timeout)
	}
	if c.Model.MaxRetries < 0 {
		return ConfigErrorf("max_retries %d is negative", c.Model.MaxRetries)
	}
	if c.Chunking.Size <= 0 {
		return ConfigErrorf("chunk size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return ConfigErrorf("chunk overlap %d must be in [0, %d)", c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Segmentation.TOCDepth < 0 {
		return ConfigErrorf("toc_depth %d is negative", c.Segmentation.TOCDepth)
	}
	for name, dir := range map[string]string{
		"pdf_source":      c.Directories.PDFSource,
		"txt_output":      c.Directories.TextOutput,
		"markdown_output": c.Directories.MarkdownOutput,
		"json_output":     c.Directories.JSONOutput,
	} {
		if dir == "" {
			return ConfigErrorf("directory %s is not configured", name)
		}
	}
	for i, s := range c.Steps {
		if !knownSteps[s] {
			return ConfigErrorf("step %d: unknown step %q", i+1, s)
		}
	}
	return nil
}

// String renders a one-line summary suitable for log output.
func (c ModelConfig) String() string {
	return fmt.Sprintf("%s @ %s (stream=%t, timeout=%v)", c.Name, c.Endpoint, c.Stream, c.Timeout)
}
