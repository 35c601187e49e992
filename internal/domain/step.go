package domain

// JobStep identifies one named stage of the processing pipeline.
type JobStep string

// Pipeline steps in execution order.
const (
	StepValidateURL     JobStep = "validate_url"
	StepFetchVideoInfo  JobStep = "fetch_video_info"
	StepDetectLanguages JobStep = "detect_languages"
	StepFetchTranscript JobStep = "fetch_transcript"
	StepGenerateContent JobStep = "generate_content"
	StepFormatBlog      JobStep = "format_blog"
	StepSaveOutput      JobStep = "save_output"
)

// Steps returns the pipeline steps in the order they run.
func Steps() []JobStep {
	return []JobStep{
		StepValidateURL,
		StepFetchVideoInfo,
		StepDetectLanguages,
		StepFetchTranscript,
		StepGenerateContent,
		StepFormatBlog,
		StepSaveOutput,
	}
}

// String implements fmt.Stringer.
func (s JobStep) String() string {
	return string(s)
}
