package model

// ArtifactMeta is the metadata envelope every ResultArtifact carries alongside
// its feature-specific payload.
type ArtifactMeta struct {
	// GeneratedAt is the artifact creation time in seconds since epoch.
	GeneratedAt int64 `json:"generatedAt"`
	// Model is the generation model that produced the artifact.
	Model string `json:"model"`
}

// SkillTreeArtifact is the durable output of the skill-tree feature: a
// mermaid graph describing the skills taught by a course and their
// prerequisite edges.
type SkillTreeArtifact struct {
	ArtifactMeta
	CourseSourcedID string `json:"courseSourcedId"`
	CourseTitle     string `json:"courseTitle"`
	Mermaid         string `json:"mermaid"`
	LessonCount     int    `json:"lessonCount"`
}

// LessonSkills is the skill assignment for a single lesson.
type LessonSkills struct {
	Title  string   `json:"title"`
	Skills []string `json:"skills"`
}

// LessonSkillsArtifact maps lesson sourcedIds to the skills they teach,
// merged across all batch chunks.
type LessonSkillsArtifact struct {
	ArtifactMeta
	CourseSourcedID string                  `json:"courseSourcedId"`
	ChunkCount      int                     `json:"chunkCount"`
	Lessons         map[string]LessonSkills `json:"lessons"`
}

// QuestionAnalysis is the generated analysis of one question-bank item.
type QuestionAnalysis struct {
	Difficulty string   `json:"difficulty"`
	Skills     []string `json:"skills"`
	Issues     []string `json:"issues,omitempty"`
}

// QuestionAnalysisArtifact maps question identifiers to their analysis,
// merged across all batch chunks.
type QuestionAnalysisArtifact struct {
	ArtifactMeta
	TestIdentifier string                      `json:"testIdentifier"`
	ChunkCount     int                         `json:"chunkCount"`
	Questions      map[string]QuestionAnalysis `json:"questions"`
}

// QuestionRelevance is the relevance verdict for one question against its
// lesson's content.
type QuestionRelevance struct {
	Relevant    bool    `json:"relevant"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
	Explanation string  `json:"explanation,omitempty"`
}

// RelevanceArtifact maps question identifiers to relevance verdicts for a
// single lesson.
type RelevanceArtifact struct {
	ArtifactMeta
	LessonSourcedID string                       `json:"lessonSourcedId"`
	ChunkCount      int                          `json:"chunkCount"`
	Questions       map[string]QuestionRelevance `json:"questions"`
}
