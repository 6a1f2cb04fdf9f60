package core

import "fmt"

// Feature identifies one instance of the batch-job lifecycle. The feature
// name is the KV key prefix; changing it orphans existing job records and
// artifacts, so treat these values as part of the storage contract.
type Feature string

const (
	FeatureSkillTree        Feature = "skill_tree"
	FeatureLessonSkills     Feature = "lesson_skills"
	FeatureDiagnostic       Feature = "diagnostic"
	FeatureQuestionAnalysis Feature = "question_analysis"
	FeatureRelevance        Feature = "relevance"
	FeatureExplanations     Feature = "explanations"
)

// JobKey returns the KV key holding the in-flight JobRecord for a subject.
func JobKey(feature Feature, subjectID string) string {
	return fmt.Sprintf("%s_job:%s", feature, subjectID)
}

// ArtifactKey returns the KV key holding the durable ResultArtifact for a
// subject.
func ArtifactKey(feature Feature, subjectID string) string {
	return fmt.Sprintf("%s:%s", feature, subjectID)
}

// ProgressKey returns the KV key holding worker progress checkpoints for a
// subject. Only used by features that run through the background worker.
func ProgressKey(feature Feature, subjectID string) string {
	return fmt.Sprintf("%s_progress:%s", feature, subjectID)
}

// XPKey returns the KV key holding a student's XP total.
func XPKey(studentID string) string {
	return "xp:" + studentID
}

// XPLogKey returns the KV key holding a student's append-only XP event list.
func XPLogKey(studentID string) string {
	return "xp_log:" + studentID
}
