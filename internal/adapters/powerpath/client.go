// Package powerpath implements a client for the learning-progress service
// (syllabus trees and per-item student responses).
package powerpath

import (
	"context"
	"fmt"
	"net/url"

	"github.com/openlearn/adaptive-api/internal/adapters/upstream"
)

// SyllabusLesson is one lesson entry in a course syllabus.
type SyllabusLesson struct {
	SourcedID string `json:"sourcedId"`
	Title     string `json:"title"`
	Unit      string `json:"unit,omitempty"`
}

// Syllabus is the ordered lesson plan of a course.
type Syllabus struct {
	CourseSourcedID string           `json:"courseSourcedId"`
	Lessons         []SyllabusLesson `json:"lessons"`
}

// ItemResponse records a student's answer to a single question item.
type ItemResponse struct {
	StudentID string `json:"studentId"`
	ItemID    string `json:"itemId"`
	Response  string `json:"response"`
	Correct   bool   `json:"correct"`
}

// Client talks to the progress service through the shared authed upstream
// client.
type Client struct {
	http *upstream.Client
}

// NewClient constructs a progress client on top of an upstream client.
func NewClient(http *upstream.Client) *Client {
	return &Client{http: http}
}

// GetSyllabus fetches the lesson plan for a course.
func (c *Client) GetSyllabus(ctx context.Context, courseID string) (*Syllabus, error) {
	var syllabus Syllabus
	path := "/syllabus/" + url.PathEscape(courseID)
	if err := c.http.GetJSON(ctx, path, nil, &syllabus); err != nil {
		return nil, fmt.Errorf("get syllabus for course %s: %w", courseID, err)
	}
	if syllabus.CourseSourcedID == "" {
		syllabus.CourseSourcedID = courseID
	}
	return &syllabus, nil
}

// RecordItemResponse stores one student item response.
func (c *Client) RecordItemResponse(ctx context.Context, response ItemResponse) error {
	if err := c.http.PostJSON(ctx, "/itemResponses", response, nil); err != nil {
		return fmt.Errorf("record item response for student %s: %w", response.StudentID, err)
	}
	return nil
}
