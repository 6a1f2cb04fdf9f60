// Package oneroster implements a client for the OneRoster-style roster and
// gradebook service. Listings are paginated with a fixed page size and
// fetched until a short page is returned.
package oneroster

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/openlearn/adaptive-api/internal/adapters/upstream"
)

// PageSize is the fixed page size used for every paginated listing.
const PageSize = 100

// Course is the subset of the roster course resource this service consumes.
type Course struct {
	SourcedID  string `json:"sourcedId"`
	Title      string `json:"title"`
	CourseCode string `json:"courseCode,omitempty"`
}

// Component is one entry in a course's component tree (units and lessons).
type Component struct {
	SourcedID string `json:"sourcedId"`
	Title     string `json:"title"`
	SortOrder int    `json:"sortOrder,omitempty"`
	Parent    *Ref   `json:"parent,omitempty"`
}

// Ref is a sourcedId reference to another roster resource.
type Ref struct {
	SourcedID string `json:"sourcedId"`
}

// AssessmentResult is a gradebook score line for one student.
type AssessmentResult struct {
	SourcedID     string         `json:"sourcedId,omitempty"`
	Student       Ref            `json:"student"`
	AssessmentRef Ref            `json:"assessmentLineItem"`
	Score         float64        `json:"score"`
	ScoreDate     string         `json:"scoreDate"`
	ScoreStatus   string         `json:"scoreStatus"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Client talks to the roster service through the shared authed upstream
// client.
type Client struct {
	http *upstream.Client
}

// NewClient constructs a roster client on top of an upstream client.
func NewClient(http *upstream.Client) *Client {
	return &Client{http: http}
}

// GetCourse fetches a single course by sourcedId.
func (c *Client) GetCourse(ctx context.Context, sourcedID string) (*Course, error) {
	var envelope struct {
		Course Course `json:"course"`
	}
	path := "/courses/" + url.PathEscape(sourcedID)
	if err := c.http.GetJSON(ctx, path, nil, &envelope); err != nil {
		return nil, fmt.Errorf("get course %s: %w", sourcedID, err)
	}
	return &envelope.Course, nil
}

// ListCourseComponents returns every component of a course, across all
// pages, in listing order.
func (c *Client) ListCourseComponents(ctx context.Context, courseID string) ([]Component, error) {
	var all []Component
	for offset := 0; ; offset += PageSize {
		query := pageQuery(offset)
		query.Set("filter", fmt.Sprintf("course.sourcedId='%s'", courseID))

		var envelope struct {
			CourseComponents []Component `json:"courseComponents"`
		}
		if err := c.http.GetJSON(ctx, "/courseComponents", query, &envelope); err != nil {
			return nil, fmt.Errorf("list components for course %s: %w", courseID, err)
		}

		all = append(all, envelope.CourseComponents...)
		if len(envelope.CourseComponents) < PageSize {
			return all, nil
		}
	}
}

// ListAssessmentResults returns every assessment result matching filter,
// across all pages, as raw objects. Callers reshape them as needed.
func (c *Client) ListAssessmentResults(
	ctx context.Context,
	filter string,
) ([]map[string]any, error) {
	var all []map[string]any
	for offset := 0; ; offset += PageSize {
		query := pageQuery(offset)
		if filter != "" {
			query.Set("filter", filter)
		}

		var envelope struct {
			AssessmentResults []map[string]any `json:"assessmentResults"`
		}
		if err := c.http.GetJSON(ctx, "/assessmentResults", query, &envelope); err != nil {
			return nil, fmt.Errorf("list assessment results: %w", err)
		}

		all = append(all, envelope.AssessmentResults...)
		if len(envelope.AssessmentResults) < PageSize {
			return all, nil
		}
	}
}

// CreateAssessmentResult records a score line in the gradebook.
func (c *Client) CreateAssessmentResult(ctx context.Context, result AssessmentResult) error {
	body := map[string]AssessmentResult{"assessmentResult": result}
	if err := c.http.PostJSON(ctx, "/assessmentResults", body, nil); err != nil {
		return fmt.Errorf("create assessment result for student %s: %w", result.Student.SourcedID, err)
	}
	return nil
}

func pageQuery(offset int) url.Values {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(PageSize))
	query.Set("offset", strconv.Itoa(offset))
	return query
}
