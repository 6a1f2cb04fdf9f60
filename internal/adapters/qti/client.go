// Package qti implements a client for the question-bank service. Item and
// stimulus bodies may come back as JSON or QTI XML depending on how they
// were authored; both representations are tolerated.
package qti

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/openlearn/adaptive-api/internal/adapters/upstream"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
)

// TestRef is one assessment test in the bank's listing.
type TestRef struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
}

// Section is one section of an assessment test, carrying its item refs.
type Section struct {
	Identifier string   `json:"identifier"`
	Title      string   `json:"title"`
	ItemRefs   []string `json:"itemRefs"`
}

// AssessmentTest is a test's full section tree.
type AssessmentTest struct {
	Identifier string    `json:"identifier"`
	Title      string    `json:"title"`
	Sections   []Section `json:"sections"`
}

// Item is a normalized question item regardless of source representation.
type Item struct {
	Identifier string   `json:"identifier"`
	Title      string   `json:"title"`
	Prompt     string   `json:"prompt"`
	Choices    []Choice `json:"choices,omitempty"`
}

// Choice is one answer option of an item.
type Choice struct {
	Identifier string `json:"identifier"`
	Text       string `json:"text"`
}

// Client talks to the question bank through the shared authed upstream
// client.
type Client struct {
	http *upstream.Client
}

// NewClient constructs a question-bank client on top of an upstream client.
func NewClient(http *upstream.Client) *Client {
	return &Client{http: http}
}

// ListAssessmentTests returns the bank's test listing.
func (c *Client) ListAssessmentTests(ctx context.Context) ([]TestRef, error) {
	var envelope struct {
		AssessmentTests []TestRef `json:"assessmentTests"`
	}
	if err := c.http.GetJSON(ctx, "/assessmentTests", nil, &envelope); err != nil {
		return nil, fmt.Errorf("list assessment tests: %w", err)
	}
	return envelope.AssessmentTests, nil
}

// GetAssessmentTest fetches a test's section tree.
func (c *Client) GetAssessmentTest(ctx context.Context, identifier string) (*AssessmentTest, error) {
	var test AssessmentTest
	path := "/assessmentTests/" + url.PathEscape(identifier)
	if err := c.http.GetJSON(ctx, path, nil, &test); err != nil {
		return nil, fmt.Errorf("get assessment test %s: %w", identifier, err)
	}
	return &test, nil
}

// GetItem fetches a single item, decoding either the JSON or the QTI XML
// representation based on the response content type.
func (c *Client) GetItem(ctx context.Context, identifier string) (*Item, error) {
	path := "/assessmentItems/" + url.PathEscape(identifier)
	raw, contentType, err := c.http.GetRaw(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", identifier, err)
	}
	return decodeItem(raw, contentType)
}

// GetStimulus fetches the text of a stimulus resource.
func (c *Client) GetStimulus(ctx context.Context, identifier string) (string, error) {
	path := "/stimuli/" + url.PathEscape(identifier)
	raw, contentType, err := c.http.GetRaw(ctx, path, nil)
	if err != nil {
		return "", fmt.Errorf("get stimulus %s: %w", identifier, err)
	}

	if isXML(contentType, raw) {
		var stim xmlStimulus
		if err := xml.Unmarshal(raw, &stim); err != nil {
			return "", apperrors.Wrapf(err, apperrors.ErrCodeUpstream, "decode stimulus %s XML", identifier)
		}
		return strings.TrimSpace(stim.Body), nil
	}

	var envelope struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", apperrors.Wrapf(err, apperrors.ErrCodeUpstream, "decode stimulus %s", identifier)
	}
	return envelope.Content, nil
}

// xmlItem mirrors the minimal QTI assessmentItem structure this service
// needs: the prompt and the choice interaction.
type xmlItem struct {
	Identifier string `xml:"identifier,attr"`
	Title      string `xml:"title,attr"`
	ItemBody   struct {
		Prompt            string `xml:",chardata"`
		ChoiceInteraction struct {
			Prompt  string      `xml:"prompt"`
			Choices []xmlChoice `xml:"simpleChoice"`
		} `xml:"choiceInteraction"`
	} `xml:"itemBody"`
}

type xmlChoice struct {
	Identifier string `xml:"identifier,attr"`
	Text       string `xml:",chardata"`
}

type xmlStimulus struct {
	Body string `xml:"stimulusBody"`
}

func decodeItem(raw []byte, contentType string) (*Item, error) {
	if isXML(contentType, raw) {
		var xi xmlItem
		if err := xml.Unmarshal(raw, &xi); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "decode item XML")
		}
		item := &Item{
			Identifier: xi.Identifier,
			Title:      xi.Title,
			Prompt:     strings.TrimSpace(xi.ItemBody.ChoiceInteraction.Prompt),
		}
		if item.Prompt == "" {
			item.Prompt = strings.TrimSpace(xi.ItemBody.Prompt)
		}
		for _, choice := range xi.ItemBody.ChoiceInteraction.Choices {
			item.Choices = append(item.Choices, Choice{
				Identifier: choice.Identifier,
				Text:       strings.TrimSpace(choice.Text),
			})
		}
		return item, nil
	}

	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "decode item")
	}
	return &item, nil
}

// isXML sniffs the representation: content type first, then a leading '<'.
func isXML(contentType string, raw []byte) bool {
	if strings.Contains(contentType, "xml") {
		return true
	}
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "<")
}
