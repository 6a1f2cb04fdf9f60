package qti

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/openlearn/adaptive-api/internal/adapters/upstream"
)

func newQTIClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base, err := upstream.New(upstream.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	return NewClient(base)
}

func TestGetItemJSON(t *testing.T) {
	client := newQTIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assessmentItems/q1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"identifier": "q1",
			"title": "Fractions",
			"prompt": "What is 1/2 + 1/4?",
			"choices": [
				{"identifier": "a", "text": "3/4"},
				{"identifier": "b", "text": "2/6"}
			]
		}`))
	}))

	item, err := client.GetItem(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, "q1", item.Identifier)
	assert.Equal(t, "What is 1/2 + 1/4?", item.Prompt)
	require.Len(t, item.Choices, 2)
	assert.Equal(t, "3/4", item.Choices[0].Text)
}

func TestGetItemXML(t *testing.T) {
	client := newQTIClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<assessmentItem identifier="q2" title="Decimals">
			<itemBody>
				<choiceInteraction>
					<prompt>Which is larger?</prompt>
					<simpleChoice identifier="a">0.5</simpleChoice>
					<simpleChoice identifier="b">0.45</simpleChoice>
				</choiceInteraction>
			</itemBody>
		</assessmentItem>`))
	}))

	item, err := client.GetItem(context.Background(), "q2")
	require.NoError(t, err)
	assert.Equal(t, "q2", item.Identifier)
	assert.Equal(t, "Which is larger?", item.Prompt)
	require.Len(t, item.Choices, 2)
	assert.Equal(t, "b", item.Choices[1].Identifier)
	assert.Equal(t, "0.45", item.Choices[1].Text)
}

func TestGetItemXMLWithoutContentType(t *testing.T) {
	// Some banks serve XML as text/plain; the leading '<' is the tell.
	client := newQTIClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`<assessmentItem identifier="q3" title="T"><itemBody></itemBody></assessmentItem>`))
	}))

	item, err := client.GetItem(context.Background(), "q3")
	require.NoError(t, err)
	assert.Equal(t, "q3", item.Identifier)
}

func TestGetAssessmentTest(t *testing.T) {
	client := newQTIClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"identifier": "t1",
			"title": "Unit 1 Check",
			"sections": [{"identifier": "s1", "title": "Part A", "itemRefs": ["q1", "q2"]}]
		}`))
	}))

	test, err := client.GetAssessmentTest(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, test.Sections, 1)
	assert.Equal(t, []string{"q1", "q2"}, test.Sections[0].ItemRefs)
}

func TestGetStimulus(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		client := newQTIClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"content":"Read the passage below."}`))
		}))
		text, err := client.GetStimulus(context.Background(), "st1")
		require.NoError(t, err)
		assert.Equal(t, "Read the passage below.", text)
	})

	t.Run("xml", func(t *testing.T) {
		client := newQTIClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(`<stimulus><stimulusBody>A passage.</stimulusBody></stimulus>`))
		}))
		text, err := client.GetStimulus(context.Background(), "st2")
		require.NoError(t, err)
		assert.Equal(t, "A passage.", text)
	})
}
