package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/models"
)

var testShape = Shape{
	Fields: []Field{
		{Name: "summary", Kind: StringList},
		{Name: "actionItems", Kind: StringList},
		{Name: "sentiment", Kind: Object, Fields: []Field{
			{Name: "overall", Kind: String, Default: "neutral"},
			{Name: "positive", Kind: Number, Default: 0.0},
			{Name: "negative", Kind: Number, Default: 0.0},
		}},
	},
}

func TestParseReturnsConformingPayloadUnchanged(t *testing.T) {
	data := map[string]interface{}{
		"summary":     []interface{}{"a", "b"},
		"actionItems": []interface{}{"c"},
		"sentiment": map[string]interface{}{
			"overall":  "positive",
			"positive": 0.9,
			"negative": 0.05,
		},
	}

	out, err := Parse(testShape, data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestParseCoercesLoneStringToList(t *testing.T) {
	data := map[string]interface{}{
		"summary":     "one point",
		"actionItems": []interface{}{"c"},
		"sentiment": map[string]interface{}{
			"overall":  "neutral",
			"positive": 0.0,
			"negative": 0.0,
		},
	}

	out, err := Parse(testShape, data)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"one point"}, out["summary"])
}

func TestParseCoercesNumericStringsAndFillsDefaults(t *testing.T) {
	data := map[string]interface{}{
		"summary":     []interface{}{"a"},
		"actionItems": []interface{}{},
		"sentiment": map[string]interface{}{
			"positive": "0.5",
			"negative": 0.2,
		},
	}

	out, err := Parse(testShape, data)
	require.NoError(t, err)
	sentiment := out["sentiment"].(map[string]interface{})
	assert.Equal(t, "neutral", sentiment["overall"])
	assert.InDelta(t, 0.5, sentiment["positive"].(float64), 1e-9)
	assert.InDelta(t, 0.2, sentiment["negative"].(float64), 1e-9)
}

func TestParseStringifiesScalarsInLists(t *testing.T) {
	data := map[string]interface{}{
		"summary":     []interface{}{"a", 42.0, true},
		"actionItems": []interface{}{"c"},
		"sentiment":   map[string]interface{}{},
	}

	out, err := Parse(testShape, data)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "42", "true"}, out["summary"])
}

func TestParseRejectsUnrepairablePayload(t *testing.T) {
	data := map[string]interface{}{
		"summary":     map[string]interface{}{"not": "a list"},
		"actionItems": []interface{}{"c"},
		"sentiment":   map[string]interface{}{},
	}

	_, err := Parse(testShape, data)
	assert.Error(t, err)
}

func TestParseRejectsNilData(t *testing.T) {
	shape := Shape{Fields: []Field{{Name: "x", Kind: String}}}
	_, err := Parse(shape, nil)
	assert.Error(t, err)
}

func TestDecodeObject(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"plain object", `{"a": 1}`, true},
		{"fenced json", "```json\n{\"a\": 1}\n```", true},
		{"bare fence", "```\n{\"a\": 1}\n```", true},
		{"leading prose", "Here is the result: {\"a\": 1}", true},
		{"no object", "sorry, I cannot do that", false},
		{"array not object", `[1, 2]`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := DecodeObject(tc.raw)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, 1.0, obj["a"])
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateQuestionMultipleChoice(t *testing.T) {
	q := models.QuizQuestion{
		ID:            "q-1",
		Type:          models.QuestionTypeMultipleChoice,
		Question:      "What was decided?",
		Options:       []string{"Ship it", "Delay it", "Cancel it", "Rewrite it"},
		CorrectAnswer: "A",
		Explanation:   "The team agreed to ship.",
	}
	assert.NoError(t, ValidateQuestion(q))

	bad := q
	bad.Options = q.Options[:3]
	assert.Error(t, ValidateQuestion(bad))

	bad = q
	bad.CorrectAnswer = "E"
	assert.Error(t, ValidateQuestion(bad))

	bad = q
	bad.Explanation = ""
	assert.Error(t, ValidateQuestion(bad))
}

func TestValidateQuestionTrueFalse(t *testing.T) {
	q := models.QuizQuestion{
		ID:            "q-2",
		Type:          models.QuestionTypeTrueFalse,
		Question:      "The launch date moved.",
		CorrectAnswer: "true",
		Explanation:   "It moved to October.",
	}
	assert.NoError(t, ValidateQuestion(q))

	bad := q
	bad.CorrectAnswer = "True"
	assert.Error(t, ValidateQuestion(bad))

	bad = q
	bad.Options = []string{"true", "false"}
	assert.Error(t, ValidateQuestion(bad))
}
