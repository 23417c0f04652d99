package block

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/lms"
)

var emptyContent = json.RawMessage(`{}`)

// Content builds the `content` object persisted for `d`. Problem drafts have empty content,
// their data lives in the referenced Problem.
func Content(d Draft) (json.RawMessage, error) {
	if d.Type() == TypeProblem {
		return emptyContent, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s content", d.Type())
	}
	return data, nil
}

// ContentType reads the `type` discriminator of a stored block's content.
// Blocks stored without one fall back on their block type.
func ContentType(b lms.ContentBlock) (Type, error) {
	if b.BlockType == lms.BlockTypeProblem {
		return TypeProblem, nil
	}
	var head struct {
		Type Type `json:"type"`
	}
	if len(b.Content) > 0 {
		if err := json.Unmarshal(b.Content, &head); err != nil {
			return "", errors.Wrap(err, "decoding content type")
		}
	}
	if head.Type != "" {
		return head.Type, nil
	}
	switch b.BlockType {
	case lms.BlockTypeText:
		return TypeText, nil
	case lms.BlockTypeVideo:
		return TypeVideo, nil
	case lms.BlockTypeQuiz:
		return TypeQuiz, nil
	default:
		return "", fmt.Errorf("unknown block type %q", b.BlockType)
	}
}

// ParseDraft turns a stored block back into an editable draft.
// `problem` is required for problem blocks and ignored otherwise.
func ParseDraft(b lms.ContentBlock, problem *lms.Problem) (Draft, error) {
	t, err := ContentType(b)
	if err != nil {
		return nil, err
	}
	if t == TypeProblem {
		if problem == nil {
			return nil, fmt.Errorf("block %d: problem record missing", b.ID)
		}
		return ProblemDraft{
			Which:         problem.Which,
			QuestionText:  problem.QuestionText,
			QuestionType:  problem.QuestionType,
			Options:       problem.Options,
			CorrectAnswer: problem.CorrectAnswer,
			Explanation:   problem.Explanation,
			XP:            problem.XP,
			DiagramConfig: problem.DiagramConfig,
		}, nil
	}
	content := b.Content
	if len(content) == 0 {
		content = emptyContent
	}
	d, err := decodeAs(t, content)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding block %d content", b.ID)
	}
	return d, nil
}

// Title returns a short label of a stored block, for listings.
func Title(b lms.ContentBlock) string {
	var head struct {
		Title        string `json:"title"`
		QuestionText string `json:"question_text"`
	}
	_ = json.Unmarshal(b.Content, &head)
	if head.Title != "" {
		return head.Title
	}
	return head.QuestionText
}
