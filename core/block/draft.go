package block

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/lms"
)

// Type is the editable shape of a content block, stored as `content.type`.
type Type string

const (
	TypeText      Type = "qoraal"
	TypeTable     Type = "table"
	TypeTableGrid Type = "table-grid"
	TypeProblem   Type = "problem"
	TypeVideo     Type = "video"
	TypeQuiz      Type = "quiz"
	TypeList      Type = "list"
)

var Types = []Type{TypeText, TypeTable, TypeTableGrid, TypeProblem, TypeVideo, TypeQuiz, TypeList}

type VideoSourceType string

const (
	VideoSourceUpload   VideoSourceType = "upload"
	VideoSourceExternal VideoSourceType = "external"
)

// videoSource infers the source of a draft saved without one.
func videoSource(videoID *int) VideoSourceType {
	if videoID != nil {
		return VideoSourceUpload
	}
	return VideoSourceExternal
}

// Draft is the client-side editable form of a content block.
// It is implemented by the draft types of this package only.
type Draft interface {
	Type() Type
	BlockType() lms.BlockType
	Validate() error
	sanitize(p *bluemonday.Policy) Draft
}

var (
	_ Draft = TextDraft{}
	_ Draft = TableDraft{}
	_ Draft = TableGridDraft{}
	_ Draft = ListDraft{}
	_ Draft = VideoDraft{}
	_ Draft = QuizDraft{}
	_ Draft = ProblemDraft{}
)

// TextDraft holds up to 6 text segments and 6 image URLs.
type TextDraft struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
	Text1 string `json:"text1,omitempty"`
	Text2 string `json:"text2,omitempty"`
	Text3 string `json:"text3,omitempty"`
	Text4 string `json:"text4,omitempty"`
	Text5 string `json:"text5,omitempty"`
	URL   string `json:"url,omitempty"`
	URL1  string `json:"url1,omitempty"`
	URL2  string `json:"url2,omitempty"`
	URL3  string `json:"url3,omitempty"`
	URL4  string `json:"url4,omitempty"`
	URL5  string `json:"url5,omitempty"`
}

func (TextDraft) Type() Type               { return TypeText }
func (TextDraft) BlockType() lms.BlockType { return lms.BlockTypeText }

// Segments returns the text segments in order.
func (d TextDraft) Segments() []string {
	return []string{d.Text, d.Text1, d.Text2, d.Text3, d.Text4, d.Text5}
}

// ImageURLs returns the image URLs in order.
func (d TextDraft) ImageURLs() []string {
	return []string{d.URL, d.URL1, d.URL2, d.URL3, d.URL4, d.URL5}
}

func (d TextDraft) MarshalJSON() ([]byte, error) {
	type alias TextDraft
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{d.Type(), alias(d)})
}

type Feature struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type TableDraft struct {
	Title    string    `json:"title,omitempty"`
	Text     string    `json:"text,omitempty"`
	Features []Feature `json:"features"`
}

func (TableDraft) Type() Type               { return TypeTable }
func (TableDraft) BlockType() lms.BlockType { return lms.BlockTypeText }

func (d TableDraft) MarshalJSON() ([]byte, error) {
	type alias TableDraft
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{d.Type(), alias(d)})
}

type TableGridDraft struct {
	Title   string     `json:"title,omitempty"`
	Text    string     `json:"text,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

func (TableGridDraft) Type() Type               { return TypeTableGrid }
func (TableGridDraft) BlockType() lms.BlockType { return lms.BlockTypeText }

func (d TableGridDraft) MarshalJSON() ([]byte, error) {
	type alias TableGridDraft
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{d.Type(), alias(d)})
}

type ListDraft struct {
	Title string   `json:"title,omitempty"`
	Items []string `json:"items"`
}

func (ListDraft) Type() Type               { return TypeList }
func (ListDraft) BlockType() lms.BlockType { return lms.BlockTypeText }

func (d ListDraft) MarshalJSON() ([]byte, error) {
	type alias ListDraft
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{d.Type(), alias(d)})
}

type VideoDraft struct {
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	URL             string          `json:"url,omitempty"`
	VideoID         *int            `json:"video_id,omitempty"`
	Duration        int             `json:"duration,omitempty" validate:"gte=0"`
	VideoSourceType VideoSourceType `json:"video_source_type,omitempty" validate:"omitempty,oneof=upload external"`
}

func (VideoDraft) Type() Type               { return TypeVideo }
func (VideoDraft) BlockType() lms.BlockType { return lms.BlockTypeVideo }

func (d VideoDraft) MarshalJSON() ([]byte, error) {
	type alias VideoDraft
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{d.Type(), alias(d)})
}

type QuizDraft struct {
	Title           string          `json:"title,omitempty"`
	Explanation     string          `json:"explanation,omitempty"`
	URL             string          `json:"url,omitempty"`
	VideoID         *int            `json:"video_id,omitempty"`
	Duration        int             `json:"duration,omitempty" validate:"gte=0"`
	VideoSourceType VideoSourceType `json:"video_source_type,omitempty" validate:"omitempty,oneof=upload external"`
}

func (QuizDraft) Type() Type               { return TypeQuiz }
func (QuizDraft) BlockType() lms.BlockType { return lms.BlockTypeQuiz }

func (d QuizDraft) MarshalJSON() ([]byte, error) {
	type alias QuizDraft
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{d.Type(), alias(d)})
}

// ProblemDraft is persisted as a Problem record referenced by a content block with empty content.
type ProblemDraft struct {
	Which         string             `json:"which,omitempty"`
	QuestionText  string             `json:"question_text" validate:"notblank"`
	QuestionType  lms.QuestionType   `json:"question_type" validate:"required,oneof=multiple_choice single_choice true_false fill_blank matching open_ended math_expression code diagram"`
	Options       []lms.Option       `json:"options" validate:"dive"`
	CorrectAnswer []string           `json:"correct_answer"`
	Explanation   string             `json:"explanation,omitempty"`
	XP            int                `json:"xp" validate:"gt=0"`
	DiagramConfig *lms.DiagramConfig `json:"diagram_config,omitempty"`
}

func (ProblemDraft) Type() Type               { return TypeProblem }
func (ProblemDraft) BlockType() lms.BlockType { return lms.BlockTypeProblem }

func (d ProblemDraft) MarshalJSON() ([]byte, error) {
	type alias ProblemDraft
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{d.Type(), alias(d)})
}

// AddOption appends an option with a fresh id and returns that id.
func (d *ProblemDraft) AddOption(text string) string {
	id := uuid.NewString()
	d.Options = append(d.Options, lms.Option{ID: id, Text: text})
	return id
}

// Input returns the Problem request body of the draft.
// The diagram configuration is only sent for diagram questions.
func (d ProblemDraft) Input() lms.ProblemInput {
	in := lms.ProblemInput{
		Which:         d.Which,
		QuestionText:  d.QuestionText,
		QuestionType:  d.QuestionType,
		Options:       d.Options,
		CorrectAnswer: d.CorrectAnswer,
		Explanation:   d.Explanation,
		XP:            d.XP,
	}
	if in.Options == nil {
		in.Options = []lms.Option{}
	}
	if in.CorrectAnswer == nil {
		in.CorrectAnswer = []string{}
	}
	if d.QuestionType == lms.QuestionDiagram {
		in.DiagramConfig = d.DiagramConfig
	}
	return in
}

// DefaultXP is the reward of a new problem.
const DefaultXP = 10

// NewDraft returns the default draft of type `t`.
func NewDraft(t Type) (Draft, error) {
	switch t {
	case TypeText:
		return TextDraft{}, nil
	case TypeTable:
		return TableDraft{Features: []Feature{}}, nil
	case TypeTableGrid:
		return TableGridDraft{Headers: []string{}, Rows: [][]string{}}, nil
	case TypeList:
		return ListDraft{Items: []string{}}, nil
	case TypeVideo:
		return VideoDraft{VideoSourceType: VideoSourceExternal}, nil
	case TypeQuiz:
		return QuizDraft{VideoSourceType: VideoSourceExternal}, nil
	case TypeProblem:
		return ProblemDraft{
			QuestionType:  lms.QuestionSingleChoice,
			Options:       []lms.Option{},
			CorrectAnswer: []string{},
			XP:            DefaultXP,
		}, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", t)
	}
}

// NewDiagramConfig returns an empty diagram configuration with a fresh id.
func NewDiagramConfig(diagramType string) *lms.DiagramConfig {
	return &lms.DiagramConfig{
		DiagramID:   uuid.NewString(),
		DiagramType: diagramType,
		ScaleWeight: 1,
		Objects:     []lms.DiagramObject{},
	}
}

// DecodeDraft decodes a JSON draft whose `type` field selects the variant.
func DecodeDraft(data []byte) (Draft, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrap(err, "decoding draft type")
	}
	d, err := decodeAs(head.Type, data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s draft", head.Type)
	}
	return d, nil
}

func decodeAs(t Type, data []byte) (Draft, error) {
	switch t {
	case TypeText:
		var d TextDraft
		err := json.Unmarshal(data, &d)
		return d, err
	case TypeTable:
		var d TableDraft
		err := json.Unmarshal(data, &d)
		return d, err
	case TypeTableGrid:
		var d TableGridDraft
		err := json.Unmarshal(data, &d)
		return d, err
	case TypeList:
		var d ListDraft
		err := json.Unmarshal(data, &d)
		return d, err
	case TypeVideo:
		var d VideoDraft
		err := json.Unmarshal(data, &d)
		if d.VideoSourceType == "" {
			d.VideoSourceType = videoSource(d.VideoID)
		}
		return d, err
	case TypeQuiz:
		var d QuizDraft
		err := json.Unmarshal(data, &d)
		if d.VideoSourceType == "" {
			d.VideoSourceType = videoSource(d.VideoID)
		}
		return d, err
	case TypeProblem:
		var d ProblemDraft
		err := json.Unmarshal(data, &d)
		return d, err
	default:
		return nil, fmt.Errorf("unknown content type %q", t)
	}
}
