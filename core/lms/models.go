package lms

import (
	"encoding/json"
	"time"
)

// BlockType is the server side kind of a ContentBlock.
type BlockType string

const (
	BlockTypeText    BlockType = "text"
	BlockTypeVideo   BlockType = "video"
	BlockTypeQuiz    BlockType = "quiz"
	BlockTypeProblem BlockType = "problem"
)

var BlockTypes = []BlockType{BlockTypeText, BlockTypeVideo, BlockTypeQuiz, BlockTypeProblem}

// QuestionType is the kind of question a Problem asks.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionMatching       QuestionType = "matching"
	QuestionOpenEnded      QuestionType = "open_ended"
	QuestionMathExpression QuestionType = "math_expression"
	QuestionCode           QuestionType = "code"
	QuestionDiagram        QuestionType = "diagram"
)

var QuestionTypes = []QuestionType{
	QuestionMultipleChoice,
	QuestionSingleChoice,
	QuestionTrueFalse,
	QuestionFillBlank,
	QuestionMatching,
	QuestionOpenEnded,
	QuestionMathExpression,
	QuestionCode,
	QuestionDiagram,
}

// IsChoice reports whether answers of qt are picked among options.
func (qt QuestionType) IsChoice() bool {
	return qt == QuestionMultipleChoice || qt == QuestionSingleChoice
}

type User struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	IsSuperuser bool   `json:"is_superuser"`
	IsStaff     bool   `json:"is_staff"`
}

type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
}

type Course struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	Category    int    `json:"category"`
	IsPublished bool   `json:"is_published"`
}

type Lesson struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Course      int    `json:"course"`
	Order       int    `json:"order"`
}

type Video struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	File      string    `json:"file"`
	Duration  int       `json:"duration,omitempty"` // seconds
	CreatedAt time.Time `json:"created_at"`
}

// ContentBlock is one ordered unit of lesson content.
// Content's shape depends on BlockType and on its embedded `type`.
type ContentBlock struct {
	ID        int             `json:"id"`
	BlockType BlockType       `json:"block_type"`
	Content   json.RawMessage `json:"content"`
	Order     int             `json:"order"`
	Lesson    int             `json:"lesson"`
	Problem   *int            `json:"problem"`
}

// ContentBlockInput is the body of a content block create or full replace.
type ContentBlockInput struct {
	Lesson    int             `json:"lesson"`
	BlockType BlockType       `json:"block_type"`
	Content   json.RawMessage `json:"content"`
	Order     int             `json:"order"`
	Problem   *int            `json:"problem"`
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text" validate:"notblank"`
}

type Layout struct {
	Rows      int    `json:"rows" validate:"gte=1"`
	Columns   int    `json:"columns" validate:"gte=1"`
	Position  string `json:"position" validate:"oneof=top bottom left right center"`
	Alignment string `json:"alignment" validate:"oneof=left center right"`
}

type DiagramObject struct {
	Type        string   `json:"type" validate:"notblank"`
	Color       string   `json:"color"`
	Number      int      `json:"number" validate:"gte=0"`
	Position    string   `json:"position"`
	WeightValue *float64 `json:"weight_value,omitempty"`
	Layout      Layout   `json:"layout"`
}

type DiagramConfig struct {
	DiagramID   string          `json:"diagram_id" validate:"notblank"`
	DiagramType string          `json:"diagram_type" validate:"notblank,alphanum_"`
	ScaleWeight float64         `json:"scale_weight"`
	Objects     []DiagramObject `json:"objects" validate:"dive"`
}

// Problem is the question record referenced by a `problem` ContentBlock.
type Problem struct {
	ID            int            `json:"id"`
	Which         string         `json:"which,omitempty"`
	QuestionText  string         `json:"question_text"`
	QuestionType  QuestionType   `json:"question_type"`
	Options       []Option       `json:"options"`
	CorrectAnswer []string       `json:"correct_answer"`
	Explanation   string         `json:"explanation,omitempty"`
	XP            int            `json:"xp"`
	DiagramConfig *DiagramConfig `json:"diagram_config,omitempty"`
}

// ProblemInput is the body of a problem create or full replace.
type ProblemInput struct {
	Which         string         `json:"which,omitempty"`
	QuestionText  string         `json:"question_text"`
	QuestionType  QuestionType   `json:"question_type"`
	Options       []Option       `json:"options"`
	CorrectAnswer []string       `json:"correct_answer"`
	Explanation   string         `json:"explanation,omitempty"`
	XP            int            `json:"xp"`
	DiagramConfig *DiagramConfig `json:"diagram_config,omitempty"`
}

// Page is a paginated list response.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasNext reports whether another page follows.
func (p Page[T]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// AuthTokens is returned by sign in.
type AuthTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}
