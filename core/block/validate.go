package block

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/lms"
)

var (
	textOrTitleTag  = "text_or_title"
	textOrTitleText = "enter some text or a title"

	itemsOrTitleTag  = "items_or_title"
	itemsOrTitleText = "add at least one item or a title"

	minFeaturesTag  = "min_features"
	minFeaturesText = "add at least one feature"

	minColumnsTag  = "min_columns"
	minColumnsText = "add at least one column"

	minRowsTag  = "min_rows"
	minRowsText = "add at least one row"

	rowLenTag  = "row_len"
	rowLenText = "each row must have as many cells as the header"

	videoSourceTag  = "video_source"
	videoSourceText = "provide a video URL or upload a video"

	quizSourceTag  = "quiz_source"
	quizSourceText = "provide a video URL, an uploaded video or a title"

	choiceOptionsTag  = "choice_options"
	choiceOptionsText = "add at least one option"

	choiceAnswerTag  = "choice_answer"
	choiceAnswerText = "select at least one correct answer"

	singleAnswerTag  = "single_answer"
	singleAnswerText = "a single choice question accepts exactly one correct answer"

	answerInOptionsTag  = "answer_in_options"
	answerInOptionsText = "correct answers must reference existing options"

	diagramRequiredTag  = "diagram_required"
	diagramRequiredText = "a diagram configuration is required"

	// rich text produced by the editor widget
	richTextPolicy = bluemonday.UGCPolicy()
)

func init() {
	core.Validate.RegisterStructValidation(textStructValidation, TextDraft{})
	core.Validate.RegisterStructValidation(listStructValidation, ListDraft{})
	core.Validate.RegisterStructValidation(tableStructValidation, TableDraft{})
	core.Validate.RegisterStructValidation(tableGridStructValidation, TableGridDraft{})
	core.Validate.RegisterStructValidation(videoStructValidation, VideoDraft{})
	core.Validate.RegisterStructValidation(quizStructValidation, QuizDraft{})
	core.Validate.RegisterStructValidation(problemStructValidation, ProblemDraft{})

	core.RegisterCustomTranslation(textOrTitleTag, textOrTitleText)
	core.RegisterCustomTranslation(itemsOrTitleTag, itemsOrTitleText)
	core.RegisterCustomTranslation(minFeaturesTag, minFeaturesText)
	core.RegisterCustomTranslation(minColumnsTag, minColumnsText)
	core.RegisterCustomTranslation(minRowsTag, minRowsText)
	core.RegisterCustomTranslation(rowLenTag, rowLenText)
	core.RegisterCustomTranslation(videoSourceTag, videoSourceText)
	core.RegisterCustomTranslation(quizSourceTag, quizSourceText)
	core.RegisterCustomTranslation(choiceOptionsTag, choiceOptionsText)
	core.RegisterCustomTranslation(choiceAnswerTag, choiceAnswerText)
	core.RegisterCustomTranslation(singleAnswerTag, singleAnswerText)
	core.RegisterCustomTranslation(answerInOptionsTag, answerInOptionsText)
	core.RegisterCustomTranslation(diagramRequiredTag, diagramRequiredText)
}

func (d TextDraft) Validate() error      { return core.ValidateStruct(d) }
func (d ListDraft) Validate() error      { return core.ValidateStruct(d) }
func (d TableDraft) Validate() error     { return core.ValidateStruct(d) }
func (d TableGridDraft) Validate() error { return core.ValidateStruct(d) }
func (d VideoDraft) Validate() error     { return core.ValidateStruct(d) }
func (d QuizDraft) Validate() error      { return core.ValidateStruct(d) }

func (d ProblemDraft) Validate() error {
	if d.QuestionType != lms.QuestionDiagram {
		d.DiagramConfig = nil // not sent for other question types
	}
	return core.ValidateStruct(d)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func textStructValidation(sl validator.StructLevel) {
	d := sl.Current().Interface().(TextDraft)
	if !blank(d.Title) {
		return
	}
	for _, s := range d.Segments() {
		if !blank(s) {
			return
		}
	}
	sl.ReportError(d.Text, "text", "Text", textOrTitleTag, "")
}

func listStructValidation(sl validator.StructLevel) {
	d := sl.Current().Interface().(ListDraft)
	if !blank(d.Title) {
		return
	}
	for _, item := range d.Items {
		if !blank(item) {
			return
		}
	}
	sl.ReportError(d.Items, "items", "Items", itemsOrTitleTag, "")
}

func tableStructValidation(sl validator.StructLevel) {
	d := sl.Current().Interface().(TableDraft)
	if len(d.Features) == 0 {
		sl.ReportError(d.Features, "features", "Features", minFeaturesTag, "")
	}
}

// tableGridStructValidation rejects grids whose rows do not match the header length.
func tableGridStructValidation(sl validator.StructLevel) {
	d := sl.Current().Interface().(TableGridDraft)
	if len(d.Rows) == 0 {
		sl.ReportError(d.Rows, "rows", "Rows", minRowsTag, "")
		return
	}
	if len(d.Headers) == 0 {
		sl.ReportError(d.Headers, "headers", "Headers", minColumnsTag, "")
		return
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			sl.ReportError(row, "rows["+strconv.Itoa(i)+"]", "Rows", rowLenTag, "")
		}
	}
}

func videoStructValidation(sl validator.StructLevel) {
	d := sl.Current().Interface().(VideoDraft)
	if blank(d.URL) && d.VideoID == nil {
		sl.ReportError(d.URL, "url", "URL", videoSourceTag, "")
	}
}

func quizStructValidation(sl validator.StructLevel) {
	d := sl.Current().Interface().(QuizDraft)
	if blank(d.URL) && d.VideoID == nil && blank(d.Title) {
		sl.ReportError(d.URL, "url", "URL", quizSourceTag, "")
	}
}

func problemStructValidation(sl validator.StructLevel) {
	d := sl.Current().Interface().(ProblemDraft)

	switch {
	case d.QuestionType.IsChoice():
		if len(d.Options) == 0 {
			sl.ReportError(d.Options, "options", "Options", choiceOptionsTag, "")
		}
		if len(d.CorrectAnswer) == 0 {
			sl.ReportError(d.CorrectAnswer, "correct_answer", "CorrectAnswer", choiceAnswerTag, "")
			return
		}
		if d.QuestionType == lms.QuestionSingleChoice && len(d.CorrectAnswer) > 1 {
			sl.ReportError(d.CorrectAnswer, "correct_answer", "CorrectAnswer", singleAnswerTag, "")
			return
		}
		ids := make(map[string]struct{}, len(d.Options))
		for _, opt := range d.Options {
			ids[opt.ID] = struct{}{}
		}
		for _, ans := range d.CorrectAnswer {
			if _, ok := ids[ans]; !ok {
				sl.ReportError(d.CorrectAnswer, "correct_answer", "CorrectAnswer", answerInOptionsTag, "")
				return
			}
		}
	case d.QuestionType == lms.QuestionDiagram:
		if d.DiagramConfig == nil {
			sl.ReportError(d.DiagramConfig, "diagram_config", "DiagramConfig", diagramRequiredTag, "")
		}
	}
}

// Sanitize cleans the rich text fields of `d` before persistence.
func Sanitize(d Draft) Draft {
	return d.sanitize(richTextPolicy)
}

func (d TextDraft) sanitize(p *bluemonday.Policy) Draft {
	d.Text = p.Sanitize(d.Text)
	d.Text1 = p.Sanitize(d.Text1)
	d.Text2 = p.Sanitize(d.Text2)
	d.Text3 = p.Sanitize(d.Text3)
	d.Text4 = p.Sanitize(d.Text4)
	d.Text5 = p.Sanitize(d.Text5)
	return d
}

func (d TableDraft) sanitize(p *bluemonday.Policy) Draft {
	d.Text = p.Sanitize(d.Text)
	features := make([]Feature, len(d.Features))
	for i, f := range d.Features {
		features[i] = Feature{Title: f.Title, Text: p.Sanitize(f.Text)}
	}
	d.Features = features
	return d
}

func (d TableGridDraft) sanitize(p *bluemonday.Policy) Draft {
	d.Text = p.Sanitize(d.Text)
	return d
}

// sanitize drops blank items.
func (d ListDraft) sanitize(_ *bluemonday.Policy) Draft {
	items := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		if !blank(item) {
			items = append(items, strings.TrimSpace(item))
		}
	}
	d.Items = items
	return d
}

func (d VideoDraft) sanitize(p *bluemonday.Policy) Draft {
	d.Description = p.Sanitize(d.Description)
	return d
}

func (d QuizDraft) sanitize(p *bluemonday.Policy) Draft {
	d.Explanation = p.Sanitize(d.Explanation)
	return d
}

func (d ProblemDraft) sanitize(p *bluemonday.Policy) Draft {
	d.Explanation = p.Sanitize(d.Explanation)
	if d.QuestionType != lms.QuestionDiagram {
		d.DiagramConfig = nil
	}
	return d
}
