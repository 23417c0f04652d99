package block_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core/block"
	"github.com/trezcool/masomo-admin/core/lms"
	"github.com/trezcool/masomo-admin/core/session"
	apisvc "github.com/trezcool/masomo-admin/services/api"
	"github.com/trezcool/masomo-admin/storage/inmem"
	testutil "github.com/trezcool/masomo-admin/tests"
)

const lessonID = 42

const (
	routeBlocks   = "lms/lesson-content-blocks/"
	routeBlock    = "lms/lesson-content-blocks/:id/"
	routeReorder  = "lms/lesson-content-blocks/reorder/"
	routeProblems = "lms/problems/"
	routeProblem  = "lms/problems/:id/"
)

type fixture struct {
	ctrl   *block.Controller
	fake   *testutil.FakeLMS
	logger *testutil.RecordingLogger
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	fake := testutil.NewFakeLMS(t)
	fake.AddLesson(lms.Lesson{ID: lessonID, Title: "Fractions", Course: 1})
	usr := fake.AddUser(lms.User{Email: "admin@masomo.cd", IsSuperuser: true}, "secret")

	sess, err := session.NewStore(ctx, inmem.New())
	require.NoError(t, err)
	require.NoError(t, sess.SetAuth(ctx, fake.IssueTokens(t, usr)))

	client, err := apisvc.New(fake.URL(), sess)
	require.NoError(t, err)

	logger := new(testutil.RecordingLogger)
	ctrl := block.NewController(client, lessonID, logger)
	require.NoError(t, ctrl.Load(ctx))
	fake.ResetRequests()
	return fixture{ctrl: ctrl, fake: fake, logger: logger}
}

func problemDraft(t *testing.T, qt lms.QuestionType, answers ...int) block.ProblemDraft {
	t.Helper()
	d, err := block.NewDraft(block.TypeProblem)
	require.NoError(t, err)
	pd := d.(block.ProblemDraft)
	pd.QuestionText = "What is 2 + 2?"
	pd.QuestionType = qt
	ids := []string{pd.AddOption("4"), pd.AddOption("5")}
	for _, a := range answers {
		pd.CorrectAnswer = append(pd.CorrectAnswer, ids[a])
	}
	return pd
}

func assertContiguous(t *testing.T, blocks []lms.ContentBlock) {
	t.Helper()
	for i, b := range blocks {
		if b.Order != i {
			t.Fatalf("blocks[%d].Order = %d, want %d (blocks: %+v)", i, b.Order, i, blocks)
		}
	}
}

func TestController_LessonScenario(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	assert.Empty(t, f.ctrl.Blocks())

	text, err := f.ctrl.Add(ctx, block.TextDraft{Title: "Intro", Text: "Hello"}, false)
	require.NoError(t, err)

	blocks := f.ctrl.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, 0, blocks[0].Order)
	assert.Equal(t, lms.BlockTypeText, blocks[0].BlockType)
	assert.Equal(t, "Intro", block.Title(blocks[0]))
	assert.Equal(t, text.ID, blocks[0].ID)

	var content map[string]interface{}
	require.NoError(t, json.Unmarshal(blocks[0].Content, &content))
	assert.Equal(t, "qoraal", content["type"])
	assert.Equal(t, "Hello", content["text"])

	problem, err := f.ctrl.Add(ctx, problemDraft(t, lms.QuestionSingleChoice, 0), false)
	require.NoError(t, err)

	blocks = f.ctrl.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, 1, blocks[1].Order)
	assert.Equal(t, lms.BlockTypeProblem, blocks[1].BlockType)
	require.NotNil(t, blocks[1].Problem)
	assert.JSONEq(t, `{}`, string(blocks[1].Content))
	stored, ok := f.fake.Problem(*blocks[1].Problem)
	require.True(t, ok)
	assert.Equal(t, "What is 2 + 2?", stored.QuestionText)
	assert.Len(t, stored.Options, 2)

	require.NoError(t, f.ctrl.Reorder(ctx, problem.ID, 0))

	blocks = f.ctrl.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, problem.ID, blocks[0].ID)
	assert.Equal(t, 0, blocks[0].Order)
	assert.Equal(t, text.ID, blocks[1].ID)
	assert.Equal(t, 1, blocks[1].Order)

	reorders := f.fake.RequestsTo(http.MethodPost, routeReorder)
	require.Len(t, reorders, 1)
	assert.JSONEq(t, fmt.Sprintf(`{"lesson_id": 42, "block_order": [%d, %d]}`, problem.ID, text.ID), string(reorders[0].Body))

	server := f.fake.Blocks(lessonID)
	assert.Equal(t, problem.ID, server[0].ID)
	assert.Equal(t, text.ID, server[1].ID)
	assert.Empty(t, f.ctrl.Err())
}

func TestController_Load(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for _, order := range []int{2, 0, 1} {
		f.fake.AddBlock(lms.ContentBlock{
			Lesson:    lessonID,
			BlockType: lms.BlockTypeText,
			Order:     order,
			Content:   json.RawMessage(fmt.Sprintf(`{"type":"qoraal","title":"block %d"}`, order)),
		})
	}
	f.fake.AddBlock(lms.ContentBlock{Lesson: lessonID + 1, BlockType: lms.BlockTypeText})

	require.NoError(t, f.ctrl.Load(ctx))
	blocks := f.ctrl.Blocks()
	require.Len(t, blocks, 3)
	for i, b := range blocks {
		assert.Equal(t, fmt.Sprintf("block %d", i), block.Title(b))
	}

	f.fake.Fail(http.MethodGet, routeBlocks, http.StatusInternalServerError, 1)
	err := f.ctrl.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, "Internal Server Error", f.ctrl.Err())
	assert.Len(t, f.ctrl.Blocks(), 3, "blocks kept on failure")
}

func TestController_AddRejectsInvalidDraftsBeforeAnyRequest(t *testing.T) {
	noAnswerInOptions := problemDraft(t, lms.QuestionMultipleChoice, 0)
	noAnswerInOptions.CorrectAnswer = append(noAnswerInOptions.CorrectAnswer, "missing-option")

	tests := []struct {
		name    string
		draft   block.Draft
		wantErr string
	}{
		{"single choice with 2 correct answers", problemDraft(t, lms.QuestionSingleChoice, 0, 1), "correct_answer: a single choice question accepts exactly one correct answer"},
		{"answer absent from options", noAnswerInOptions, "correct_answer: correct answers must reference existing options"},
		{"empty text", block.TextDraft{}, "text: enter some text or a title"},
		{"table-grid short row", block.TableGridDraft{Headers: []string{"A", "B"}, Rows: [][]string{{"1"}}}, "rows[0]: each row must have as many cells as the header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			_, err := f.ctrl.Add(context.Background(), tt.draft, false)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, f.ctrl.Err())
			assert.Empty(t, f.fake.Requests(), "no request may be issued")
			assert.Empty(t, f.ctrl.Blocks())
		})
	}
}

func TestController_AddKeepsFormOpenForNext(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	require.NoError(t, f.ctrl.OpenAddForm(block.TypeList))
	form := f.ctrl.Form()
	assert.True(t, form.Open)
	assert.Equal(t, 0, form.Order)

	_, err := f.ctrl.Add(ctx, block.ListDraft{Items: []string{"a", "b"}}, true)
	require.NoError(t, err)
	form = f.ctrl.Form()
	assert.True(t, form.Open)
	assert.Equal(t, block.TypeList, form.Type)
	assert.Equal(t, 1, form.Order)
	assert.Equal(t, block.ListDraft{Items: []string{}}, form.Draft)

	_, err = f.ctrl.Add(ctx, block.ListDraft{Title: "Summary"}, false)
	require.NoError(t, err)
	assert.False(t, f.ctrl.Form().Open)
	assertContiguous(t, f.ctrl.Blocks())
}

func TestController_AddProblemCompensatesOrphan(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.fake.Fail(http.MethodPost, routeBlocks, http.StatusInternalServerError, 1)

	_, err := f.ctrl.Add(ctx, problemDraft(t, lms.QuestionSingleChoice, 0), false)
	require.Error(t, err)
	assert.Equal(t, "Internal Server Error", f.ctrl.Err())
	assert.Empty(t, f.ctrl.Blocks())

	require.Len(t, f.fake.RequestsTo(http.MethodPost, routeProblems), 1)
	deletes := f.fake.RequestsTo(http.MethodDelete, routeProblem)
	require.Len(t, deletes, 1, "compensating delete")
	assert.Empty(t, f.fake.Problems(), "created problem deleted")

	// a failing compensation is only logged
	f.fake.Fail(http.MethodPost, routeBlocks, http.StatusInternalServerError, 1)
	f.fake.Fail(http.MethodDelete, routeProblem, http.StatusInternalServerError, 1)
	_, err = f.ctrl.Add(ctx, problemDraft(t, lms.QuestionSingleChoice, 1), false)
	require.Error(t, err)
	assert.Equal(t, "Internal Server Error", f.ctrl.Err(), "original error surfaced")
	assert.Len(t, f.fake.Problems(), 1, "orphan left behind")
	assert.NotEmpty(t, f.logger.Level("warn"))
}

func TestController_Update(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	text, err := f.ctrl.Add(ctx, block.TextDraft{Title: "Intro", Text: "Hello"}, false)
	require.NoError(t, err)
	problem, err := f.ctrl.Add(ctx, problemDraft(t, lms.QuestionSingleChoice, 0), false)
	require.NoError(t, err)
	problemID := *problem.Problem

	t.Run("text", func(t *testing.T) {
		updated, err := f.ctrl.Update(ctx, text.ID, block.TextDraft{Title: "Introduction", Text: "Hello"})
		require.NoError(t, err)
		assert.Equal(t, "Introduction", block.Title(updated))
		assert.Equal(t, "Introduction", block.Title(f.ctrl.Blocks()[0]))
		assert.Len(t, f.fake.RequestsTo(http.MethodPut, routeBlock), 1)
	})

	t.Run("problem", func(t *testing.T) {
		f.fake.ResetRequests()
		pd := problemDraft(t, lms.QuestionSingleChoice, 1)
		pd.QuestionText = "What is 2 + 3?"
		_, err := f.ctrl.Update(ctx, problem.ID, pd)
		require.NoError(t, err)

		stored, ok := f.fake.Problem(problemID)
		require.True(t, ok)
		assert.Equal(t, "What is 2 + 3?", stored.QuestionText)
		assert.Len(t, f.fake.RequestsTo(http.MethodPut, routeProblem), 1)
		assert.Empty(t, f.fake.RequestsTo(http.MethodPost, routeProblems))
	})

	t.Run("failure leaves the list unchanged", func(t *testing.T) {
		before := f.ctrl.Blocks()
		f.fake.Fail(http.MethodPut, routeBlock, http.StatusBadRequest, 1)
		_, err := f.ctrl.Update(ctx, text.ID, block.TextDraft{Title: "Changed"})
		require.Error(t, err)
		assert.Equal(t, "Bad Request", f.ctrl.Err())
		assert.Equal(t, before, f.ctrl.Blocks())
	})

	t.Run("invalid draft", func(t *testing.T) {
		f.fake.ResetRequests()
		_, err := f.ctrl.Update(ctx, text.ID, block.TableDraft{})
		require.Error(t, err)
		assert.Empty(t, f.fake.Requests())
	})

	t.Run("problem to text deletes the problem", func(t *testing.T) {
		updated, err := f.ctrl.Update(ctx, problem.ID, block.TextDraft{Text: "No more question"})
		require.NoError(t, err)
		assert.Equal(t, lms.BlockTypeText, updated.BlockType)
		assert.Nil(t, updated.Problem)
		_, ok := f.fake.Problem(problemID)
		assert.False(t, ok)
	})

	t.Run("text to problem creates a problem", func(t *testing.T) {
		updated, err := f.ctrl.Update(ctx, text.ID, problemDraft(t, lms.QuestionMultipleChoice, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, lms.BlockTypeProblem, updated.BlockType)
		require.NotNil(t, updated.Problem)
		_, ok := f.fake.Problem(*updated.Problem)
		assert.True(t, ok)
		assert.Equal(t, text.ID, updated.ID)
	})

	assertContiguous(t, f.ctrl.Blocks())
}

func TestController_Delete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first, err := f.ctrl.Add(ctx, block.TextDraft{Title: "First"}, false)
	require.NoError(t, err)
	problem, err := f.ctrl.Add(ctx, problemDraft(t, lms.QuestionSingleChoice, 0), false)
	require.NoError(t, err)
	_, err = f.ctrl.Add(ctx, block.TextDraft{Title: "Last"}, false)
	require.NoError(t, err)

	t.Run("problem delete failure is only logged", func(t *testing.T) {
		f.fake.Fail(http.MethodDelete, routeProblem, http.StatusInternalServerError, 1)
		require.NoError(t, f.ctrl.Delete(ctx, problem.ID))

		blocks := f.ctrl.Blocks()
		require.Len(t, blocks, 2)
		assertContiguous(t, blocks)
		assert.Len(t, f.fake.RequestsTo(http.MethodDelete, routeProblem), 1)
		assert.Len(t, f.fake.Problems(), 1, "problem left behind")
		assert.Len(t, f.logger.Level("warn"), 1)
		assert.Empty(t, f.ctrl.Err())
	})

	t.Run("block delete failure", func(t *testing.T) {
		f.fake.Fail(http.MethodDelete, routeBlock, http.StatusForbidden, 1)
		require.Error(t, f.ctrl.Delete(ctx, first.ID))
		assert.Len(t, f.ctrl.Blocks(), 2)
		assert.Equal(t, "Forbidden", f.ctrl.Err())
	})

	t.Run("unknown block", func(t *testing.T) {
		require.ErrorIs(t, f.ctrl.Delete(ctx, 9999), block.ErrBlockNotFound)
	})
}

func TestController_ReorderOutOfRangeIsNoop(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for _, title := range []string{"a", "b", "c"} {
		_, err := f.ctrl.Add(ctx, block.TextDraft{Title: title}, false)
		require.NoError(t, err)
	}
	before := f.ctrl.Blocks()
	f.fake.ResetRequests()

	for _, idx := range []int{-1, len(before)} {
		require.NoError(t, f.ctrl.Reorder(ctx, before[1].ID, idx))
		assert.Equal(t, before, f.ctrl.Blocks())
	}
	assert.Empty(t, f.fake.Requests())
}

func TestController_ReorderFailureRefetches(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for _, title := range []string{"a", "b"} {
		_, err := f.ctrl.Add(ctx, block.TextDraft{Title: title}, false)
		require.NoError(t, err)
	}
	blocks := f.ctrl.Blocks()

	// written by someone else while the reorder fails
	f.fake.AddBlock(lms.ContentBlock{
		Lesson:    lessonID,
		BlockType: lms.BlockTypeText,
		Order:     2,
		Content:   json.RawMessage(`{"type":"qoraal","title":"c"}`),
	})
	f.fake.Fail(http.MethodPost, routeReorder, http.StatusInternalServerError, 1)

	require.Error(t, f.ctrl.Reorder(ctx, blocks[1].ID, 0))

	got := f.ctrl.Blocks()
	require.Len(t, got, 3, "list replaced by the server's")
	for i, title := range []string{"a", "b", "c"} {
		assert.Equal(t, title, block.Title(got[i]))
	}
	assert.Len(t, f.fake.RequestsTo(http.MethodGet, routeBlocks), 1)
}

func TestController_OrderStaysContiguous(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 40; i++ {
		blocks := f.ctrl.Blocks()
		switch op := rnd.Intn(3); {
		case op == 0 || len(blocks) < 2:
			var d block.Draft = block.TextDraft{Title: fmt.Sprintf("block %d", i)}
			if rnd.Intn(3) == 0 {
				d = problemDraft(t, lms.QuestionSingleChoice, rnd.Intn(2))
			}
			_, err := f.ctrl.Add(ctx, d, rnd.Intn(2) == 0)
			require.NoError(t, err)
		case op == 1:
			require.NoError(t, f.ctrl.Delete(ctx, blocks[rnd.Intn(len(blocks))].ID))
		default:
			b := blocks[rnd.Intn(len(blocks))]
			require.NoError(t, f.ctrl.Reorder(ctx, b.ID, rnd.Intn(len(blocks))))
		}
		assertContiguous(t, f.ctrl.Blocks())
	}
}

func TestController_EditDraft(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	grid := block.TableGridDraft{Title: "Scores", Headers: []string{"Name", "Score"}, Rows: [][]string{{"Ada", "10"}}}
	gb, err := f.ctrl.Add(ctx, grid, false)
	require.NoError(t, err)
	pb, err := f.ctrl.Add(ctx, problemDraft(t, lms.QuestionSingleChoice, 0), false)
	require.NoError(t, err)

	d, err := f.ctrl.EditDraft(ctx, gb.ID)
	require.NoError(t, err)
	assert.Equal(t, grid, d)

	d, err = f.ctrl.EditDraft(ctx, pb.ID)
	require.NoError(t, err)
	pd, ok := d.(block.ProblemDraft)
	require.True(t, ok, "draft is %T", d)
	assert.Equal(t, "What is 2 + 2?", pd.QuestionText)
	assert.Len(t, pd.Options, 2)
	assert.Len(t, f.fake.RequestsTo(http.MethodGet, routeProblem), 1)
}

func TestController_SanitizesBeforePersisting(t *testing.T) {
	f := setup(t)
	_, err := f.ctrl.Add(context.Background(), block.TextDraft{Text: `<p>Hi<script>alert(1)</script></p>`}, false)
	require.NoError(t, err)

	reqs := f.fake.RequestsTo(http.MethodPost, routeBlocks)
	require.Len(t, reqs, 1)
	assert.False(t, strings.Contains(string(reqs[0].Body), "script"), "body: %s", reqs[0].Body)
}

func TestNewController_PanicsOnBadArguments(t *testing.T) {
	assert.Panics(t, func() { block.NewController(nil, lessonID, testutil.NopLogger{}) })
	assert.Panics(t, func() { block.NewController(&apisvc.Client{}, 0, testutil.NopLogger{}) })
}
