package block

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/lms"
	"github.com/trezcool/masomo-admin/core/optimistic"
	"github.com/trezcool/masomo-admin/core/saga"
)

// API is the part of the remote LMS API the controller relies on.
type API interface {
	ListContentBlocks(ctx context.Context, lessonID int) ([]lms.ContentBlock, error)
	CreateContentBlock(ctx context.Context, in lms.ContentBlockInput) (lms.ContentBlock, error)
	ReplaceContentBlock(ctx context.Context, id int, in lms.ContentBlockInput) (lms.ContentBlock, error)
	DeleteContentBlock(ctx context.Context, id int) error
	ReorderContentBlocks(ctx context.Context, lessonID int, blockIDs []int) error

	CreateProblem(ctx context.Context, in lms.ProblemInput) (lms.Problem, error)
	ReplaceProblem(ctx context.Context, id int, in lms.ProblemInput) (lms.Problem, error)
	DeleteProblem(ctx context.Context, id int) error
	GetProblem(ctx context.Context, id int) (lms.Problem, error)
}

var ErrBlockNotFound = errors.New("content block not found")

// Controller owns the ordered content blocks of one lesson and mediates their mutations.
// Operations are not mutually exclusive: callers issue one at a time.
type Controller struct {
	api      API
	lessonID int
	logger   core.Logger

	blocks *optimistic.Value[[]lms.ContentBlock]

	mu   sync.Mutex
	err  string
	form Form
}

func NewController(api API, lessonID int, logger core.Logger) *Controller {
	vala.BeginValidation().Validate(
		vala.IsNotNil(api, "api"),
		vala.IsNotNil(logger, "logger"),
		vala.GreaterThan(lessonID, 0, "lessonID"),
	).CheckAndPanic()

	return &Controller{
		api:      api,
		lessonID: lessonID,
		logger:   logger,
		blocks:   optimistic.New([]lms.ContentBlock{}, cloneBlocks),
	}
}

func (c *Controller) LessonID() int { return c.lessonID }

// Blocks returns a copy of the blocks, in order.
func (c *Controller) Blocks() []lms.ContentBlock {
	return c.blocks.Get()
}

// Err returns the user-visible message of the last failed operation, if any.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Form returns the add-block form state.
func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// OpenAddForm opens the add-block form for type `t`, positioned at the end of the list.
func (c *Controller) OpenAddForm(t Type) error {
	n := len(c.blocks.Get())
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.OpenAdd(t, n)
}

func (c *Controller) CloseAddForm() {
	c.mu.Lock()
	c.form.Close()
	c.mu.Unlock()
}

// fail records the user-visible message of `err` and returns it unchanged.
func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.err = core.ErrorMessage(err)
	c.mu.Unlock()
	return err
}

func (c *Controller) clearErr() {
	c.mu.Lock()
	c.err = ""
	c.mu.Unlock()
}

func (c *Controller) fetch(ctx context.Context) ([]lms.ContentBlock, error) {
	blocks, err := c.api.ListContentBlocks(ctx, c.lessonID)
	if err != nil {
		return nil, errors.Wrap(err, "listing content blocks")
	}
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Order < blocks[j].Order })
	return blocks, nil
}

// Load replaces the blocks with the lesson's blocks sorted by order.
// On failure the blocks are left as they were.
func (c *Controller) Load(ctx context.Context) error {
	blocks, err := c.fetch(ctx)
	if err != nil {
		return c.fail(err)
	}
	c.blocks.Set(blocks)
	c.clearErr()
	return nil
}

// Add validates and persists `draft` at the end of the list.
// With `keepOpen` the add form is reset for another block of the same type, otherwise it closes.
func (c *Controller) Add(ctx context.Context, draft Draft, keepOpen bool) (lms.ContentBlock, error) {
	if err := draft.Validate(); err != nil {
		return lms.ContentBlock{}, c.fail(err)
	}
	draft = Sanitize(draft)

	order := len(c.blocks.Get())
	created, err := c.create(ctx, draft, order)
	if err != nil {
		return lms.ContentBlock{}, c.fail(err)
	}

	blocks := c.blocks.Modify(func(blocks []lms.ContentBlock) []lms.ContentBlock {
		return renumber(insertAt(blocks, created, order))
	})
	created = blocks[min(order, len(blocks)-1)]

	c.mu.Lock()
	c.err = ""
	if keepOpen {
		c.form.Type = draft.Type()
		c.form.ResetForNext(len(blocks))
	} else {
		c.form.Close()
	}
	c.mu.Unlock()
	return created, nil
}

func (c *Controller) create(ctx context.Context, draft Draft, order int) (lms.ContentBlock, error) {
	if pd, ok := draft.(ProblemDraft); ok {
		return c.createProblemBlock(ctx, pd, order, nil)
	}
	content, err := Content(draft)
	if err != nil {
		return lms.ContentBlock{}, err
	}
	b, err := c.api.CreateContentBlock(ctx, lms.ContentBlockInput{
		Lesson:    c.lessonID,
		BlockType: draft.BlockType(),
		Content:   content,
		Order:     order,
	})
	return b, errors.Wrap(err, "creating content block")
}

// createProblemBlock creates the Problem then the block referencing it, or replaces block
// `replaceID` when not nil. The Problem is deleted again if the block write fails.
func (c *Controller) createProblemBlock(ctx context.Context, d ProblemDraft, order int, replaceID *int) (lms.ContentBlock, error) {
	return saga.Pair(ctx, c.logger, "add problem block",
		func(ctx context.Context) (lms.Problem, error) {
			p, err := c.api.CreateProblem(ctx, d.Input())
			return p, errors.Wrap(err, "creating problem")
		},
		func(ctx context.Context, p lms.Problem) (lms.ContentBlock, error) {
			in := problemBlockInput(c.lessonID, order, p.ID)
			if replaceID != nil {
				b, err := c.api.ReplaceContentBlock(ctx, *replaceID, in)
				return b, errors.Wrap(err, "replacing content block")
			}
			b, err := c.api.CreateContentBlock(ctx, in)
			return b, errors.Wrap(err, "creating content block")
		},
		func(ctx context.Context, p lms.Problem) error {
			return c.api.DeleteProblem(ctx, p.ID)
		},
	)
}

func problemBlockInput(lessonID, order, problemID int) lms.ContentBlockInput {
	id := problemID
	return lms.ContentBlockInput{
		Lesson:    lessonID,
		BlockType: lms.BlockTypeProblem,
		Content:   emptyContent,
		Order:     order,
		Problem:   &id,
	}
}

// Update validates `draft` and fully replaces block `blockID` (and its Problem) with it.
// The list is left unchanged on failure.
func (c *Controller) Update(ctx context.Context, blockID int, draft Draft) (lms.ContentBlock, error) {
	if err := draft.Validate(); err != nil {
		return lms.ContentBlock{}, c.fail(err)
	}
	draft = Sanitize(draft)

	current, ok := c.find(blockID)
	if !ok {
		return lms.ContentBlock{}, c.fail(errors.Wrapf(ErrBlockNotFound, "block %d", blockID))
	}

	updated, err := c.replace(ctx, current, draft)
	if err != nil {
		return lms.ContentBlock{}, c.fail(err)
	}

	c.blocks.Modify(func(blocks []lms.ContentBlock) []lms.ContentBlock {
		for i := range blocks {
			if blocks[i].ID == blockID {
				blocks[i] = updated
			}
		}
		return blocks
	})
	c.clearErr()
	return updated, nil
}

func (c *Controller) replace(ctx context.Context, current lms.ContentBlock, draft Draft) (lms.ContentBlock, error) {
	pd, isProblem := draft.(ProblemDraft)
	hadProblem := current.BlockType == lms.BlockTypeProblem && current.Problem != nil

	switch {
	case isProblem && hadProblem:
		// both already exist: no compensation possible
		if _, err := c.api.ReplaceProblem(ctx, *current.Problem, pd.Input()); err != nil {
			return lms.ContentBlock{}, errors.Wrap(err, "replacing problem")
		}
		b, err := c.api.ReplaceContentBlock(ctx, current.ID, problemBlockInput(c.lessonID, current.Order, *current.Problem))
		return b, errors.Wrap(err, "replacing content block")

	case isProblem:
		id := current.ID
		return c.createProblemBlock(ctx, pd, current.Order, &id)

	default:
		content, err := Content(draft)
		if err != nil {
			return lms.ContentBlock{}, err
		}
		b, err := c.api.ReplaceContentBlock(ctx, current.ID, lms.ContentBlockInput{
			Lesson:    c.lessonID,
			BlockType: draft.BlockType(),
			Content:   content,
			Order:     current.Order,
		})
		if err != nil {
			return lms.ContentBlock{}, errors.Wrap(err, "replacing content block")
		}
		if hadProblem {
			c.deleteProblem(ctx, *current.Problem)
		}
		return b, nil
	}
}

// Delete deletes block `blockID`, then its Problem if it has one.
// A failed Problem delete is only logged: the block is gone either way.
func (c *Controller) Delete(ctx context.Context, blockID int) error {
	current, ok := c.find(blockID)
	if !ok {
		return c.fail(errors.Wrapf(ErrBlockNotFound, "block %d", blockID))
	}

	if err := c.api.DeleteContentBlock(ctx, blockID); err != nil {
		return c.fail(errors.Wrap(err, "deleting content block"))
	}

	c.blocks.Modify(func(blocks []lms.ContentBlock) []lms.ContentBlock {
		kept := blocks[:0]
		for _, b := range blocks {
			if b.ID != blockID {
				kept = append(kept, b)
			}
		}
		return renumber(kept)
	})
	c.clearErr()

	if current.BlockType == lms.BlockTypeProblem && current.Problem != nil {
		c.deleteProblem(ctx, *current.Problem)
	}
	return nil
}

func (c *Controller) deleteProblem(ctx context.Context, problemID int) {
	if err := c.api.DeleteProblem(ctx, problemID); err != nil {
		c.logger.Warn(fmt.Sprintf("deleting problem %d failed", problemID), err)
	}
}

// Reorder moves block `blockID` to `newIndex`. Out of range indexes are ignored.
// The move is applied locally before the server is told; if the server rejects it
// the list is reloaded from the server.
func (c *Controller) Reorder(ctx context.Context, blockID, newIndex int) error {
	blocks := c.blocks.Get()
	if newIndex < 0 || newIndex >= len(blocks) {
		return nil
	}
	from := indexOf(blocks, blockID)
	if from < 0 {
		return c.fail(errors.Wrapf(ErrBlockNotFound, "block %d", blockID))
	}
	if from == newIndex {
		return nil
	}

	var ids []int
	move := func(blocks []lms.ContentBlock) []lms.ContentBlock {
		from := indexOf(blocks, blockID)
		if from < 0 {
			return blocks
		}
		b := blocks[from]
		blocks = append(blocks[:from], blocks[from+1:]...)
		blocks = renumber(insertAt(blocks, b, newIndex))
		ids = blockIDs(blocks)
		return blocks
	}
	commit := func(ctx context.Context) error {
		return errors.Wrap(c.api.ReorderContentBlocks(ctx, c.lessonID, ids), "reordering content blocks")
	}

	if err := c.blocks.Update(ctx, move, commit, optimistic.Refetch(c.fetch)); err != nil {
		return c.fail(err)
	}
	c.clearErr()
	return nil
}

// EditDraft returns the draft of block `blockID`, for the edit form.
func (c *Controller) EditDraft(ctx context.Context, blockID int) (Draft, error) {
	b, ok := c.find(blockID)
	if !ok {
		return nil, c.fail(errors.Wrapf(ErrBlockNotFound, "block %d", blockID))
	}
	var problem *lms.Problem
	if b.BlockType == lms.BlockTypeProblem && b.Problem != nil {
		p, err := c.api.GetProblem(ctx, *b.Problem)
		if err != nil {
			return nil, c.fail(errors.Wrap(err, "loading problem"))
		}
		problem = &p
	}
	d, err := ParseDraft(b, problem)
	if err != nil {
		return nil, c.fail(err)
	}
	return d, nil
}

func (c *Controller) find(blockID int) (lms.ContentBlock, bool) {
	for _, b := range c.blocks.Get() {
		if b.ID == blockID {
			return b, true
		}
	}
	return lms.ContentBlock{}, false
}

func indexOf(blocks []lms.ContentBlock, id int) int {
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func insertAt(blocks []lms.ContentBlock, b lms.ContentBlock, i int) []lms.ContentBlock {
	if i > len(blocks) {
		i = len(blocks)
	}
	blocks = append(blocks, lms.ContentBlock{})
	copy(blocks[i+1:], blocks[i:])
	blocks[i] = b
	return blocks
}

// renumber sets every block's order to its index.
func renumber(blocks []lms.ContentBlock) []lms.ContentBlock {
	for i := range blocks {
		blocks[i].Order = i
	}
	return blocks
}

func blockIDs(blocks []lms.ContentBlock) []int {
	ids := make([]int, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}

func cloneBlocks(blocks []lms.ContentBlock) []lms.ContentBlock {
	cp := make([]lms.ContentBlock, len(blocks))
	for i, b := range blocks {
		if b.Content != nil {
			b.Content = append(json.RawMessage(nil), b.Content...)
		}
		if b.Problem != nil {
			id := *b.Problem
			b.Problem = &id
		}
		cp[i] = b
	}
	return cp
}
