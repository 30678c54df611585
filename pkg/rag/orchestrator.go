package rag

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/internal/types"
	"go.uber.org/zap"
)

const DefaultLimit = 5

var label = color.New(color.FgCyan, color.Bold)

// Orchestrator asks a question, retrieves context for a similarity query and
// asks again with that context.
type Orchestrator struct {
	Chat     types.ChatClient
	Embedder types.Embedder
	Store    types.SimilarityStore

	// Optional collaborators.
	Tokens  types.TokenCounter
	Metrics *Metrics
	Logger  *zap.Logger
	Out     io.Writer

	Question        string
	SimilarityQuery string
	Instruction     string
	Limit           int

	// OnStage is called when a stage starts; the returned func, if any, is
	// called with the stage's error when it ends.
	OnStage func(Stage) func(error)
}

// Result holds everything a run produced. Fields after a failed stage are
// left at their zero value.
type Result struct {
	InitialAnswer string
	Retrieved     []models.ScoredResult
	Context       string
	Conversation  []models.Message
	PromptTokens  int
	Answer        string
}

// Run executes the four stages in order. A failure of the initial question is
// returned immediately. A failure in a later stage is logged with its stage
// and returned with the partial result; callers decide whether it is fatal.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	logger := o.logger()
	res := &Result{}

	initial := []models.Message{models.SystemMessage(o.Question)}
	err := o.stage(ctx, StageInitialChat, func(ctx context.Context) error {
		answer, err := o.Chat.Complete(ctx, initial)
		if err != nil {
			return err
		}
		res.InitialAnswer = answer
		return nil
	})
	if err != nil {
		logger.Error("initial question failed", zap.Error(err))
		return res, err
	}
	o.printAnswer(res.InitialAnswer)

	if err := o.augment(ctx, res); err != nil {
		stage, _ := StageOf(err)
		logger.Error("retrieval-augmented answer failed",
			zap.String("stage", string(stage)),
			zap.Error(err))
		return res, err
	}
	return res, nil
}

func (o *Orchestrator) augment(ctx context.Context, res *Result) error {
	var query models.Embedding
	err := o.stage(ctx, StageEmbed, func(ctx context.Context) error {
		vectors, err := o.Embedder.CreateEmbedding(ctx, []string{o.SimilarityQuery})
		if err != nil {
			return err
		}
		if len(vectors) == 0 {
			return ErrNoEmbedding
		}
		query = vectors[0]
		return nil
	})
	if err != nil {
		return err
	}

	err = o.stage(ctx, StageRetrieve, func(ctx context.Context) error {
		rows, err := o.Store.Query(ctx, query, o.limit())
		if err != nil {
			return err
		}
		res.Retrieved = rows
		return nil
	})
	if err != nil {
		return err
	}
	o.Metrics.setRetrieved(len(res.Retrieved))

	var texts strings.Builder
	for _, row := range res.Retrieved {
		label.Fprint(o.out(), "Score: ")
		fmt.Fprintln(o.out(), row.Score)
		label.Fprint(o.out(), "Text: ")
		fmt.Fprintln(o.out(), row.Text)
		texts.WriteString(row.Text)
	}
	res.Context = texts.String()

	res.Conversation = []models.Message{
		models.SystemMessage(o.Instruction),
		models.SystemMessage(res.Context),
		models.SystemMessage(o.Question),
	}
	if o.Tokens != nil {
		res.PromptTokens = o.Tokens.CountMessages(res.Conversation)
		o.logger().Info("augmented prompt",
			zap.Int("rows", len(res.Retrieved)),
			zap.Int("prompt_tokens", res.PromptTokens))
	}

	err = o.stage(ctx, StageAugmentedChat, func(ctx context.Context) error {
		answer, err := o.Chat.Complete(ctx, res.Conversation)
		if err != nil {
			return err
		}
		res.Answer = answer
		return nil
	})
	if err != nil {
		return err
	}
	o.printAnswer(res.Answer)
	return nil
}

// stage runs fn as one named step: hooks, timing, metrics and error typing.
func (o *Orchestrator) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	var done func(error)
	if o.OnStage != nil {
		done = o.OnStage(stage)
	}

	start := time.Now()
	err := fn(ctx)
	o.Metrics.observeStage(stage, start, err)
	if done != nil {
		done(err)
	}

	o.logger().Debug("stage finished",
		zap.String("stage", string(stage)),
		zap.Duration("took", time.Since(start)),
		zap.Bool("ok", err == nil))

	if err != nil {
		return stageErr(stage, err)
	}
	return nil
}

func (o *Orchestrator) printAnswer(answer string) {
	label.Fprint(o.out(), "ChatGPT says: ")
	fmt.Fprintln(o.out(), answer)
}

func (o *Orchestrator) limit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

func (o *Orchestrator) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
