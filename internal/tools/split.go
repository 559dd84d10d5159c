package tools

import (
	"context"
	"fmt"

	rt "github.com/agenthive/agenthive/internal/runtime"
	"github.com/agenthive/agenthive/pkg/decode"
)

// SplitSpec is the typed configuration for one split_task invocation.
type SplitSpec struct {
	Task string `json:"task"`
}

// Validate checks the required fields.
func (s SplitSpec) Validate() error {
	if s.Task == "" {
		return fmt.Errorf("%w: task is required", ErrInvalidSpec)
	}
	return nil
}

const splitInstruction = `You decompose tasks. Given a task, decide whether it is better handled as a whole or split into independent subtasks.
Respond with either "single task" followed by a one-line rationale, or a numbered list of subtasks, each self-contained enough to hand to a separate agent.`

// splitTool judges whether a task should be decomposed, using a plain
// generation run with no tools of its own.
type splitTool struct {
	runtime rt.Runtime
}

func newSplitTool(runtime rt.Runtime) *splitTool {
	return &splitTool{runtime: runtime}
}

func (t *splitTool) Name() string { return SplitToolName }

func (t *splitTool) Description() string {
	return "Judge whether a task should be split into independent subtasks, and produce the subtask list if so."
}

func (t *splitTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task": map[string]any{"type": "string", "description": "Task to evaluate"},
		},
		"required": []string{"task"},
	}
}

func (t *splitTool) Call(ctx context.Context, args map[string]any) (string, error) {
	spec, err := decode.FromMap[SplitSpec](args)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := spec.Validate(); err != nil {
		return "", err
	}

	stream, err := t.runtime.Run(ctx, rt.AgentSpec{
		Name:        "task splitter",
		Instruction: splitInstruction,
	}, nil, spec.Task)
	if err != nil {
		return "", err
	}

	for range stream.Events() {
	}
	return stream.Wait()
}
