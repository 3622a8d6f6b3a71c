package orchestrator

import (
	"context"
	"fmt"

	"advisor-service/internal/llm"
	"advisor-service/internal/models"
	"advisor-service/internal/prompt"
	"advisor-service/internal/registry"

	"go.uber.org/zap"
)

// RunChain executes one chain step by step. Step i+1 is only issued after step i
// resolved, since its prompt embeds step i's answer. Any failing step aborts the
// chain and no partial result is returned.
func (e *Engine) RunChain(ctx context.Context, ch models.ChainDescriptor, req Request) (models.ChainExecutionResult, error) {
	if err := registry.Runnable(ch, e.registry, req.Filter); err != nil {
		return models.ChainExecutionResult{}, fmt.Errorf("chain %s is not runnable: %w", ch.ID, err)
	}

	started := e.now()
	steps := make([]models.ChainStep, 0, len(ch.Models))
	responses := make(map[string]models.ModelResponse, len(ch.Models))

	var previous models.ModelResponse
	for i, modelID := range ch.Models {
		stepPrompt := req.Question
		enhanced := ""
		if i > 0 {
			enhanced = prompt.BuildEnhancedPrompt(e.DisplayName(ch.Models[i-1]), previous.Content, req.Question)
			stepPrompt = enhanced
		}

		resp, err := e.invoker.Invoke(ctx, modelID, stepPrompt, req.Wallet)
		if err == nil && resp == nil {
			err = fmt.Errorf("%w: %s returned no response", llm.ErrBackendResponseMalformed, modelID)
		}
		if err != nil {
			return models.ChainExecutionResult{}, fmt.Errorf("step %d (%s): %w", i, modelID, err)
		}

		step := *resp
		step.Source = models.ModelSource(modelID)

		steps = append(steps, models.ChainStep{
			Index:          i,
			ModelID:        modelID,
			Prompt:         stepPrompt,
			EnhancedPrompt: enhanced,
			Response:       step,
		})
		responses[modelID] = step
		previous = step

		e.logger.Debug("Chain step completed",
			zap.String("chain", ch.ID),
			zap.Int("step", i),
			zap.String("model", modelID))
	}

	return models.ChainExecutionResult{
		ChainID:       ch.ID,
		Steps:         steps,
		FinalModel:    ch.Models[len(ch.Models)-1],
		FinalResponse: previous.Content,
		TotalTimeMs:   e.now().Sub(started).Milliseconds(),
		Responses:     responses,
	}, nil
}
