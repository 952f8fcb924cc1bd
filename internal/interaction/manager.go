// Package interaction is the entry point of the engine. The Manager validates
// interaction requests, dispatches them to the merger, splitter and converter
// (or handles grouping and rearranging itself), and records the outcome.
package interaction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// DefaultMaxHistorySize bounds the interaction log when Settings leaves it at zero
const DefaultMaxHistorySize = 100

// Settings tunes the manager
type Settings struct {
	MaxHistorySize int
}

// Manager coordinates interactions between blocks
type Manager struct {
	merger    domain.BlockMerger
	splitter  domain.BlockSplitter
	converter domain.BlockConverter
	validator domain.Validator

	historyMu  sync.RWMutex
	history    []domain.InteractionResult
	maxHistory int

	listenersMu sync.RWMutex
	listeners   map[string][]domain.InteractionListener
}

// NewManager creates a manager over the three transformation subsystems
func NewManager(merger domain.BlockMerger, splitter domain.BlockSplitter, converter domain.BlockConverter, settings Settings) *Manager {
	if settings.MaxHistorySize <= 0 {
		settings.MaxHistorySize = DefaultMaxHistorySize
	}
	return &Manager{
		merger:     merger,
		splitter:   splitter,
		converter:  converter,
		validator:  domain.NewValidator(),
		history:    make([]domain.InteractionResult, 0, settings.MaxHistorySize),
		maxHistory: settings.MaxHistorySize,
		listeners:  make(map[string][]domain.InteractionListener),
	}
}

// ExecuteInteraction validates and runs one request. It never panics and reports
// every failure through the returned result.
func (m *Manager) ExecuteInteraction(ctx context.Context, req domain.InteractionRequest) domain.InteractionResult {
	start := time.Now()
	result := domain.InteractionResult{
		ID:        uuid.NewString(),
		Type:      req.Type,
		Changes:   []domain.Change{},
		Timestamp: start,
	}

	if err := m.validate(&req); err != nil {
		log.Debug().Err(err).Str("type", string(req.Type)).Msg("Interaction rejected")
		result.Result = domain.ResultFailed
		result.Error = domain.ErrorMessage(err)
		result.Duration = time.Since(start)
		return result
	}

	select {
	case <-ctx.Done():
		result.Result = domain.ResultCancelled
		result.Error = ctx.Err().Error()
		result.Duration = time.Since(start)
		return result
	default:
	}

	outcome := m.dispatch(req)
	result.Duration = time.Since(start)
	result.Data = outcome.Data
	if outcome.Changes != nil {
		result.Changes = outcome.Changes
	}

	event := domain.EventInteractionCompleted
	if outcome.Success {
		result.Result = domain.ResultSuccess
		log.Debug().
			Str("id", result.ID).
			Str("type", string(req.Type)).
			Int("changes", len(result.Changes)).
			Dur("duration", result.Duration).
			Msg("Interaction completed")
	} else {
		result.Result = domain.ResultFailed
		result.Error = outcome.Error
		event = domain.EventInteractionError
		log.Warn().
			Str("id", result.ID).
			Str("type", string(req.Type)).
			Str("error", outcome.Error).
			Msg("Interaction failed")
	}

	m.record(result)
	m.emit(event, result)
	return result
}

// Validate checks the request shape and asks the owning subsystem whether it can proceed
func (m *Manager) Validate(req *domain.InteractionRequest) error {
	if err := m.validator.ValidateRequest(req); err != nil {
		return err
	}

	var check domain.ValidationResult
	switch req.Type {
	case domain.InteractionMerge:
		check = m.merger.ValidateMerge(req.SourceBlocks, req.TargetBlock, req.Options)
	case domain.InteractionSplit:
		check = m.splitter.ValidateSplit(req.SourceBlocks[0], req.Options)
	case domain.InteractionConvert:
		check = m.converter.ValidateConvert(req.SourceBlocks, req.Options.TargetType, req.Options)
	case domain.InteractionRearrange:
		return validateRearrange(req)
	default:
		return nil
	}

	if !check.IsValid {
		return domain.NewValidationError(check.Error, map[string]any{"type": req.Type})
	}
	return nil
}

// validate is Validate with a panic in a subsystem check reported as an error
func (m *Manager) validate(req *domain.InteractionRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("type", string(req.Type)).
				Msg("Recovered from validation panic")
			err = domain.NewAppError(domain.ErrInternal,
				fmt.Sprintf("validation failed: %v", r), 500, map[string]any{"type": req.Type})
		}
	}()
	return m.Validate(req)
}

// dispatch runs the request, turning a panic in any strategy into a failed result
func (m *Manager) dispatch(req domain.InteractionRequest) (outcome domain.TransformResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("type", string(req.Type)).
				Msg("Recovered from strategy panic")
			outcome = domain.FailedTransform(domain.NewAppError(domain.ErrUnknownStrategy,
				fmt.Sprintf("strategy failed: %v", r), 500, map[string]any{"type": req.Type}))
		}
	}()

	switch req.Type {
	case domain.InteractionMerge:
		return m.merger.Merge(req.SourceBlocks, *req.TargetBlock, req.Options)
	case domain.InteractionSplit:
		return m.splitter.Split(req.SourceBlocks[0], req.Options)
	case domain.InteractionConvert:
		return m.converter.Convert(req.SourceBlocks, req.Options.TargetType, req.Options)
	case domain.InteractionRearrange:
		return Rearrange(req.SourceBlocks, rearrangeAnchor(req))
	case domain.InteractionGroup:
		return CreateGroup(groupMembers(req), req.Options)
	case domain.InteractionUngroup:
		return DisbandGroup(groupMembers(req), req.Options)
	}

	return domain.FailedTransform(domain.NewValidationError(
		fmt.Sprintf("Unsupported interaction type: %s", req.Type), nil))
}

// SuggestSplits ranks the split strategies applicable to block
func (m *Manager) SuggestSplits(block domain.Block) []domain.SplitSuggestion {
	return m.splitter.SuggestSplits(block)
}

// SuggestConversions ranks the types block could be converted to
func (m *Manager) SuggestConversions(block domain.Block) []domain.ConversionSuggestion {
	return m.converter.SuggestConversions(block)
}

// MergeRules returns the merge table
func (m *Manager) MergeRules() []domain.Rule {
	return m.merger.Rules()
}

// ConvertRules returns the conversion table
func (m *Manager) ConvertRules() []domain.Rule {
	return m.converter.Rules()
}
