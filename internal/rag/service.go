package rag

import (
	"context"

	"github.com/tanyadoc/tanyadoc/internal/model"
)

// TurnResult is the outcome of one question turn. Empty Sources means
// nothing cleared the similarity threshold and no answer was synthesized.
type TurnResult struct {
	RefinedQuestion string
	Answer          string
	Sources         []*model.ScoredChunk
}

// Service chains refine → retrieve → answer for one user question.
type Service struct {
	refiner   *Refiner
	retriever *Retriever
	answerer  *Answerer
}

func NewService(refiner *Refiner, retriever *Retriever, answerer *Answerer) *Service {
	return &Service{
		refiner:   refiner,
		retriever: retriever,
		answerer:  answerer,
	}
}

// Ask runs a full turn. onRefined, when set, is called with the refined
// query before retrieval starts, so the transport can show search status.
// The generative model is never invoked when retrieval comes back empty.
func (s *Service) Ask(ctx context.Context, userID, question, focusFile string, history []model.ConversationTurn, onRefined func(string)) (*TurnResult, error) {
	refined := s.refiner.Refine(ctx, question, history)
	if onRefined != nil {
		onRefined(refined)
	}
	sources, err := s.retriever.Retrieve(ctx, userID, refined, focusFile)
	if err != nil {
		return nil, err
	}
	result := &TurnResult{RefinedQuestion: refined, Sources: sources}
	if len(sources) == 0 {
		return result, nil
	}
	answer, err := s.answerer.Answer(ctx, refined, sources, history)
	if err != nil {
		return nil, err
	}
	result.Answer = answer
	return result, nil
}
