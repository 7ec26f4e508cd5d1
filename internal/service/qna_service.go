package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"gptclone/internal/model"
	"gptclone/internal/repository"
)

// QnAService 旧版单轮问答，回答成功后写入 qna 表
type QnAService struct {
	store     *repository.Store
	completer Completer
}

// NewQnAService 创建问答服务
func NewQnAService(store *repository.Store, completer Completer) *QnAService {
	return &QnAService{
		store:     store,
		completer: completer,
	}
}

// Ask 提问
func (s *QnAService) Ask(ctx context.Context, question string) (*model.AskResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	answer, err := s.completer.Complete(ctx, question)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("completion failed")
		return nil, fmt.Errorf("ask: %w", err)
	}

	qna := &model.QnA{Question: question, Answer: answer}
	if err := s.store.QnA.Create(ctx, qna); err != nil {
		return nil, fmt.Errorf("save qna: %w", err)
	}

	return &model.AskResponse{
		ID:       qna.ID,
		Question: qna.Question,
		Answer:   qna.Answer,
	}, nil
}
