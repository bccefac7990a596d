package tokens

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityBuilder/internal/balancer"
	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/storage"
)

const defaultBatchSize = 500

// MetaReader reads token metadata from chain.
type MetaReader func(ctx context.Context, token common.Address) (model.Token, error)

// Syncer copies the API token list into a sink, completing records the API leaves partial.
type Syncer struct {
	lister    Lister
	meta      MetaReader
	sink      storage.Sink
	policy    RetryPolicy
	batchSize int
	logger    *zap.Logger
}

func NewSyncer(lister Lister, meta MetaReader, sink storage.Sink, policy RetryPolicy, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		lister:    lister,
		meta:      meta,
		sink:      sink,
		policy:    policy,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
}

// Run performs one full sync and returns the number of tokens written.
func (s *Syncer) Run(ctx context.Context) (int, error) {
	var list []balancer.APIToken
	err := withRetry(ctx, s.policy, s.logger, "list tokens", func(ctx context.Context) error {
		var err error
		list, err = s.lister.Tokens(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	tokens, err := FromAPI(list)
	if err != nil {
		return 0, err
	}

	complete := make([]model.Token, 0, len(tokens))
	for _, token := range tokens {
		if needsMeta(token) && s.meta != nil {
			filled, err := s.fill(ctx, token)
			if err != nil {
				s.logger.Warn("skip token without metadata", zap.String("token", token.Address.Hex()), zap.Error(err))
				continue
			}
			token = filled
		}
		complete = append(complete, token)
	}

	written := 0
	for start := 0; start < len(complete); start += s.batchSize {
		end := start + s.batchSize
		if end > len(complete) {
			end = len(complete)
		}
		batch := complete[start:end]
		err := withRetry(ctx, s.policy, s.logger, "write tokens", func(ctx context.Context) error {
			return s.sink.PutTokenBatch(ctx, batch)
		})
		if err != nil {
			return written, err
		}
		written += len(batch)
	}

	s.logger.Info("token sync done", zap.Int("listed", len(tokens)), zap.Int("written", written))
	return written, nil
}

func needsMeta(token model.Token) bool {
	return token.Symbol == "" || token.Name == ""
}

// fill takes decimals from chain and only fills text fields the API left empty.
func (s *Syncer) fill(ctx context.Context, token model.Token) (model.Token, error) {
	var meta model.Token
	err := withRetry(ctx, s.policy, s.logger, "token metadata", func(ctx context.Context) error {
		var err error
		meta, err = s.meta(ctx, token.Address)
		return err
	})
	if err != nil {
		return token, err
	}
	token.Decimals = meta.Decimals
	if token.Symbol == "" {
		token.Symbol = meta.Symbol
	}
	if token.Name == "" {
		token.Name = meta.Name
	}
	return token, nil
}
