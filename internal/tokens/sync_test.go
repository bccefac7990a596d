package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liquidityBuilder/internal/balancer"
	"liquidityBuilder/internal/model"
)

type memorySink struct {
	batches  [][]model.Token
	failures int
}

func (s *memorySink) PutTokenBatch(ctx context.Context, tokens []model.Token) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	s.batches = append(s.batches, append([]model.Token(nil), tokens...))
	return nil
}

func (s *memorySink) all() []model.Token {
	var out []model.Token
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

var fastRetry = RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}

func TestSyncerFillsMissingMetadata(t *testing.T) {
	lister := &staticLister{tokens: []balancer.APIToken{
		{Address: wsAddr, Name: "Wrapped Sonic", Symbol: "wS", Decimals: 18},
		{Address: usdcAddr, Name: "", Symbol: "USDC.e", Decimals: 0},
		{Address: fakeAddr, Name: "", Symbol: "", Decimals: 0},
	}}
	metaCalls := 0
	meta := func(ctx context.Context, token common.Address) (model.Token, error) {
		metaCalls++
		switch token {
		case common.HexToAddress(usdcAddr):
			return model.Token{Address: token, Symbol: "USDC", Name: "USD Coin", Decimals: 6}, nil
		default:
			return model.Token{}, errors.New("execution reverted")
		}
	}
	sink := &memorySink{}
	syncer := NewSyncer(lister, meta, sink, RetryPolicy{MaxRetries: 0}, nil)

	written, err := syncer.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, written)

	got := sink.all()
	require.Len(t, got, 2)
	require.Equal(t, "wS", got[0].Symbol)
	require.Equal(t, "USDC.e", got[1].Symbol, "api symbol wins over chain symbol")
	require.Equal(t, "USD Coin", got[1].Name)
	require.Equal(t, uint8(6), got[1].Decimals)
	require.Equal(t, 2, metaCalls, "complete records skip the chain read")
}

func TestSyncerBatchesAndRetriesWrites(t *testing.T) {
	lister := &staticLister{tokens: sonicList()}
	sink := &memorySink{failures: 1}
	syncer := NewSyncer(lister, nil, sink, fastRetry, nil)
	syncer.batchSize = 2

	written, err := syncer.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, written)
	require.Len(t, sink.batches, 2)
	require.Len(t, sink.batches[0], 2)
	require.Len(t, sink.batches[1], 1)
}

func TestSyncerGivesUpAfterRetries(t *testing.T) {
	lister := &staticLister{err: errors.New("api down")}
	syncer := NewSyncer(lister, nil, &memorySink{}, fastRetry, nil)

	_, err := syncer.Run(context.Background())
	require.ErrorContains(t, err, "api down")
	require.Equal(t, 3, lister.calls)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := withRetry(ctx, RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}, nopLogger(), "step", func(context.Context) error {
		attempts++
		cancel()
		return errors.New("boom")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}

func nopLogger() *zap.Logger { return zap.NewNop() }
